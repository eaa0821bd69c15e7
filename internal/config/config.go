package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	AppEnv      string
	CORSOrigins string

	// Storage
	StoreDriver string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	MongoURI      string
	MongoDatabase string

	// Rate limiting (redis is optional; limiter falls back to in-memory storage)
	RedisURL     string
	RateLimitMax int

	// Identity
	IdentityProvider        string
	FirebaseProjectID       string
	FirebaseAPIKey          string
	FirebaseCredentialsFile string
	LoginURL                string
	IdentityTimeout         time.Duration

	// Local identity provider tokens
	JWTSecret string
	JWTExpiry time.Duration

	// Generative AI
	GeminiAPIKey string
	GeminiAPIURL string
	GeminiModel  string
	AITimeout    time.Duration
	Prompt       string

	SentryDSN string
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	ProviderFirebase = "firebase"
	ProviderLocal    = "local"
)

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3212"),
		AppEnv:      getEnv("APP_ENV", "development"),
		CORSOrigins: getEnv("CORS_ORIGIN", "*"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),

		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "civisense"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "civisense"),

		RedisURL:     getEnv("REDIS_URL", ""),
		RateLimitMax: parseInt(getEnv("RATE_LIMIT_MAX", "60"), 60),

		IdentityProvider:        strings.ToLower(getEnv("IDENTITY_PROVIDER", ProviderFirebase)),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		LoginURL:                getEnv("LOGIN_URL", ""),
		IdentityTimeout:         parseDuration(getEnv("IDENTITY_TIMEOUT", "10s")),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "1h")),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiAPIURL: getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AITimeout:    parseDuration(getEnv("AI_TIMEOUT", "60s")),
		Prompt:       getEnv("CIVISENSE_PROMPT", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// Validate reports keys that the selected driver and identity provider cannot run without.
func (c *Config) Validate() error {
	var missing []string

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" && c.DBPassword == "" {
			missing = append(missing, "DB_PASSWORD or DATABASE_URL")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			missing = append(missing, "MONGODB_URI")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.IdentityProvider {
	case ProviderFirebase:
		if c.FirebaseProjectID == "" {
			missing = append(missing, "FIREBASE_PROJECT_ID")
		}
		if c.FirebaseAPIKey == "" && c.LoginURL == "" {
			missing = append(missing, "FIREBASE_API_KEY or LOGIN_URL")
		}
	case ProviderLocal:
		if len(c.JWTSecret) < 32 {
			missing = append(missing, "JWT_SECRET (at least 32 characters)")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/server"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store/memory"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store/mongo"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(!cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("store initialization failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("store ready", "driver", cfg.StoreDriver)

	// PostgreSQL log handler (ERROR+ async batch) and 30-day cleanup
	var pgLogHandler *logging.PGHandler
	cleanupDone := make(chan struct{})
	if pg, ok := st.(*postgres.Store); ok {
		pgLogHandler = logging.NewPGHandler(pg)
		slog.SetDefault(slog.New(logging.NewMultiHandler(
			logging.NewJSONHandler(os.Stdout, !cfg.IsProduction()),
			pgLogHandler,
		)))
		logging.StartCleanup(pg, cleanupDone)
	}

	gw, err := openIdentity(cfg, st)
	if err != nil {
		slog.Error("identity provider initialization failed", "provider", cfg.IdentityProvider, "error", err)
		os.Exit(1)
	}

	var generator ai.Generator = ai.Disabled{}
	if gemini, err := ai.NewGemini(ai.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiAPIURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AITimeout,
	}); err != nil {
		slog.Warn("chat answers disabled", "error", err)
	} else {
		generator = gemini
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var limiterStorage fiber.Storage
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := ratelimit.Open(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Warn("redis unavailable, rate limiting per instance", "error", err)
		} else {
			limiterStorage = rs
			defer rs.Close()
		}
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := server.New(server.Options{
		Config:         cfg,
		Store:          st,
		Identity:       gw,
		Generator:      generator,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		LimiterStorage: limiterStorage,
		AccessLog:      true,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "identity", identity.Name(gw))
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return postgres.Open(cfg.DSN())
	}
}

func openIdentity(cfg *config.Config, st store.Store) (identity.Gateway, error) {
	if cfg.IdentityProvider == config.ProviderLocal {
		return identity.NewLocal(st, cfg.JWTSecret, cfg.JWTExpiry)
	}
	// The admin token source refreshes with this context for the life of the process.
	return identity.NewFirebase(context.Background(), identity.FirebaseConfig{
		ProjectID:       cfg.FirebaseProjectID,
		APIKey:          cfg.FirebaseAPIKey,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		LoginURL:        cfg.LoginURL,
		Timeout:         cfg.IdentityTimeout,
	})
}

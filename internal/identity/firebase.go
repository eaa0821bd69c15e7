package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const signInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword?key="

var adminScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/firebase",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

type FirebaseConfig struct {
	ProjectID       string
	APIKey          string
	CredentialsFile string
	// LoginURL overrides the password sign-in endpoint. It must already carry the API key.
	LoginURL string
	Timeout  time.Duration
}

// authClient is the slice of the Admin SDK auth client the gateway uses.
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Firebase implements Gateway with the Admin SDK. Password sign-in is not part of the
// Admin API and goes to the Identity Toolkit REST endpoint with the web API key.
type Firebase struct {
	client    authClient
	signInURL string
	http      *http.Client
}

var _ Gateway = (*Firebase)(nil)

func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*Firebase, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read firebase credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, adminScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	signInURL := cfg.LoginURL
	if signInURL == "" {
		signInURL = signInEndpoint + url.QueryEscape(cfg.APIKey)
	}
	return newFirebase(client, signInURL, cfg.Timeout), nil
}

func newFirebase(client authClient, signInURL string, timeout time.Duration) *Firebase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Firebase{client: client, signInURL: signInURL, http: &http.Client{Timeout: timeout}}
}

// Verify checks signature, issuer, audience and expiry through the Admin SDK.
func (f *Firebase) Verify(ctx context.Context, idToken string) (*Claims, error) {
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.UID == "" || len(tok.UID) > 128 {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	email, _ := tok.Claims["email"].(string)
	return &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tok.Issuer,
			Subject:   tok.UID,
			Audience:  jwt.ClaimStrings{tok.Audience},
			IssuedAt:  jwt.NewNumericDate(time.Unix(tok.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(tok.Expires, 0)),
		},
	}, nil
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

func (f *Firebase) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.signInURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &envelope)
		if resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, envelope.Error.Message)
		}
		return nil, fmt.Errorf("sign-in returned %d: %s", resp.StatusCode, envelope.Error.Message)
	}

	var out signInResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	return &Session{UID: out.LocalID, IDToken: out.IDToken, RefreshToken: out.RefreshToken, ExpiresIn: out.ExpiresIn}, nil
}

func (f *Firebase) CreateUser(ctx context.Context, u NewUser) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(u.Email).
		Password(u.Password).
		EmailVerified(false).
		Disabled(false)
	if u.DisplayName != "" {
		params = params.DisplayName(u.DisplayName)
	}
	record, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return "", translateAuthError(err)
	}
	return record.UID, nil
}

func (f *Firebase) UpdateUser(ctx context.Context, uid string, u UserUpdate) error {
	if u.Email == nil && u.DisplayName == nil {
		return nil
	}
	params := &auth.UserToUpdate{}
	if u.Email != nil {
		params = params.Email(*u.Email)
	}
	if u.DisplayName != nil {
		params = params.DisplayName(*u.DisplayName)
	}
	_, err := f.client.UpdateUser(ctx, uid, params)
	return translateAuthError(err)
}

func (f *Firebase) DeleteUser(ctx context.Context, uid string) error {
	return translateAuthError(f.client.DeleteUser(ctx, uid))
}

// RevokeSessions invalidates every refresh token issued to uid.
func (f *Firebase) RevokeSessions(ctx context.Context, uid string) error {
	return translateAuthError(f.client.RevokeRefreshTokens(ctx, uid))
}

func translateAuthError(err error) error {
	switch {
	case err == nil:
		return nil
	case auth.IsUserNotFound(err):
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	case auth.IsEmailAlreadyExists(err):
		return fmt.Errorf("%w: %v", ErrEmailExists, err)
	}
	return err
}

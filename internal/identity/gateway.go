// Package identity verifies bearer tokens and manages records at the external identity provider.
package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("identity record not found")
	ErrEmailExists        = errors.New("email already registered with identity provider")
)

// Claims are the bearer-token claims the service relies on. Subject is the provider's uid.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UID() string { return c.Subject }

// Session is the result of a successful password sign-in.
type Session struct {
	UID          string
	IDToken      string
	RefreshToken string
	ExpiresIn    string
}

type NewUser struct {
	Email       string
	Password    string
	DisplayName string
}

// UserUpdate carries the fields to push to the identity record; nil fields are left untouched.
type UserUpdate struct {
	Email       *string
	DisplayName *string
}

// Gateway is the identity provider capability consumed by the HTTP boundary and the user service.
type Gateway interface {
	// Verify checks a bearer ID token and returns its claims.
	Verify(ctx context.Context, idToken string) (*Claims, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	CreateUser(ctx context.Context, u NewUser) (string, error)
	UpdateUser(ctx context.Context, uid string, u UserUpdate) error
	DeleteUser(ctx context.Context, uid string) error
	RevokeSessions(ctx context.Context, uid string) error
}

// KeyVerifier is implemented by providers whose tokens verify against a key held in process.
// The HTTP boundary hands Keyfunc to the jwt middleware for them.
type KeyVerifier interface {
	Keyfunc(token *jwt.Token) (any, error)
	// ValidateClaims applies provider-specific checks after the signature verified.
	ValidateClaims(ctx context.Context, claims *Claims) error
}

// Name is used as a metrics label.
func Name(g Gateway) string {
	switch g.(type) {
	case *Firebase:
		return "firebase"
	case *Local:
		return "local"
	default:
		return "identity"
	}
}

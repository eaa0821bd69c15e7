package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const localIssuer = "civisense-local"

// Local is a self-contained identity provider for development and tests:
// bcrypt password hashes in the data store and HS256 ID tokens.
type Local struct {
	accounts store.AccountStore
	secret   []byte
	expiry   time.Duration
	now      func() time.Time
}

var (
	_ Gateway     = (*Local)(nil)
	_ KeyVerifier = (*Local)(nil)
)

func NewLocal(accounts store.AccountStore, secret string, expiry time.Duration) (*Local, error) {
	if len(secret) < 32 {
		return nil, errors.New("local identity provider needs a secret of at least 32 characters")
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Local{accounts: accounts, secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

func (l *Local) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return l.secret, nil
}

func (l *Local) Verify(ctx context.Context, idToken string) (*Claims, error) {
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(idToken, claims, l.Keyfunc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := l.ValidateClaims(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateClaims rejects tokens for deleted accounts and tokens issued before the last revocation.
func (l *Local) ValidateClaims(ctx context.Context, claims *Claims) error {
	if claims.Issuer != localIssuer || claims.Subject == "" {
		return ErrInvalidToken
	}
	account, err := l.accounts.GetAccount(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(account.ValidSince) {
		return ErrTokenRevoked
	}
	return nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := l.accounts.FindAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := l.issue(account)
	if err != nil {
		return nil, err
	}
	return &Session{
		UID:       account.UID,
		IDToken:   token,
		ExpiresIn: strconv.Itoa(int(l.expiry.Seconds())),
	}, nil
}

func (l *Local) issue(account *models.Account) (string, error) {
	now := l.now()
	claims := Claims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   account.UID,
			Audience:  jwt.ClaimStrings{localIssuer},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.expiry)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (l *Local) CreateUser(ctx context.Context, u NewUser) (string, error) {
	if len(u.Password) < 6 {
		return "", fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	account := &models.Account{
		Email:        normalizeEmail(u.Email),
		PasswordHash: string(hash),
		DisplayName:  u.DisplayName,
		// Token iat has second precision; a same-second login must still validate.
		ValidSince: l.now().UTC().Truncate(time.Second),
	}
	if err := l.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	return account.UID, nil
}

func (l *Local) UpdateUser(ctx context.Context, uid string, u UserUpdate) error {
	account, err := l.account(ctx, uid)
	if err != nil {
		return err
	}
	if u.Email != nil {
		account.Email = normalizeEmail(*u.Email)
	}
	if u.DisplayName != nil {
		account.DisplayName = *u.DisplayName
	}
	if err := l.accounts.UpdateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (l *Local) DeleteUser(ctx context.Context, uid string) error {
	if err := l.accounts.DeleteAccount(ctx, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// RevokeSessions invalidates every token issued up to now.
func (l *Local) RevokeSessions(ctx context.Context, uid string) error {
	account, err := l.account(ctx, uid)
	if err != nil {
		return err
	}
	account.ValidSince = l.now().UTC().Truncate(time.Second).Add(time.Second)
	return l.accounts.UpdateAccount(ctx, account)
}

func (l *Local) account(ctx context.Context, uid string) (*models.Account, error) {
	account, err := l.accounts.GetAccount(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

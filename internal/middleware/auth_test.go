package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store/memory"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteGateway verifies tokens by lookup, like a provider that checks them over the network.
type remoteGateway struct {
	identity.Gateway
	tokens map[string]string
}

func (g *remoteGateway) Verify(_ context.Context, idToken string) (*identity.Claims, error) {
	uid, ok := g.tokens[idToken]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	claims := &identity.Claims{}
	claims.Subject = uid
	return claims, nil
}

func whoAmI(gw identity.Gateway, users *services.UserService) *fiber.App {
	app := fiber.New()
	app.Get("/me", Authenticate(gw, users), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Name)
	})
	return app
}

func get(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthenticateWithRemoteVerifier(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.CreateUser(context.Background(), &models.User{Name: "Ann", Email: "ann@example.com", UID: "uid-ann"}))
	gw := &remoteGateway{tokens: map[string]string{"ann-token": "uid-ann", "ghost-token": "uid-ghost"}}
	app := whoAmI(gw, services.NewUserService(st, gw, nil))

	status, body := get(t, app, "ann-token")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ann", body)

	status, _ = get(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, app, "forged")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, app, "ghost-token")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthenticateWithLocalKeys(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	gw, err := identity.NewLocal(st, "0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	uid, err := gw.CreateUser(ctx, identity.NewUser{Email: "bob@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(ctx, &models.User{Name: "Bob", Email: "bob@example.com", UID: uid}))
	session, err := gw.SignIn(ctx, "bob@example.com", "secret123")
	require.NoError(t, err)

	app := whoAmI(gw, services.NewUserService(st, gw, nil))

	status, body := get(t, app, session.IDToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bob", body)

	status, _ = get(t, app, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)
}

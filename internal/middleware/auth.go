package middleware

import (
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// Authenticate verifies the bearer token with the identity gateway and loads the caller's profile.
func Authenticate(gw identity.Gateway, users *services.UserService) fiber.Handler {
	if kv, ok := gw.(identity.KeyVerifier); ok {
		return keyedAuth(kv, users)
	}
	return bearerAuth(gw, users)
}

// keyedAuth parses the token in process with the provider's key.
func keyedAuth(kv identity.KeyVerifier, users *services.UserService) fiber.Handler {
	return jwtware.New(jwtware.Config{
		KeyFunc:    kv.Keyfunc,
		Claims:     &identity.Claims{},
		ContextKey: tokenKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenKey).(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			claims, ok := token.Claims.(*identity.Claims)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			if err := kv.ValidateClaims(c.UserContext(), claims); err != nil {
				return unauthorized(c, "Invalid token")
			}
			return resolve(c, users, claims)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return unauthorized(c, "Missing token")
			}
			return unauthorized(c, "Invalid token")
		},
	})
}

// bearerAuth hands the raw token to providers that verify remotely.
func bearerAuth(gw identity.Gateway, users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return unauthorized(c, "Missing token")
		}
		claims, err := gw.Verify(c.UserContext(), raw)
		if err != nil {
			return unauthorized(c, "Invalid token")
		}
		return resolve(c, users, claims)
	}
}

func resolve(c *fiber.Ctx, users *services.UserService, claims *identity.Claims) error {
	user, err := users.Authenticate(c.UserContext(), claims)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(dto.MessageResponse{Message: services.MessageOf(err)})
	}
	c.Locals(userKey, user)
	return c.Next()
}

// CurrentUser returns the profile stored by Authenticate, or nil on public routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

// Actor is the policy view of the current user.
func Actor(c *fiber.Ctx) policy.Actor {
	return policy.ActorOf(CurrentUser(c))
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.MessageResponse{Message: msg})
}

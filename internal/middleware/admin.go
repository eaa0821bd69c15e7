package middleware

import (
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/gofiber/fiber/v2"
)

// Require rejects callers the policy does not allow to perform action. Runs after Authenticate.
func Require(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return unauthorized(c, "Unauthorized")
		}
		if !policy.Can(Actor(c), action, policy.Resource{}) {
			return c.Status(fiber.StatusForbidden).JSON(dto.MessageResponse{Message: "Access Denied"})
		}
		return c.Next()
	}
}

package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

const internalMessage = "Internal server error"

func ok(c *fiber.Ctx, status int, data any, msg string) error {
	return c.Status(status).JSON(dto.Envelope{Success: true, Data: data, Message: msg})
}

// fail writes err as an envelope. Issue, comment and chat routes use it.
func fail(c *fiber.Ctx, err error) error {
	status, msg := classify(c, err)
	return c.Status(status).JSON(dto.Envelope{Success: false, Message: msg})
}

// failBare writes err as {"message": ...}. User routes use it.
func failBare(c *fiber.Ctx, err error) error {
	status, msg := classify(c, err)
	return c.Status(status).JSON(dto.MessageResponse{Message: msg})
}

func classify(c *fiber.Ctx, err error) (int, string) {
	status := services.HTTPStatus(err)
	msg := services.MessageOf(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err,
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		if services.KindOf(err) == services.KindInternal {
			msg = internalMessage
		}
	}
	return status, msg
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Envelope{Success: false, Message: "Invalid request body"})
}

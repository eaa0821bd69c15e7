package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// Pinger is satisfied by every store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  Pinger
	driver string
}

func NewHealthHandler(store Pinger, driver string) *HealthHandler {
	return &HealthHandler{store: store, driver: driver}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Store:     "ok",
		Driver:    h.driver,
	}
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = "unhealthy: " + err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

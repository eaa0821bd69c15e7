// Package server assembles the fiber application from its collaborators.
package server

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	Config    *config.Config
	Store     store.Store
	Identity  identity.Gateway
	Generator ai.Generator
	// Metrics and Gatherer are optional.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// LimiterStorage is optional; nil keeps limiter counters in memory.
	LimiterStorage fiber.Storage
	// AccessLog enables the per-request log line.
	AccessLog bool
}

func New(opts Options) *fiber.App {
	cfg := opts.Config

	issues := services.NewIssueService(opts.Store, opts.Store)
	comments := services.NewCommentService(opts.Store)
	users := services.NewUserService(opts.Store, opts.Identity, opts.Metrics)
	chats := services.NewChatService(opts.Store, issues, opts.Generator, services.NewPromptTemplate(cfg.Prompt), opts.Metrics)

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		UnescapePath: true,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${respHeader:X-Request-ID}\n",
		}))
	}
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())
	if opts.Metrics != nil {
		app.Use(opts.Metrics.Middleware())
	}

	routes.Setup(app, routes.Deps{
		Config:         cfg,
		Identity:       opts.Identity,
		Users:          users,
		Issues:         issues,
		Comments:       comments,
		Chats:          chats,
		Health:         opts.Store,
		LimiterStorage: opts.LimiterStorage,
		Gatherer:       opts.Gatherer,
	})
	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

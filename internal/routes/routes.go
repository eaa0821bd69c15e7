package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the route table is built from.
type Deps struct {
	Config   *config.Config
	Identity identity.Gateway
	Users    *services.UserService
	Issues   *services.IssueService
	Comments *services.CommentService
	Chats    *services.ChatService
	Health   handlers.Pinger
	// Limiter storage; nil keeps counters in process memory.
	LimiterStorage fiber.Storage
	// Gatherer backs /metrics; nil skips the endpoint.
	Gatherer prometheus.Gatherer
}

func Setup(app *fiber.App, d Deps) {
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// General API rate limiter: RATE_LIMIT_MAX req/min per IP
	if d.Config.RateLimitMax > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:               d.Config.RateLimitMax,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
			Storage:           d.LimiterStorage,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(dto.MessageResponse{Message: "Too many requests"})
			},
		}))
	}

	api.Get("/health", handlers.NewHealthHandler(d.Health, d.Config.StoreDriver).Check)

	auth := middleware.Authenticate(d.Identity, d.Users)

	chat := handlers.NewChatHandler(d.Chats)
	chats := api.Group("/chats")
	chats.Post("/", chat.Ask)
	chats.Get("/:userId", chat.History)

	issue := handlers.NewIssueHandler(d.Issues)
	issues := api.Group("/issues", auth)
	issues.Post("/", issue.Create)
	issues.Get("/", issue.List)
	issues.Get("/location/:location", issue.ByLocation)
	issues.Get("/user", issue.ByReporter)
	issues.Get("/status/:status", issue.ByStatus)
	issues.Get("/flag/:flagType", middleware.Require(policy.ActionIssueListFlagged), issue.ByFlag)
	issues.Put("/:id", issue.Update)
	issues.Delete("/:id", issue.Delete)

	comment := handlers.NewCommentHandler(d.Comments)
	issues.Get("/:issueId/comments", comment.List)
	issues.Post("/:issueId/comments", comment.Add)
	issues.Put("/:issueId/comments/:commentId", comment.Update)
	issues.Delete("/:issueId/comments/:commentId", comment.Delete)

	user := handlers.NewUserHandler(d.Users)
	users := api.Group("/users")
	users.Post("/login", user.Login)
	users.Post("/logout", auth, user.Logout)
	users.Post("/", user.Create)
	users.Get("/", auth, middleware.Require(policy.ActionUserList), user.List)
	users.Get("/:id", auth, user.Get)
	users.Put("/:id", auth, user.Update)
	users.Delete("/:id", auth, middleware.Require(policy.ActionUserDelete), user.Delete)
}

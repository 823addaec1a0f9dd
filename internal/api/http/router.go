package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-inbox/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Messages      *handlers.MessagesHandler
	Conversations *handlers.ConversationsHandler
	Rules         *handlers.RulesHandler
	Analytics     *handlers.AnalyticsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	messages := api.Group("/messages")
	messages.Get("/incoming", cfg.Messages.Describe)
	messages.Post("/incoming", cfg.Messages.Ingest)
	messages.Post("/:id/evaluate", cfg.Messages.Evaluate)

	conversations := api.Group("/conversations")
	conversations.Get("", cfg.Conversations.List)
	conversations.Get("/:id", cfg.Conversations.Get)
	conversations.Post("/:id/messages", cfg.Conversations.Send)
	conversations.Patch("/:id/status", cfg.Conversations.UpdateStatus)
	conversations.Post("/:id/assign", cfg.Conversations.Assign)
	conversations.Post("/:id/suggest-reply", cfg.Conversations.SuggestReply)

	rules := api.Group("/rules")
	rules.Get("", cfg.Rules.List)
	rules.Post("", cfg.Rules.Create)
	rules.Get("/:id", cfg.Rules.Get)
	rules.Put("/:id", cfg.Rules.Update)
	rules.Post("/:id/toggle", cfg.Rules.Toggle)
	rules.Delete("/:id", cfg.Rules.Delete)

	api.Get("/analytics", cfg.Analytics.Report)
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/crm-gateway/internal/api/http/handlers"
	"github.com/spec-kit/crm-gateway/internal/auth"
	"github.com/spec-kit/crm-gateway/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// Groups are the authenticated route groups business controllers mount on.
type Groups struct {
	API        fiber.Router
	Admin      fiber.Router
	Management fiber.Router
	Sales      fiber.Router
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) Groups {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/validate", cfg.Auth.Validate)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/me", cfg.Auth.Me)

	admin := api.Group("/admin", auth.AdminOnly())
	admin.Post("/users/:id/token", cfg.Auth.IssueForUser)

	return Groups{
		API:        api,
		Admin:      admin,
		Management: api.Group("/management", auth.ManagerOrAdmin()),
		Sales:      api.Group("/sales", auth.SalesTeam()),
	}
}

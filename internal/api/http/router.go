package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Services       *handlers.ServicesHandler
	Transactions   *handlers.TransactionsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
		app.Get("/metrics", cfg.Health.Metrics)
	}

	requireAuth := cfg.AuthMiddleware.Handle

	app.Post("/signup", cfg.Users.Signup)
	app.Post("/login", cfg.Users.Login)
	app.Post("/logout", requireAuth, cfg.Users.Logout)
	app.Get("/earnings", requireAuth, cfg.Users.Earnings)

	services := app.Group("/services")
	services.Get("/", cfg.Services.ListActive)
	services.Post("/", requireAuth, cfg.Services.Create)
	services.Get("/user/:creator", cfg.Services.ListByCreatorName)
	services.Get("/transactions/:name", cfg.Transactions.ListByBuyer)
	services.Get("/:creatorEmail", cfg.Services.ListByCreatorEmail)

	services.Post("/buy/:serviceId", requireAuth, cfg.Transactions.Buy)
	services.Post("/deliver/:serviceId", cfg.Transactions.Deliver)
	services.Post("/cancel/:serviceId", cfg.Transactions.Cancel)
	services.Post("/deactivate/:serviceId", requireAuth, cfg.Services.Deactivate)
	services.Post("/activate/:serviceId", requireAuth, cfg.Services.Activate)
}

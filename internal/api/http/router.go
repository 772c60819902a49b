package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tour-service/internal/api/http/handlers"
	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.Middleware
	RateLimiter    fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter)
	}

	users := api.Group("/v1/users")
	users.Post("/signup", cfg.Auth.Signup)
	users.Post("/login", cfg.Auth.Login)
	users.Post("/forgotPassword", cfg.Auth.ForgotPassword)
	users.Patch("/resetPassword/:token", cfg.Auth.ResetPassword)

	// Everything below requires a live session.
	protected := users.Group("", cfg.AuthMiddleware.Handle)
	protected.Patch("/updateMyPassword", cfg.Auth.UpdatePassword)
	protected.Get("/me", cfg.Users.Me)
	protected.Patch("/updateMe", cfg.Users.UpdateMe)
	protected.Delete("/deleteMe", cfg.Users.DeleteMe)

	admin := protected.Group("", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/", cfg.Users.List)
	admin.Post("/", cfg.Users.Create)
	admin.Get("/:id", cfg.Users.Get)
	admin.Patch("/:id", cfg.Users.Update)
	admin.Delete("/:id", cfg.Users.Delete)
}

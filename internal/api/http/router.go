package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/jwt-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/jwt-auth-service/internal/auth"
	"github.com/spec-kit/jwt-auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}

	// Resolution never rejects by itself; the guards on each route do.
	v1 := app.Group("/v1", cfg.AuthMiddleware.Handle)
	v1.Post("/signup", cfg.Users.SignUp)
	v1.Post("/signin", cfg.Users.SignIn)
	v1.Get("/me", auth.RequireAuthenticated(), cfg.Users.Me)
	v1.Get("/admin/ping", auth.RequireAuthority(domain.AuthorityAdmin), cfg.Users.AdminPing)
}

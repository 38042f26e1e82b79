package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Pages         *handlers.PagesHandler
	Admin         *handlers.AdminHandler
	Metrics       *observability.Metrics
	Session       *auth.SessionMiddleware
	Gate          *auth.RouteGate
	APIAuthPrefix string
}

// RegisterRoutes wires HTTP routes. Health checks and metrics are registered ahead of the
// session middleware and route gate so they are never redirected.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Use(cfg.Session.Handle)
	app.Use(cfg.Gate.Handle)

	authGroup := app.Group(cfg.APIAuthPrefix)
	authGroup.Post("/callback/credentials", cfg.Auth.Login)
	authGroup.Post("/callback/:provider", cfg.Auth.OAuthCallback)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/new-verification", cfg.Auth.NewVerification)
	authGroup.Post("/reset", cfg.Auth.Reset)
	authGroup.Post("/new-password", cfg.Auth.NewPassword)
	authGroup.Get("/session", cfg.Auth.Session)
	authGroup.Post("/signout", cfg.Auth.SignOut)

	app.Get("/api/admin", auth.RequireRole(handlers.ForbiddenAdminAction, domain.RoleAdmin), cfg.Admin.Action)

	app.Get("/", cfg.Pages.Home)
	app.Get("/auth/:page", cfg.Pages.AuthPage)
	app.Get("/settings", auth.RequireSession(), cfg.Pages.Settings)
}

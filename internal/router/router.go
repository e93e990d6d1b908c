package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/bookeval-api/internal/config"
	"github.com/noah-isme/bookeval-api/internal/handler"
	"github.com/noah-isme/bookeval-api/internal/middleware"
	"github.com/noah-isme/bookeval-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler   *handler.EvaluationHandler
	JWTMiddleware       fiber.Handler
	Database            handler.Pinger
	EvaluatorConfigured bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Database, deps.EvaluatorConfigured))

	if deps.EvaluationHandler == nil {
		return
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	evaluations := api.Group("/evaluations", jwtMiddleware, middleware.RequirePrincipal())
	deps.EvaluationHandler.Register(evaluations)
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/rawrecordscount/internal/config"
	"github.com/noah-isme/rawrecordscount/internal/handler"
	"github.com/noah-isme/rawrecordscount/internal/middleware"
	"github.com/noah-isme/rawrecordscount/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReportHandler *handler.ReportHandler
	DB            handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))

	if cfg.MetricsAdminOnly {
		app.Get("/metrics", middleware.JWTProtected(cfg.JWTSecret), middleware.RequireRole("admin"), observability.MetricsHandler())
	} else {
		app.Get("/metrics", observability.MetricsHandler())
	}

	if deps.ReportHandler != nil {
		// Anonymous requests reach the handler so a missing course answers 404 before login is checked.
		report := app.Group(middleware.ReportPathPrefix,
			middleware.JWTOptional(cfg.JWTSecret),
			middleware.RateLimit("report", cfg.RateLimitMax, cfg.RateLimitWindow),
		)
		deps.ReportHandler.Register(report)
	}
}

package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/evalmate-go/internal/config"
	"github.com/noah-isme/evalmate-go/internal/handler"
	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/observability"
)

// Default limits for routes that reach the grading backend.
const (
	EvaluationRateLimit  = 10
	EvaluationRateWindow = time.Minute
)

// Paths shared by the router and the index page.
const (
	JobsEndpoint  = "/api/v1/evaluations/jobs"
	WebSocketPath = "/ws/evaluations/jobs/"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	IndexHandler      *handler.IndexHandler
	EvaluationHandler *handler.EvaluationHandler
	JobStreamHandler  *handler.JobStreamHandler
	RenderHandler     *handler.RenderHandler
	// RateLimit overrides the evaluation limiter. Nil uses the defaults.
	RateLimit fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	if deps.IndexHandler != nil {
		deps.IndexHandler.Register(app)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.EvaluationHandler != nil {
		limit := deps.RateLimit
		if limit == nil {
			limit = middleware.RateLimit("evaluations", EvaluationRateLimit, EvaluationRateWindow)
		}
		deps.EvaluationHandler.Register(api.Group("/evaluations"), limit)
	}

	if deps.RenderHandler != nil {
		deps.RenderHandler.Register(api.Group("/render"))
	}

	if deps.JobStreamHandler != nil {
		deps.JobStreamHandler.Register(app.Group("/ws/evaluations/jobs"))
	}
}

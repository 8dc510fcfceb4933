package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/evalmate-go/internal/config"
	"github.com/noah-isme/evalmate-go/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Submitter   string    `json:"submitter"`
	Validation  bool      `json:"validation"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	submitter := "http"
	if cfg.EvaluationMock {
		submitter = "mock"
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Submitter:   submitter,
			Validation:  cfg.EvaluationValidate,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

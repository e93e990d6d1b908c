package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/bookeval-api/internal/config"
	"github.com/noah-isme/bookeval-api/internal/utils"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status              string    `json:"status"`
	Timestamp           time.Time `json:"timestamp"`
	Service             string    `json:"service"`
	Environment         string    `json:"environment"`
	Database            string    `json:"database"`
	EvaluatorConfigured bool      `json:"evaluator_configured"`
	Model               string    `json:"model,omitempty"`
}

// HealthCheck returns a handler that reports application health information.
// db may be nil, in which case the database is reported as unchecked.
func HealthCheck(cfg config.Config, db Pinger, evaluatorConfigured bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:              "ok",
			Timestamp:           time.Now().UTC(),
			Service:             cfg.AppName,
			Environment:         cfg.AppEnv,
			Database:            "unchecked",
			EvaluatorConfigured: evaluatorConfigured,
		}
		if evaluatorConfigured {
			payload.Model = cfg.AIModel
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				payload.Status = "degraded"
				payload.Database = "unreachable"
				return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
					Success: false,
					Data:    payload,
					Message: "database unreachable",
					Error:   "database unreachable",
				})
			}
			payload.Database = "ok"
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

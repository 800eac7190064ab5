package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/counsel-vault/internal/config"
	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Service      string    `json:"service"`
	Environment  string    `json:"environment"`
	RestoreState string    `json:"restoreState,omitempty"`
}

// HealthCheck returns a handler that reports application health information.
// A failed restore degrades the status until the next successful import.
func HealthCheck(cfg config.Config, snapshots service.SnapshotService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if snapshots != nil {
			state := snapshots.State()
			payload.RestoreState = string(state)
			if state == service.RestoreFailed {
				payload.Status = "degraded"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

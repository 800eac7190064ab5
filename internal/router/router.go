package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/counsel-vault/internal/config"
	"github.com/noah-isme/counsel-vault/internal/handler"
	"github.com/noah-isme/counsel-vault/internal/middleware"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/observability"
	"github.com/noah-isme/counsel-vault/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	SettingsHandler *handler.SettingsHandler
	ImportHandler   *handler.ImportHandler
	SnapshotHandler *handler.SnapshotHandler
	BackupHandler   *handler.BackupHandler
	StudentHandler  *handler.StudentHandler
	Snapshots       service.SnapshotService
	JWTMiddleware   fiber.Handler
	LoginLimiter    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Snapshots))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		if deps.LoginLimiter != nil {
			deps.AuthHandler.RegisterPublic(auth, deps.LoginLimiter)
		} else {
			deps.AuthHandler.RegisterPublic(auth)
		}
		deps.AuthHandler.Register(auth, jwtMiddleware)
	}

	if deps.SettingsHandler != nil {
		deps.SettingsHandler.Register(api.Group("/settings", jwtMiddleware))
	}

	if deps.ImportHandler != nil {
		deps.ImportHandler.Register(api.Group("/import", jwtMiddleware))
	}

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students", jwtMiddleware))
	}

	// Whole-store operations
	if deps.SnapshotHandler != nil {
		snapshot := api.Group("/snapshot", jwtMiddleware)
		deps.SnapshotHandler.Register(snapshot)
		deps.SnapshotHandler.RegisterAdmin(snapshot, adminOnly)
	}

	if deps.BackupHandler != nil {
		backups := api.Group("/backups", jwtMiddleware)
		deps.BackupHandler.Register(backups)
		deps.BackupHandler.RegisterAdmin(backups, adminOnly)
	}
}

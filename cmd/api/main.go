package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/app"
	"github.com/noah-isme/counsel-vault/internal/config"
	"github.com/noah-isme/counsel-vault/internal/handler"
	"github.com/noah-isme/counsel-vault/internal/middleware"
	"github.com/noah-isme/counsel-vault/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	vault, err := app.Open(cfg, logger)
	if err != nil {
		log.Fatalf("failed to open vault: %v", err)
	}
	defer vault.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := vault.EnsureDefaults(ctx); err != nil {
		log.Fatalf("failed to seed defaults: %v", err)
	}

	vault.Backups.Start(ctx)

	server := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    64 << 20,
	})

	middleware.Register(server, middleware.Config{Logger: &logger})
	router.Register(server, vault.Config, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(vault.Auth, logger),
		SettingsHandler: handler.NewSettingsHandler(vault.Settings, logger),
		ImportHandler:   handler.NewImportHandler(vault.Imports, logger),
		SnapshotHandler: handler.NewSnapshotHandler(vault.Snapshots, vault.Backups, vault.Seeder, logger),
		BackupHandler:   handler.NewBackupHandler(vault.Backups, vault.Validator, logger),
		StudentHandler:  handler.NewStudentHandler(vault.Students, logger),
		Snapshots:       vault.Snapshots,
		JWTMiddleware:   middleware.JWTProtected(vault.Config.JWTSecret, vault.Auth),
		LoginLimiter:    middleware.LoginRateLimit(10, time.Minute),
	})

	go func() {
		if err := server.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, server)
}

func waitForShutdown(ctx context.Context, server *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/counsel-vault/internal/config"
	"github.com/noah-isme/counsel-vault/internal/database"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/pkg/events"
)

// Vault wires the storage tiers and services shared by the API server and the CLI.
type Vault struct {
	Config    config.Config
	DB        *gorm.DB
	Cache     *redis.Client
	Store     repository.RecordStore
	Validator *validator.Validate
	Events    events.Publisher
	Sessions  *service.SessionTable

	Settings  service.SettingsCache
	Imports   service.ImportService
	Snapshots service.SnapshotService
	Backups   service.BackupService
	Seeder    service.SeedService
	Auth      service.AuthService
	Students  service.StudentService

	closers []func() error
}

// Open connects both tiers and builds every service. The caller owns Close.
func Open(cfg config.Config, logger zerolog.Logger) (*Vault, error) {
	v := &Vault{Config: cfg}

	db, err := database.OpenDurable(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	v.DB = db
	v.closers = append(v.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			_ = v.Close()
			return nil, err
		}
		v.Cache = client
		v.closers = append(v.closers, client.Close)
	} else {
		embedded, err := database.StartEmbeddedRedis()
		if err != nil {
			_ = v.Close()
			return nil, err
		}
		v.Cache = embedded.Client
		v.closers = append(v.closers, embedded.Close)
		logger.Info().Msg("using embedded settings cache")
	}

	v.Events = events.Nop{}
	if cfg.NATSURL != "" {
		publisher, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("event publishing disabled")
		} else {
			v.Events = publisher
			v.closers = append(v.closers, func() error {
				publisher.Close()
				return nil
			})
		}
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn().Msg("jwt secret not configured; sessions will not survive a restart")
	}
	v.Config.JWTSecret = secret

	v.Validator = validator.New(validator.WithRequiredStructEnabled())
	v.Store = repository.NewRecordStore(db)
	v.Sessions = service.NewSessionTable()

	v.Settings = service.NewSettingsCache(v.Store, v.Cache, cfg.SettingsCacheKey, v.Validator, logger)
	v.Imports = service.NewImportService(v.Store, v.Settings, v.Validator, v.Events, logger)
	v.Snapshots = service.NewSnapshotService(v.Store, v.Settings, v.Sessions, v.Validator, v.Events, logger)
	v.Backups = service.NewBackupService(
		v.Snapshots,
		repository.NewBackupRepository(db),
		repository.NewMetaRepository(db),
		service.BackupConfig{
			DefaultEnabled: cfg.BackupEnabled,
			Interval:       cfg.BackupInterval,
			Retention:      cfg.BackupRetention,
			Timeout:        cfg.BackupTimeout,
		},
		v.Events,
		logger,
	)
	v.Seeder = service.NewSeedService(v.Store, v.Settings, seedAccounts(cfg), logger)
	v.Auth = service.NewAuthService(v.Store, v.Sessions, secret, cfg.JWTTTL, v.Validator, logger)
	v.Students = service.NewStudentService(v.Store, v.Validator, logger)

	return v, nil
}

// EnsureDefaults seeds settings and the initial accounts on first run.
func (v *Vault) EnsureDefaults(ctx context.Context) error {
	if _, err := v.Seeder.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (v *Vault) Close() error {
	var errs []error
	for i := len(v.closers) - 1; i >= 0; i-- {
		if err := v.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	v.closers = nil
	return errors.Join(errs...)
}

func seedAccounts(cfg config.Config) []service.SeedAccount {
	return []service.SeedAccount{
		{Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPassword, Role: models.RoleAdmin},
		{Email: cfg.SeedTeacherEmail, Password: cfg.SeedTeacherPassword, Role: models.RoleTeacher},
	}
}

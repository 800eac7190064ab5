package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
)

// SeedAccount describes a local account created on first run.
type SeedAccount struct {
	Email    string
	Password string
	Role     string
}

// SeedReport describes what EnsureDefaults wrote.
type SeedReport struct {
	UsersCreated int `json:"usersCreated"`
}

// SeedService writes the first-run defaults. A cleared store stays empty until
// EnsureDefaults is called again.
type SeedService interface {
	EnsureDefaults(ctx context.Context) (SeedReport, error)
}

type seedService struct {
	users    repository.Collection[models.User]
	settings SettingsCache
	accounts []SeedAccount
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSeedService constructs a seeding service.
func NewSeedService(store repository.RecordStore, settings SettingsCache, accounts []SeedAccount, logger zerolog.Logger) SeedService {
	return &seedService{
		users:    repository.NewCollection[models.User](store, repository.CollectionUsers),
		settings: settings,
		accounts: accounts,
		logger:   logger.With().Str("component", "seed_service").Logger(),
		now:      time.Now,
	}
}

func (s *seedService) EnsureDefaults(ctx context.Context) (SeedReport, error) {
	if _, err := s.settings.GetSettings(ctx); err != nil {
		return SeedReport{}, err
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return SeedReport{}, err
	}
	if count > 0 {
		return SeedReport{}, nil
	}

	report := SeedReport{}
	now := s.now().UTC()
	for _, account := range s.accounts {
		if account.Email == "" || account.Password == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
		if err != nil {
			return report, fmt.Errorf("hash password for %s: %w", account.Email, err)
		}

		user := models.User{
			ID:        uuid.NewString(),
			Email:     models.UserKey(account.Email),
			Password:  string(hash),
			Role:      account.Role,
			CreatedAt: now,
		}
		if err := s.users.Put(ctx, user.ID, user); err != nil {
			return report, err
		}
		report.UsersCreated++
	}

	s.logger.Info().Int("users", report.UsersCreated).Msg("default accounts seeded")
	return report, nil
}

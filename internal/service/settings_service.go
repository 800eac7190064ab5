package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/observability"
	"github.com/noah-isme/counsel-vault/internal/repository"
)

// SettingsRecordID is the identifier of the singleton settings record.
const SettingsRecordID = "app"

// SettingsCache serves AppSettings from the fast tier and keeps a durable copy.
type SettingsCache interface {
	GetSettings(ctx context.Context) (models.AppSettings, error)
	UpdateSettings(ctx context.Context, patch dto.SettingsPatch) (models.AppSettings, error)
	// Prime pushes settings that are already durable into the fast tier.
	Prime(ctx context.Context, settings models.AppSettings) error
	Invalidate(ctx context.Context) error
	Refresh(ctx context.Context) (models.AppSettings, error)
}

type settingsCache struct {
	durable   repository.Collection[models.AppSettings]
	cache     *redis.Client
	cacheKey  string
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSettingsCache builds the write-through settings cache.
func NewSettingsCache(store repository.RecordStore, cache *redis.Client, cacheKey string, validate *validator.Validate, logger zerolog.Logger) SettingsCache {
	if cacheKey == "" {
		cacheKey = "vault:settings"
	}
	return &settingsCache{
		durable:   repository.NewCollection[models.AppSettings](store, repository.CollectionSettings),
		cache:     cache,
		cacheKey:  cacheKey,
		validator: validate,
		logger:    logger.With().Str("component", "settings_cache").Logger(),
	}
}

func (s *settingsCache) GetSettings(ctx context.Context) (models.AppSettings, error) {
	if cached, ok := s.readCache(ctx); ok {
		observability.SettingsCache().WithLabelValues("cache").Inc()
		return cached, nil
	}

	settings, err := s.durable.Get(ctx, SettingsRecordID)
	switch {
	case err == nil:
		observability.SettingsCache().WithLabelValues("durable").Inc()
		if payload, encodeErr := json.Marshal(settings); encodeErr == nil {
			if setErr := s.cache.Set(ctx, s.cacheKey, payload, 0).Err(); setErr != nil {
				s.logger.Warn().Err(setErr).Msg("failed to populate settings cache")
			}
		}
		return settings, nil
	case errors.Is(err, repository.ErrNotFound):
		defaults := models.DefaultSettings()
		if err := s.writeThrough(ctx, defaults); err != nil {
			return models.AppSettings{}, err
		}
		observability.SettingsCache().WithLabelValues("defaults").Inc()
		s.logger.Info().Msg("default settings initialised")
		return defaults, nil
	default:
		return models.AppSettings{}, err
	}
}

func (s *settingsCache) UpdateSettings(ctx context.Context, patch dto.SettingsPatch) (models.AppSettings, error) {
	if s.validator != nil {
		if err := s.validator.Struct(patch); err != nil {
			return models.AppSettings{}, fmt.Errorf("%w: %w", ErrValidationFailure, err)
		}
	}

	current, err := s.GetSettings(ctx)
	if err != nil {
		return models.AppSettings{}, err
	}

	merged := patch.Apply(current)
	if err := s.writeThrough(ctx, merged); err != nil {
		return models.AppSettings{}, err
	}

	return merged, nil
}

func (s *settingsCache) Prime(ctx context.Context, settings models.AppSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := s.cache.Set(ctx, s.cacheKey, payload, 0).Err(); err != nil {
		if delErr := s.cache.Del(ctx, s.cacheKey).Err(); delErr != nil {
			s.logger.Error().Err(delErr).Msg("settings cache left stale")
			return fmt.Errorf("%w: cache tier: %w", ErrPersistenceFailure, err)
		}
		s.logger.Warn().Err(err).Msg("settings cache invalidated after failed prime")
	}

	return nil
}

func (s *settingsCache) Invalidate(ctx context.Context) error {
	if err := s.cache.Del(ctx, s.cacheKey).Err(); err != nil {
		return fmt.Errorf("%w: invalidate cache tier: %w", ErrPersistenceFailure, err)
	}
	return nil
}

func (s *settingsCache) Refresh(ctx context.Context) (models.AppSettings, error) {
	if err := s.Invalidate(ctx); err != nil {
		return models.AppSettings{}, err
	}
	return s.GetSettings(ctx)
}

func (s *settingsCache) readCache(ctx context.Context) (models.AppSettings, bool) {
	cached, err := s.cache.Get(ctx, s.cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read settings cache")
		}
		return models.AppSettings{}, false
	}

	var settings models.AppSettings
	if err := json.Unmarshal(cached, &settings); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt settings cache entry")
		return models.AppSettings{}, false
	}

	return settings, true
}

// writeThrough updates the fast tier, then the durable tier. A durable failure
// restores the previous fast-tier value so the tiers never disagree.
func (s *settingsCache) writeThrough(ctx context.Context, settings models.AppSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	previous, readErr := s.cache.Get(ctx, s.cacheKey).Bytes()
	hadPrevious := readErr == nil

	if err := s.cache.Set(ctx, s.cacheKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("%w: cache tier: %w", ErrPersistenceFailure, err)
	}

	if err := s.durable.Put(ctx, SettingsRecordID, settings); err != nil {
		s.rollback(ctx, previous, hadPrevious)
		return fmt.Errorf("%w: durable tier: %w", ErrPersistenceFailure, err)
	}

	return nil
}

func (s *settingsCache) rollback(ctx context.Context, previous []byte, hadPrevious bool) {
	var err error
	if hadPrevious {
		err = s.cache.Set(ctx, s.cacheKey, previous, 0).Err()
	} else {
		err = s.cache.Del(ctx, s.cacheKey).Err()
	}
	if err == nil {
		return
	}

	s.logger.Error().Err(err).Msg("failed to roll back settings cache")
	if delErr := s.cache.Del(ctx, s.cacheKey).Err(); delErr != nil {
		s.logger.Error().Err(delErr).Msg("settings cache may report unsaved values")
	}
}

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
)

func TestSettingsInitialisedOnEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	cache := env.settingsCache(nil)
	ctx := context.Background()

	first, err := cache.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultSettings(), first)
	require.True(t, env.mini.Exists(testCacheKey))

	env.mini.FlushAll()

	second, err := env.settingsCache(nil).GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var durable models.AppSettings
	require.NoError(t, env.store.Get(ctx, repository.CollectionSettings, SettingsRecordID, &durable))
	require.Equal(t, first, durable)
	require.True(t, env.mini.Exists(testCacheKey), "durable read repopulates the cache")
}

func TestSettingsUpdateMergesShallowly(t *testing.T) {
	env := newTestEnv(t)
	cache := env.settingsCache(nil)
	ctx := context.Background()

	updated, err := cache.UpdateSettings(ctx, dto.SettingsPatch{
		SchoolName: stringPtr("Lycee El Amir"),
		Groups:     []string{"A", "B"},
	})
	require.NoError(t, err)
	require.Equal(t, "Lycee El Amir", updated.SchoolName)
	require.Equal(t, []string{"A", "B"}, updated.Groups)
	require.Equal(t, models.DefaultSettings().Semesters, updated.Semesters)

	raw, err := env.mini.Get(testCacheKey)
	require.NoError(t, err)
	var cached models.AppSettings
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	require.Equal(t, updated, cached)

	var durable models.AppSettings
	require.NoError(t, env.store.Get(ctx, repository.CollectionSettings, SettingsRecordID, &durable))
	require.Equal(t, updated, durable)
}

func TestSettingsUpdateRejectsInvalidPatch(t *testing.T) {
	env := newTestEnv(t)
	cache := env.settingsCache(nil)

	_, err := cache.UpdateSettings(context.Background(), dto.SettingsPatch{Timezone: stringPtr("Mars/Olympus")})
	require.ErrorIs(t, err, ErrValidationFailure)
}

func TestSettingsDurableFailureRollsBackCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	failing := false
	store := &failingStore{RecordStore: env.store, failPut: func(collection repository.CollectionName, _ string) bool {
		return failing && collection == repository.CollectionSettings
	}}
	cache := env.settingsCache(store)

	original, err := cache.GetSettings(ctx)
	require.NoError(t, err)

	failing = true
	_, err = cache.UpdateSettings(ctx, dto.SettingsPatch{SchoolName: stringPtr("Never saved")})
	require.ErrorIs(t, err, ErrPersistenceFailure)
	require.ErrorIs(t, err, repository.ErrStorageFailure)

	current, err := cache.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, original, current)
	require.Empty(t, current.SchoolName)
}

func TestSettingsDefaultsFailureLeavesCacheEmpty(t *testing.T) {
	env := newTestEnv(t)
	store := &failingStore{RecordStore: env.store, failPut: func(collection repository.CollectionName, _ string) bool {
		return collection == repository.CollectionSettings
	}}

	_, err := env.settingsCache(store).GetSettings(context.Background())
	require.ErrorIs(t, err, ErrPersistenceFailure)
	require.False(t, env.mini.Exists(testCacheKey))
}

func TestSettingsCorruptCacheEntryFallsBackToDurable(t *testing.T) {
	env := newTestEnv(t)
	cache := env.settingsCache(nil)
	ctx := context.Background()

	_, err := cache.UpdateSettings(ctx, dto.SettingsPatch{CounselorName: stringPtr("Nadia")})
	require.NoError(t, err)

	require.NoError(t, env.mini.Set(testCacheKey, "{not json"))

	current, err := cache.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "Nadia", current.CounselorName)
}

func TestSettingsInvalidateAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	cache := env.settingsCache(nil)
	ctx := context.Background()

	_, err := cache.UpdateSettings(ctx, dto.SettingsPatch{SchoolName: stringPtr("Lycee")})
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx))
	require.False(t, env.mini.Exists(testCacheKey))

	refreshed, err := cache.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "Lycee", refreshed.SchoolName)
	require.True(t, env.mini.Exists(testCacheKey))
}

func TestSettingsPrimeWritesCacheOnly(t *testing.T) {
	env := newTestEnv(t)
	cache := env.settingsCache(nil)
	ctx := context.Background()

	settings := models.DefaultSettings()
	settings.SchoolName = "Primed"
	require.NoError(t, cache.Prime(ctx, settings))

	current, err := cache.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "Primed", current.SchoolName)

	var durable models.AppSettings
	err = env.store.Get(ctx, repository.CollectionSettings, SettingsRecordID, &durable)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/counsel-vault/internal/models"
)

func TestBackupRepositoryListsMostRecentFirst(t *testing.T) {
	repo := NewBackupRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		taken := base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, repo.Save(ctx, &models.BackupEntry{
			Stamp:    taken.Format("20060102T150405Z"),
			Kind:     models.BackupKindAuto,
			TakenAt:  taken,
			Document: datatypes.JSON(`{"students":[]}`),
		}))
	}
	require.NoError(t, repo.Save(ctx, &models.BackupEntry{
		Stamp:    "pre-restore",
		Kind:     models.BackupKindPreRestore,
		TakenAt:  base,
		Document: datatypes.JSON(`{}`),
	}))

	entries, err := repo.List(ctx, models.BackupKindAuto)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "20260103T000000Z", entries[0].Stamp)
	require.Empty(t, entries[0].Document, "listing omits documents")

	entry, err := repo.Get(ctx, "20260101T000000Z")
	require.NoError(t, err)
	require.JSONEq(t, `{"students":[]}`, string(entry.Document))

	require.NoError(t, repo.Delete(ctx, "20260101T000000Z", "20260102T000000Z"))
	_, err = repo.Get(ctx, "20260101T000000Z")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMetaRepositoryRoundTrip(t *testing.T) {
	repo := NewMetaRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "flag")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Set(ctx, "flag", "true"))
	require.NoError(t, repo.Set(ctx, "flag", "false"))

	value, err := repo.Get(ctx, "flag")
	require.NoError(t, err)
	require.Equal(t, "false", value)

	require.NoError(t, repo.Delete(ctx, "flag"))
	_, err = repo.Get(ctx, "flag")
	require.ErrorIs(t, err, ErrNotFound)
}

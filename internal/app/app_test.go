package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/config"
	"github.com/noah-isme/counsel-vault/internal/dto"
)

func testConfig() config.Config {
	return config.Config{
		AppName:             "Counsel Vault",
		DatabaseDriver:      "sqlite",
		DatabaseURL:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		SettingsCacheKey:    "vault:settings",
		JWTTTL:              time.Hour,
		BackupEnabled:       true,
		BackupInterval:      time.Hour,
		BackupRetention:     3,
		BackupTimeout:       time.Minute,
		SeedAdminEmail:      "admin@school.local",
		SeedAdminPassword:   "admin123",
		SeedTeacherEmail:    "teacher@school.local",
		SeedTeacherPassword: "teacher123",
	}
}

func TestOpenWiresEmbeddedTiers(t *testing.T) {
	vault, err := Open(testConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = vault.Close() })

	ctx := context.Background()
	require.NotEmpty(t, vault.Config.JWTSecret, "a missing secret is replaced")
	require.NoError(t, vault.Cache.Ping(ctx).Err())
	require.NoError(t, vault.EnsureDefaults(ctx))

	resp, err := vault.Auth.Login(ctx, dto.LoginRequest{Email: "teacher@school.local", Password: "teacher123"})
	require.NoError(t, err)
	require.True(t, vault.Auth.Active(resp.SessionID))

	enabled, err := vault.Backups.Enabled(ctx)
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestCloseIsIdempotent(t *testing.T) {
	vault, err := Open(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, vault.Close())
	require.NoError(t, vault.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseDriver = "oracle"

	_, err := Open(cfg, zerolog.Nop())
	require.Error(t, err)
}

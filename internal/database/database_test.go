package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/models"
)

func TestOpenDurableMigratesTables(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := OpenDurable("sqlite", dsn)
	require.NoError(t, err)

	require.True(t, db.Migrator().HasTable(&models.Record{}))
	require.True(t, db.Migrator().HasTable(&models.MetaEntry{}))
	require.True(t, db.Migrator().HasTable(&models.BackupEntry{}))
}

func TestOpenDurableRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDurable("mysql", "root@/vault")
	require.Error(t, err)

	_, err = OpenDurable("sqlite", "")
	require.Error(t, err)
}

func TestEmbeddedRedisRoundTrip(t *testing.T) {
	embedded, err := StartEmbeddedRedis()
	require.NoError(t, err)
	defer embedded.Close()

	ctx := context.Background()
	require.NoError(t, embedded.Client.Set(ctx, "k", "v", 0).Err())
	value, err := embedded.Client.Get(ctx, "k").Result()
	require.NoError(t, err)
	require.Equal(t, "v", value)
}

func TestConnectRedisValidatesURL(t *testing.T) {
	_, err := ConnectRedis("")
	require.Error(t, err)

	_, err = ConnectRedis("://bad")
	require.Error(t, err)
}

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationNames_SortedAndEmbedded(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "0001_users.sql", names[0])
}

func TestRunMigrations_NilPoolSkips(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestUnconfiguredClientsReportErrors(t *testing.T) {
	var pg *Postgres
	var rd *Redis

	require.Error(t, pg.Ping(context.Background()))
	require.Error(t, rd.Ping(context.Background()))
	require.Nil(t, rd.Handle())
	require.Nil(t, pg.PoolHandle())
}

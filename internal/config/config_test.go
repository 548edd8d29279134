package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	require.ErrorIs(t, err, ErrMissingSecret)
	require.Nil(t, cfg)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "unit-test-secret")
	t.Setenv("AUTH_TOKEN_TTL_MINUTES", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "unit-test-secret", cfg.Auth.JWTSecret)
	require.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL())
	require.Equal(t, time.Minute, cfg.Auth.PrincipalCacheTTL())
	require.Equal(t, 0, cfg.Redis.DB)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_TOKEN_TTL_MINUTES", "5")
	t.Setenv("AUTH_PRINCIPAL_CACHE_TTL_SECONDS", "0")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL())
	require.Zero(t, cfg.Auth.PrincipalCacheTTL())
	require.False(t, cfg.Postgres.RunMigrations)
	require.Equal(t, 3*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

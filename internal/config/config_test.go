package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-gateway/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("missing secret fails fast", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "")
		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrMissingSecret)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "unit-test-secret-with-enough-entropy")
		t.Setenv("AUTH_TOKEN_TTL_HOURS", "")
		t.Setenv("RATE_LIMIT_BACKEND", "")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
		require.Equal(t, 2*time.Second, cfg.Auth.LookupTimeout())
		require.Equal(t, "none", cfg.RateLimit.Backend)
		require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "unit-test-secret-with-enough-entropy")
		t.Setenv("AUTH_TOKEN_TTL_HOURS", "2")
		t.Setenv("AUTH_LOOKUP_TIMEOUT_MS", "150")
		t.Setenv("RATE_LIMIT_BACKEND", "Redis")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL())
		require.Equal(t, 150*time.Millisecond, cfg.Auth.LookupTimeout())
		require.Equal(t, "redis", cfg.RateLimit.Backend)
	})

	t.Run("invalid redis db", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "unit-test-secret-with-enough-entropy")
		t.Setenv("REDIS_DB", "one")
		_, err := config.Load()
		require.Error(t, err)
	})
}

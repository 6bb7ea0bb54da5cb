package persistence_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-gateway/internal/config"
	"github.com/spec-kit/crm-gateway/internal/persistence"
)

func TestPostgres_WithoutDSN(t *testing.T) {
	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, pg.PoolHandle())
	require.ErrorIs(t, pg.Ping(ctx), persistence.ErrPostgresNotConfigured)

	require.NoError(t, persistence.RunMigrations(ctx, pg.PoolHandle(), "migrations", zap.NewNop()))
	pg.Close()
}

func TestRedis_Ping(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r := persistence.NewRedis(ctx, config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	defer r.Close()
	require.NotNil(t, r.ClientHandle())
	require.NoError(t, r.Ping(ctx))

	mr.Close()
	require.Error(t, r.Ping(ctx))

	var missing *persistence.Redis
	require.Error(t, missing.Ping(ctx))
	require.Nil(t, missing.ClientHandle())
}

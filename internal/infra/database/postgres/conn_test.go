package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/infra/database/postgres"
	"github.com/wonny/tripsniper/internal/pkg/config"
)

// testConfig skips unless TEST_DATABASE_URL points at a live PostgreSQL.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires PostgreSQL (TEST_DATABASE_URL)")
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Database.URL = url
	return cfg
}

func TestNewPool(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pool.Ping(ctx))
	assert.NoError(t, pool.EnsureSchema(ctx))
	assert.NoError(t, pool.EnsureSchema(ctx), "schema creation is idempotent")
}

func TestPool_Health(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	health := pool.Health(ctx)
	assert.NotNil(t, health)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxConns, int32(0))
	assert.True(t, pool.IsHealthy(ctx))
}

func TestNewPool_InvalidURL(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Database.URL = "postgres://%zz"

	_, err = postgres.NewPool(context.Background(), cfg)
	assert.Error(t, err)
}

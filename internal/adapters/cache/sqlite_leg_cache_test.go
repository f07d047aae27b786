package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidekick-route-service/internal/adapters/repositories"
	"sidekick-route-service/internal/platform/db"
	"sidekick-route-service/internal/ports"
)

func newTestCache(t *testing.T) *SqliteLegCache {
	t.Helper()
	conn, err := db.OpenSqlite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(context.Background(), conn, repositories.SQLite))
	return NewSqliteLegCache(conn)
}

func TestSqliteLegCachePutThenGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	origin := "40.000000,-75.000000"
	err := c.PutMany(ctx, origin, map[string]ports.DistanceResult{
		"40.010000,-75.000000": {DistanceMeters: 1112.5, DurationSeconds: 80.25},
		"40.020000,-75.000000": {DistanceMeters: 2225, DurationSeconds: 160},
	})
	require.NoError(t, err)

	got, err := c.GetMany(ctx, origin, []string{"40.010000,-75.000000", " 40.010000,-75.000000", "", "40.030000,-75.000000"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 1112.5, DurationSeconds: 80.25}, got["40.010000,-75.000000"])
}

func TestSqliteLegCacheOverwrites(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.PutMany(ctx, "o", map[string]ports.DistanceResult{"d": {DistanceMeters: 1, DurationSeconds: 1}}))
	require.NoError(t, c.PutMany(ctx, "o", map[string]ports.DistanceResult{"d": {DistanceMeters: 2, DurationSeconds: 3}}))

	got, err := c.GetMany(ctx, "o", []string{"d"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got["d"].DistanceMeters)
}

func TestSqliteLegCacheValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.GetMany(ctx, "", []string{"d"})
	require.Error(t, err)
	require.Error(t, c.PutMany(ctx, "o", map[string]ports.DistanceResult{" ": {}}))

	got, err := c.GetMany(ctx, "o", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUniqueKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueKeys([]string{" a", "b", "a", ""}))
}

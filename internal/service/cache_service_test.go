package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, svc.InvalidateStats(context.Background()))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.InvalidateStats(context.Background()))
}

func TestCacheServiceRoundTrip(t *testing.T) {
	metrics := NewMetricsService()
	svc := newRedisCache(t, metrics)
	ctx := context.Background()

	var dest map[string]int
	hit, err := svc.Get(ctx, statsKey(popularClassesKind, 4), &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, statsKey(popularClassesKind, 4), map[string]int{"seats": 4}, 0))
	hit, err = svc.Get(ctx, statsKey(popularClassesKind, 4), &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, dest["seats"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceInvalidateStatsKeepsOtherKeys(t *testing.T) {
	svc := newRedisCache(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, statsKey(popularClassesKind, 5), []int{1}, 0))
	require.NoError(t, svc.Set(ctx, statsKey(popularInstructorsKind, 5), []int{2}, 0))
	require.NoError(t, svc.Set(ctx, "session:abc", "keep", 0))

	require.NoError(t, svc.InvalidateStats(ctx))

	var ranking []int
	hit, err := svc.Get(ctx, statsKey(popularClassesKind, 5), &ranking)
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = svc.Get(ctx, statsKey(popularInstructorsKind, 5), &ranking)
	require.NoError(t, err)
	assert.False(t, hit)

	var kept string
	hit, err = svc.Get(ctx, "session:abc", &kept)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "keep", kept)
}

func TestStatsKey(t *testing.T) {
	assert.Equal(t, "stats:popular_classes:10", statsKey(popularClassesKind, 10))
	assert.Equal(t, "stats:popular_instructors:3", statsKey(popularInstructorsKind, 3))
}

package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires Redis running on localhost:6379
const testRedisAddr = "localhost:6379"

func setupWindowCache(t *testing.T) (*RedisWindowCache, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisWindowCache(client, time.Minute), client
}

func TestWindowCacheRoundTrip(t *testing.T) {
	cache, client := setupWindowCache(t)
	ctx := context.Background()
	venueID := uuid.New()
	t.Cleanup(func() { client.Del(ctx, windowCachePrefix+venueID.String()) })

	_, ok, err := cache.GetWindows(ctx, venueID)
	require.NoError(t, err)
	assert.False(t, ok)

	windows := []AvailabilityWindow{
		{DayOfWeek: 0, OpeningTime: "09:00", ClosingTime: "12:00", RepeatsWeekly: true},
		{DayOfWeek: 2, OpeningTime: "18:00", ClosingTime: "22:00", SpecificDate: "2024-01-03"},
	}
	require.NoError(t, cache.SetWindows(ctx, venueID, windows))

	got, ok, err := cache.GetWindows(ctx, venueID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, windows, got)

	ttl, err := client.TTL(ctx, windowCachePrefix+venueID.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.InvalidateWindows(ctx, venueID))
	_, ok, err = cache.GetWindows(ctx, venueID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWindowCacheCorruptEntryIsMiss(t *testing.T) {
	cache, client := setupWindowCache(t)
	ctx := context.Background()
	venueID := uuid.New()
	key := windowCachePrefix + venueID.String()
	t.Cleanup(func() { client.Del(ctx, key) })

	require.NoError(t, client.Set(ctx, key, "{not json", time.Minute).Err())

	_, ok, err := cache.GetWindows(ctx, venueID)
	require.NoError(t, err)
	assert.False(t, ok)
}

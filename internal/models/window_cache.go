package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const windowCachePrefix = "venue:windows:"

// RedisWindowCache caches a venue's availability windows. Bookings are never
// cached; they are always fetched fresh.
type RedisWindowCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisWindowCache(client *redis.Client, ttl time.Duration) *RedisWindowCache {
	return &RedisWindowCache{client: client, ttl: ttl}
}

func (c *RedisWindowCache) GetWindows(ctx context.Context, venueID uuid.UUID) ([]AvailabilityWindow, bool, error) {
	data, err := c.client.Get(ctx, windowCachePrefix+venueID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("window cache get: %w", err)
	}

	var windows []AvailabilityWindow
	if err := json.Unmarshal(data, &windows); err != nil {
		// a corrupt entry is a miss
		return nil, false, nil
	}
	return windows, true, nil
}

func (c *RedisWindowCache) SetWindows(ctx context.Context, venueID uuid.UUID, windows []AvailabilityWindow) error {
	data, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("window cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, windowCachePrefix+venueID.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("window cache set: %w", err)
	}
	return nil
}

func (c *RedisWindowCache) InvalidateWindows(ctx context.Context, venueID uuid.UUID) error {
	return c.client.Del(ctx, windowCachePrefix+venueID.String()).Err()
}

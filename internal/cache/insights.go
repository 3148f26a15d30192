package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finapp/advisor-engine/internal/models"
)

// InsightCache caches computed insights in Redis keyed by session id. Insight
// computation is deterministic, so a cache entry never goes stale within a
// catalog version; entries still carry a TTL to bound memory.
type InsightCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewInsightCache connects to Redis and verifies connectivity
func NewInsightCache(address, password string, db int, ttl time.Duration) (*InsightCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &InsightCache{client: client, ttl: ttl}, nil
}

// Get returns the cached insight for a session, or nil on a miss
func (c *InsightCache) Get(ctx context.Context, sessionID string) (*models.Insight, error) {
	data, err := c.client.Get(ctx, insightKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read insight cache: %w", err)
	}

	var insight models.Insight
	if err := json.Unmarshal(data, &insight); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached insight: %w", err)
	}
	return &insight, nil
}

// Set stores an insight with the configured TTL
func (c *InsightCache) Set(ctx context.Context, insight *models.Insight) error {
	data, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("failed to marshal insight: %w", err)
	}

	if err := c.client.Set(ctx, insightKey(insight.SessionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write insight cache: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity
func (c *InsightCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *InsightCache) Close() error {
	return c.client.Close()
}

func insightKey(sessionID string) string {
	return "insight:" + sessionID
}

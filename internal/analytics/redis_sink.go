package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends events to a Redis stream for downstream consumers.
type RedisSink struct {
	client *redis.Client
	stream string
}

// NewRedisSink connects to Redis and verifies connectivity
func NewRedisSink(address, password string, db int, stream string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if stream == "" {
		stream = "advisor:events"
	}

	return &RedisSink{client: client, stream: stream}, nil
}

// Write appends one event to the stream
func (s *RedisSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"type":       e.Type,
			"session_id": e.SessionID,
			"payload":    payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// NopSink discards events; used when no analytics backend is configured.
type NopSink struct{}

// Write discards the event
func (NopSink) Write(context.Context, Event) error { return nil }

// Close is a no-op
func (NopSink) Close() error { return nil }

// Package messaging provides the Redis Streams job queues: a primary
// classification stream, a retry stream for transient failures, a
// routing stream for follow-up jobs, and a dead-letter stream.
package messaging

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Logical queues. All hold the same JSON job envelope.
const (
	StreamClassify = "triage:classify"
	StreamRetry    = "triage:retry"
	StreamRoute    = "triage:route"
	StreamDLQ      = "triage:dlq"
)

// RedisStream wraps stream operations for one consumer group.
type RedisStream struct {
	client *redis.Client
	group  string
}

// NewRedisStream creates a RedisStream bound to a consumer group.
func NewRedisStream(client *redis.Client, group string) *RedisStream {
	return &RedisStream{client: client, group: group}
}

// CreateGroup creates the consumer group if it does not exist.
func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

// Publish appends a JSON-marshaled payload to the stream.
func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": jsonData},
	}).Result()
}

// Ack acknowledges a delivered message.
func (s *RedisStream) Ack(ctx context.Context, stream, id string) error {
	return s.client.XAck(ctx, stream, s.group, id).Err()
}

// Pending returns the number of delivered-but-unacknowledged messages.
func (s *RedisStream) Pending(ctx context.Context, stream string) (int64, error) {
	info, err := s.client.XPending(ctx, stream, s.group).Result()
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

// Depth returns the total number of entries in the stream.
func (s *RedisStream) Depth(ctx context.Context, stream string) (int64, error) {
	return s.client.XLen(ctx, stream).Result()
}

// Client exposes the underlying redis client to the consumer.
func (s *RedisStream) Client() *redis.Client { return s.client }

// Group returns the consumer group name.
func (s *RedisStream) Group() string { return s.group }

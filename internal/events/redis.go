package events

import (
	"context"

	"newsletter-gate/internal/common/errors"
)

// RedisClient is the part of the Redis client used for pub/sub
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisPublisher publishes each event as JSON on one pub/sub channel
type RedisPublisher struct {
	client  RedisClient
	channel string
}

func NewRedisPublisher(client RedisClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = "newslettergate:events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if err := p.client.Publish(ctx, p.channel, event); err != nil {
		return errors.ConnectionError("failed to publish event to Redis", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the application
func (p *RedisPublisher) Close() error { return nil }

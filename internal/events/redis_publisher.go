package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher mirrors the feed onto Redis pub/sub so sibling processes
// (or a future multi-instance dashboard) can follow along.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

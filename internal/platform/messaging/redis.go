package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-redis/redis"
)

// RedisPublisher fans payloads out over Redis pub/sub. Channels are named
// "<prefix>.<topic>".
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisPublisher(addr string, prefix string, logger *slog.Logger) (*RedisPublisher, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisPublisher{
		client: client,
		prefix: strings.Trim(strings.TrimSpace(prefix), "."),
		logger: logger,
	}, nil
}

func (p *RedisPublisher) Channel(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

func (p *RedisPublisher) PublishRaw(ctx context.Context, topic string, payload []byte) error {
	channel := p.Channel(topic)
	if err := p.client.WithContext(ctx).Publish(channel, payload).Err(); err != nil {
		p.logger.Error("redis publish failed",
			"event", "redis_publish_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"channel", channel,
			"error", err.Error(),
		)
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	p.logger.Debug("redis message published",
		"event", "redis_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"channel", channel,
	)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

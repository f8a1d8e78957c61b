package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/config"
)

const redisPublishTimeout = 2 * time.Second

// RedisPublisher publishes decisions as JSON on a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewRedisClient creates a client from the Redis settings
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisPublisher creates a RedisPublisher on channel
func NewRedisPublisher(client *redis.Client, channel string, logger *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Publish implements Publisher. Failures are logged and otherwise ignored.
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to encode decision message")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisPublishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.WithFields(logrus.Fields{
			"channel": p.channel,
			"error":   err.Error(),
		}).Warn("Failed to publish decision to Redis")
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/neekaru/opcua-gateway/internal/monitor"
	backend "github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel change events are published on.
const DefaultChannel = "gateway:speed_changes"

// RedisPublisher publishes change events as JSON on a redis channel.
type RedisPublisher struct {
	client     *backend.Client
	channel    string
	dispatcher *Dispatcher
	logger     *log.Logger
}

// NewRedisPublisher connects lazily to the redis server at address.
func NewRedisPublisher(address, password string, db int, channel string, dispatcher *Dispatcher, logger *log.Logger) *RedisPublisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisPublisherFromClient(rdb, channel, dispatcher, logger)
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(client *backend.Client, channel string, dispatcher *Dispatcher, logger *log.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:     client,
		channel:    channel,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Channel returns the channel events are published on.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Ping checks that the server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// OnChange implements monitor.Notifier. Publishing happens on the dispatcher.
func (p *RedisPublisher) OnChange(_ context.Context, c monitor.Change) {
	p.dispatcher.Submit("redis publish", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.Publish(ctx, c); err != nil {
			p.logger.Printf("Failed to publish change to redis: %v", err)
		}
	})
}

// Publish sends c to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, c monitor.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// Close closes the redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the pub/sub surface the event layer publishes through.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
	Close() error
}

// Message is one delivery received from a subscribed channel.
type Message struct {
	Channel string
	Payload []byte
	Time    time.Time
}

type redisClient struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(addr, password string, db int) (RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisClient{
		client: client,
	}, nil
}

// Publish serializes the message to JSON and publishes it on the channel.
func (r *redisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens the channel and forwards deliveries until ctx is done.
func (r *redisClient) Subscribe(ctx context.Context, channel string) (<-chan Message, error) {
	pubsub := r.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	messageCh := make(chan Message)
	go func() {
		defer close(messageCh)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				messageCh <- Message{
					Channel: msg.Channel,
					Payload: []byte(msg.Payload),
					Time:    time.Now(),
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return messageCh, nil
}

// Close shuts down the underlying client.
func (r *redisClient) Close() error {
	return r.client.Close()
}

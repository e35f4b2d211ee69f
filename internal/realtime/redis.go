package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"furnishop/internal/chat"
	"furnishop/internal/config"
	"furnishop/internal/lib/sl"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChangeEvent is what travels over the Redis channel between instances.
type ChangeEvent struct {
	Origin    string     `json:"origin"`
	Topic     chat.Topic `json:"topic"`
	Timestamp time.Time  `json:"timestamp"`
}

// RedisRelay publishes local chat changes to Redis and replays changes made
// by other instances into the local broker.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	broker  *chat.Broker
	log     *slog.Logger
}

func NewRedisRelay(conf *config.Config, broker *chat.Broker, log *slog.Logger) (*RedisRelay, error) {
	if !conf.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Address,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRelay(client, conf.Redis.Channel, broker, log), nil
}

func newRelay(client *redis.Client, channel string, broker *chat.Broker, log *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		broker:  broker,
		log:     log.With(sl.Module("realtime.redis")),
	}
}

// Publish implements chat.Relay.
func (r *RedisRelay) Publish(ctx context.Context, topic chat.Topic) error {
	data, err := json.Marshal(ChangeEvent{
		Origin:    r.origin,
		Topic:     topic,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run consumes the channel until ctx is done. Should be called in a goroutine.
func (r *RedisRelay) Run(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	r.log.Info("relay subscribed", slog.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.dispatch(msg.Payload)
		}
	}
}

func (r *RedisRelay) dispatch(payload string) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.log.Warn("decode change event", sl.Err(err))
		return
	}
	if event.Origin == r.origin || event.Topic.SessionID == "" {
		return
	}
	r.broker.Publish(event.Topic)
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}

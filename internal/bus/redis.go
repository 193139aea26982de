package bus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/SAHIL7163/Talksy-backend/internal/metrics"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

const (
	topicPrefix  = "chat:"
	topicPattern = "chat:*"
)

// RedisBus carries envelopes over Redis Pub/Sub.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(ctx context.Context, redisURL string, logger zerolog.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBus{
		client: client,
		logger: logger.With().Str("component", "bus").Logger(),
	}, nil
}

// Close closes the Redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// Ping checks the Redis connection.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Topic returns the bus topic for a room.
func Topic(roomID string) string {
	return topicPrefix + roomID
}

// Publish serializes the envelope and publishes it to chat:{roomID}.
func (b *RedisBus) Publish(ctx context.Context, roomID string, env models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, Topic(roomID), data).Err(); err != nil {
		return err
	}

	metrics.EventsPublished.WithLabelValues(string(env.Type)).Inc()
	return nil
}

// Subscribe holds one PSubscribe(chat:*) for the life of ctx. The wildcard
// avoids subscribe/unsubscribe churn as rooms come and go; irrelevant rooms
// are filtered cheaply by the local broadcaster.
func (b *RedisBus) Subscribe(ctx context.Context, h Handler) error {
	sub := b.client.PSubscribe(ctx, topicPattern)

	// Confirm the subscription is live before returning control.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.dispatch(msg, h)
			}
		}
	}()

	return nil
}

func (b *RedisBus) dispatch(msg *redis.Message, h Handler) {
	roomID := strings.TrimPrefix(msg.Channel, topicPrefix)

	var env models.Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Type == "" {
		metrics.EventsMalformed.Inc()
		b.logger.Warn().
			Str("topic", msg.Channel).
			Err(err).
			Msg("dropping malformed bus payload")
		return
	}

	metrics.EventsReceived.Inc()
	h(roomID, env)
}

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"splitpot/internal/core/ports"
)

// RedisBus is the multi-process transport: PUBLISH/SUBSCRIBE on one named
// channel. The wire payload is a JSON array of id strings.
type RedisBus struct {
	log     zerolog.Logger
	client  *redis.Client
	channel string
	buffer  int
}

var _ ports.EventBus = (*RedisBus)(nil)

// NewRedisBus connects to redis and verifies the connection.
func NewRedisBus(ctx context.Context, addr, channel string, baseLogger *zerolog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log := baseLogger.With().Str("component", "redis_bus").Str("channel", channel).Logger()
	log.Info().Msg("Connected to redis")
	return &RedisBus{log: log, client: client, channel: channel, buffer: 256}, nil
}

func (b *RedisBus) Publish(ctx context.Context, ids []uuid.UUID) error {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	payload, err := json.Marshal(strs)
	if err != nil {
		return fmt.Errorf("encode event ids: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe opens the pub/sub channel and decodes incoming payloads onto a
// uuid channel. The returned channel closes when the subscription dies,
// which the worker treats as a fatal transport failure.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan uuid.UUID, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	// Force the subscription to be established before we report success.
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	out := make(chan uuid.UUID, b.buffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var strs []string
			if err := json.Unmarshal([]byte(msg.Payload), &strs); err != nil {
				b.log.Error().Err(err).Msg("Discarding undecodable bus payload")
				continue
			}
			for _, s := range strs {
				id, err := uuid.Parse(s)
				if err != nil {
					b.log.Error().Err(err).Str("raw", s).Msg("Discarding malformed event id")
					continue
				}
				select {
				case out <- id:
				case <-ctx.Done():
					_ = sub.Close()
					return
				}
			}
		}
	}()
	return out, nil
}

// Close tears down the redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// Package redis fans core events out of process through Redis: pub/sub for
// ephemeral delivery, streams for durable replay by external consumers.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/syntharb/syntharb/internal/domain"
)

// streamMaxLen caps stream growth, enforced approximately via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// Config holds connection parameters for the Redis-backed signal bus.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// SignalBus implements domain.SignalBus on Redis. Events are wrapped in a
// kind-tagged JSON envelope so consumers can route on kind without decoding
// the full payload.
type SignalBus struct {
	rdb *redis.Client
}

// New connects to Redis, verifies connectivity with a ping, and returns the
// bus.
func New(ctx context.Context, cfg Config) (*SignalBus, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &SignalBus{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (sb *SignalBus) Close() error {
	return sb.rdb.Close()
}

// envelope is the wire form of a mirrored event.
type envelope struct {
	Kind    domain.EventKind `json:"kind"`
	Payload domain.Event     `json:"payload"`
}

func marshalEnvelope(ev domain.Event) ([]byte, error) {
	data, err := json.Marshal(envelope{Kind: ev.Kind(), Payload: ev})
	if err != nil {
		return nil, fmt.Errorf("redis: marshal %s event: %w", ev.Kind(), err)
	}
	return data, nil
}

// PublishEvent sends the enveloped event to a pub/sub channel.
func (sb *SignalBus) PublishEvent(ctx context.Context, channel string, ev domain.Event) error {
	payload, err := marshalEnvelope(ev)
	if err != nil {
		return err
	}
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// AppendEvent appends the enveloped event to a stream via XADD, trimming the
// stream to roughly streamMaxLen entries.
func (sb *SignalBus) AppendEvent(ctx context.Context, stream string, ev domain.Event) error {
	payload, err := marshalEnvelope(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := sb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)

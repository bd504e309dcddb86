package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// ViewChannelPrefix prefixes every pub/sub channel carrying a view update.
	ViewChannelPrefix = "pub:view:"

	// latestPrefix keys the last payload published per channel.
	latestPrefix = "view:latest:"

	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer is the Redis side of the service: a TTL'd JSON cache for market
// data and the publisher for dashboard view updates. Every call goes
// through the circuit breaker.
type Writer struct {
	client *goredis.Client
	cb     *CircuitBreaker
}

// Client returns the underlying Redis client for health checks and pub/sub.
func (w *Writer) Client() *goredis.Client { return w.client }

// Breaker returns the circuit breaker guarding this writer.
func (w *Writer) Breaker() *CircuitBreaker { return w.cb }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig, cb *CircuitBreaker) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cb), nil
}

// NewWithClient wraps an existing client. A nil breaker gets the defaults.
func NewWithClient(client *goredis.Client, cb *CircuitBreaker) *Writer {
	if cb == nil {
		cb = NewCircuitBreaker(5, 10*time.Second)
	}
	return &Writer{client: client, cb: cb}
}

// GetJSON loads key into dst. found is false on a cache miss.
func (w *Writer) GetJSON(ctx context.Context, key string, dst any) (found bool, err error) {
	var data []byte
	err = w.cb.Execute(func() error {
		b, err := w.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("redis get %s: unmarshal: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key with ttl.
func (w *Writer) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis set %s: marshal: %w", key, err)
	}
	return w.cb.Execute(func() error {
		return w.client.Set(ctx, key, data, ttl).Err()
	})
}

// Publish stores payload as the channel's latest value and publishes it on
// pub:view:<channel>, in one pipeline.
func (w *Writer) Publish(ctx context.Context, channel string, payload []byte) error {
	return w.cb.Execute(func() error {
		pipe := w.client.Pipeline()
		pipe.Set(ctx, latestPrefix+channel, payload, defaultLatestTTL)
		pipe.Publish(ctx, ViewChannelPrefix+channel, payload)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("[redis] publish pipeline error (%s): %v", channel, err)
			return err
		}
		return nil
	})
}

// LatestViews returns the last published payload of every channel still
// within its TTL, keyed by channel name.
func (w *Writer) LatestViews(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := w.cb.Execute(func() error {
		iter := w.client.Scan(ctx, 0, latestPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			b, err := w.client.Get(ctx, key).Bytes()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			out[strings.TrimPrefix(key, latestPrefix)] = b
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the Redis connection.
func (w *Writer) Close() error {
	return w.client.Close()
}

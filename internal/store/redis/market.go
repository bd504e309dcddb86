package redis

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"crypto-analyst/internal/metrics"
	"crypto-analyst/internal/model"
)

// CachedMarket decorates a MarketSource with a short-TTL Redis cache.
// Cache errors never fail a call; they fall through to the upstream.
type CachedMarket struct {
	next    model.MarketSource
	store   *Writer
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewCachedMarket wraps next. A ttl <= 0 disables caching.
func NewCachedMarket(next model.MarketSource, store *Writer, ttl time.Duration, m *metrics.Metrics) *CachedMarket {
	return &CachedMarket{next: next, store: store, ttl: ttl, metrics: m}
}

func klinesKey(symbol, interval string, limit int) string {
	return "cache:klines:" + symbol + ":" + interval + ":" + strconv.Itoa(limit)
}

func tickerKey(symbol string) string {
	return "cache:ticker24h:" + symbol
}

// Klines implements model.MarketSource.
func (c *CachedMarket) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if !c.enabled() {
		return c.next.Klines(ctx, symbol, interval, limit)
	}
	key := klinesKey(symbol, interval, limit)

	var cached []model.Candle
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	candles, err := c.next.Klines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, candles)
	return candles, nil
}

// Ticker24h implements model.MarketSource.
func (c *CachedMarket) Ticker24h(ctx context.Context, symbol string) (model.Ticker, error) {
	if !c.enabled() {
		return c.next.Ticker24h(ctx, symbol)
	}
	key := tickerKey(symbol)

	var cached model.Ticker
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	t, err := c.next.Ticker24h(ctx, symbol)
	if err != nil {
		return model.Ticker{}, err
	}
	c.fill(ctx, key, t)
	return t, nil
}

func (c *CachedMarket) enabled() bool {
	return c.store != nil && c.ttl > 0
}

func (c *CachedMarket) lookup(ctx context.Context, key string, dst any) bool {
	found, err := c.store.GetJSON(ctx, key, dst)
	switch {
	case errors.Is(err, ErrCircuitOpen):
		c.metrics.IncCache("bypass")
		return false
	case err != nil:
		c.metrics.IncCache("error")
		log.Printf("[redis] cache get %s: %v", key, err)
		return false
	case found:
		c.metrics.IncCache("hit")
		return true
	default:
		c.metrics.IncCache("miss")
		return false
	}
}

func (c *CachedMarket) fill(ctx context.Context, key string, v any) {
	if err := c.store.SetJSON(ctx, key, v, c.ttl); err != nil && !errors.Is(err, ErrCircuitOpen) {
		log.Printf("[redis] cache set %s: %v", key, err)
	}
}

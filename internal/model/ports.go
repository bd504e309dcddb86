package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the dashboard pipelines from the concrete
// exchange, LLM, feed and pub/sub implementations.

// MarketSource fetches market data for an exchange symbol.
type MarketSource interface {
	// Klines returns up to limit candles, oldest first.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// Ticker24h returns the rolling 24h ticker.
	Ticker24h(ctx context.Context, symbol string) (Ticker, error)
}

// AnalysisClient asks the LLM for a recommendation. The returned text is
// opaque; shape validation belongs to the recommendation normalizer.
type AnalysisClient interface {
	Analyze(ctx context.Context, pair Pair, tech TechnicalAnalysis) (string, error)
}

// FeedSource fetches the raw whale-alert feed items.
type FeedSource interface {
	Fetch(ctx context.Context) ([]FeedItem, error)
}

// Publisher delivers an encoded view update on a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

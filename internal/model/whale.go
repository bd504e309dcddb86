package model

import "time"

// WhaleAlert is a large on-chain transfer parsed from the whale feed.
// The full list is replaced on every poll.
type WhaleAlert struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Date       string  `json:"date"` // RFC3339, UTC
	Coin       string  `json:"coin"`
	AmountCoin float64 `json:"amountCoin"`
	AmountUSD  float64 `json:"amountUSD"`
	From       string  `json:"from"`
	To         string  `json:"to"`
}

// FeedItem is the subset of an RSS item the whale parser consumes.
type FeedItem struct {
	Title     string
	GUID      string     // empty when the feed omits it
	Published *time.Time // nil when absent or unparseable
}

// Package feed fetches the Whale Alert RSS feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"crypto-analyst/internal/metrics"
	"crypto-analyst/internal/model"
)

const (
	DefaultURL = "https://feeds.whale-alert.io/rss.xml"

	serviceName = "feed"
)

// Client implements model.FeedSource.
type Client struct {
	url     string
	http    *http.Client
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
}

// New creates a feed client for url (DefaultURL when empty).
func New(url string, timeout time.Duration, m *metrics.Metrics, h *metrics.HealthStatus) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
		health:  h,
	}
}

// Fetch downloads and parses the feed. Items keep feed order.
func (c *Client) Fetch(ctx context.Context) (items []model.FeedItem, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(serviceName, start, err)
		c.health.RecordUpstream(serviceName, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &model.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: resp.Status}
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("feed: parse: %w", err)
	}

	items = make([]model.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		items = append(items, model.FeedItem{
			Title:     it.Title,
			GUID:      it.GUID,
			Published: it.PublishedParsed,
		})
	}
	return items, nil
}

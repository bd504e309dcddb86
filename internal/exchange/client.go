// Package exchange is a Binance spot REST client for klines and 24h tickers.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"crypto-analyst/internal/metrics"
	"crypto-analyst/internal/model"
)

const (
	// DefaultBaseURL is the public spot REST root.
	DefaultBaseURL = "https://api.binance.com/api/v3"

	DefaultInterval = "4h"
	DefaultLimit    = 250

	// MaxLimit is the exchange's per-request kline cap.
	MaxLimit = 1000

	serviceName = "exchange"
)

// Client implements model.MarketSource over fasthttp.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds requests whose context has no deadline.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithMetrics records request latency and last outcome.
func WithMetrics(m *metrics.Metrics, h *metrics.HealthStatus) Option {
	return func(c *Client) {
		c.metrics = m
		c.health = h
	}
}

// New returns a client rooted at baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 15 * time.Second,
		http: &fasthttp.Client{
			Name:                "crypto-analyst",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Klines fetches up to limit candles, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if interval == "" {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	args := map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(min(limit, MaxLimit)),
	}

	body, err := c.get(ctx, "/klines", args)
	if err != nil {
		return nil, err
	}
	return parseKlines(body)
}

// Ticker24h fetches the rolling 24h statistics for symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (model.Ticker, error) {
	body, err := c.get(ctx, "/ticker/24hr", map[string]string{"symbol": symbol})
	if err != nil {
		return model.Ticker{}, err
	}
	return parseTicker(body)
}

func (c *Client) get(ctx context.Context, path string, args map[string]string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(serviceName, start, err)
		c.health.RecordUpstream(serviceName, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	q := req.URI().QueryArgs()
	for k, v := range args {
		q.Set(k, v)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("exchange %s: %w", path, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("exchange %s: %w", path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, upstreamError(status, resp.Body())
	}

	// resp is released on return; copy the body out.
	return append([]byte(nil), resp.Body()...), nil
}

// upstreamError builds the error for a non-2xx answer. Binance error bodies
// look like {"code":-1121,"msg":"Invalid symbol."}.
func upstreamError(status int, body []byte) error {
	msg := ""
	if gjson.ValidBytes(body) {
		msg = gjson.GetBytes(body, "msg").String()
	}
	if msg == "" {
		msg = fasthttp.StatusMessage(status)
	}
	return &model.UpstreamError{Service: serviceName, StatusCode: status, Message: msg}
}

func parseKlines(body []byte) ([]model.Candle, error) {
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, fmt.Errorf("exchange: unexpected kline response format")
	}

	rows := doc.Array()
	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		f := row.Array()
		if len(f) < 6 {
			return nil, fmt.Errorf("exchange: kline %d has %d fields, want >= 6", i, len(f))
		}
		c := model.Candle{OpenTime: f[0].Int()}
		for j, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			v, err := decimalField(f[j+1])
			if err != nil {
				return nil, fmt.Errorf("exchange: kline %d field %d: %w", i, j+1, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseTicker(body []byte) (model.Ticker, error) {
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return model.Ticker{}, fmt.Errorf("exchange: unexpected ticker response format")
	}

	var t model.Ticker
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"lastPrice", &t.LastPrice},
		{"quoteVolume", &t.QuoteVolume},
		{"priceChangePercent", &t.PriceChangePercent},
	} {
		v, err := decimalField(doc.Get(f.key))
		if err != nil {
			return model.Ticker{}, fmt.Errorf("exchange: ticker %s: %w", f.key, err)
		}
		*f.dst = v
	}
	return t, nil
}

// decimalField reads an exchange decimal that arrives as a string or a
// JSON number.
func decimalField(r gjson.Result) (float64, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch r.Type {
	case gjson.String:
		d, err = decimal.NewFromString(r.Str)
	case gjson.Number:
		d, err = decimal.NewFromString(r.Raw)
	default:
		return 0, fmt.Errorf("missing or non-numeric value %q", r.Raw)
	}
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

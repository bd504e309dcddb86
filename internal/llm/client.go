// Package llm asks an OpenRouter-compatible chat completion API for a
// trading recommendation. The returned text is handed, unparsed, to the
// recommendation normalizer.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"crypto-analyst/internal/metrics"
	"crypto-analyst/internal/model"
)

const (
	DefaultAPIURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel  = "qwen/qwen-2.5-72b-instruct:free"

	serviceName = "llm"
)

// ErrEmptyResponse is returned when the completion carries no content.
var ErrEmptyResponse = errors.New("llm: empty or unexpected response")

// ErrAPIKey is returned for 401/403 answers.
var ErrAPIKey = errors.New("llm: API key is invalid or missing")

// Config configures a Client.
type Config struct {
	APIURL   string
	APIKey   string
	Model    string
	SiteURL  string // sent as HTTP-Referer
	SiteName string // sent as X-Title
	Timeout  time.Duration
}

// Client implements model.AnalysisClient.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
}

// New creates a client. Empty fields take the package defaults.
func New(cfg Config, m *metrics.Metrics, h *metrics.HealthStatus) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		health:  h,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

// Analyze sends one prompt and returns the raw message content.
func (c *Client) Analyze(ctx context.Context, pair model.Pair, tech model.TechnicalAnalysis) (content string, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(serviceName, start, err)
		c.health.RecordUpstream(serviceName, err)
	}()

	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(pair, tech)},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.SiteName != "" {
		req.Header.Set("X-Title", c.cfg.SiteName)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", upstreamError(resp.StatusCode, raw)
	}

	content = gjson.GetBytes(raw, "choices.0.message.content").String()
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// upstreamError keeps the API's error.message. Auth failures also match
// ErrAPIKey.
func upstreamError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	ue := &model.UpstreamError{Service: serviceName, StatusCode: status, Message: msg}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrAPIKey, ue)
	}
	return ue
}

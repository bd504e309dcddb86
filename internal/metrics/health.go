package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	LastRefreshAt  time.Time `json:"last_refresh_at"`
	LastWhalePoll  time.Time `json:"last_whale_poll"`

	// Last outcome per upstream service ("ok" or the error text)
	Upstreams map[string]string `json:"upstreams"`

	// Liveness probe results
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
		Upstreams: make(map[string]string),
	}
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRefresh(t time.Time) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.LastRefreshAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastWhalePoll(t time.Time) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.LastWhalePoll = t
	h.mu.Unlock()
}

// RecordUpstream stores the outcome of the latest call to service.
// Calls canceled by the caller say nothing about the upstream and are
// not recorded.
func (h *HealthStatus) RecordUpstream(service string, err error) {
	if h == nil || errors.Is(err, context.Canceled) {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = err.Error()
	}
	h.mu.Lock()
	h.Upstreams[service] = outcome
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, interval time.Duration) {
	if rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckRedis(probeCtx, rdb)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
//
// The service is "degraded" when Redis is configured but unreachable or
// when any upstream's last call failed. It answers 503 only when Redis is
// configured and down, since every upstream failure is retryable per refresh.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	var failing []string
	for svc, outcome := range h.Upstreams {
		if outcome != "ok" {
			failing = append(failing, svc)
		}
	}
	sort.Strings(failing)
	if len(failing) > 0 {
		overallStatus = "degraded"
	}
	if h.RedisEnabled && !h.RedisConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	upstreams := make(map[string]string, len(h.Upstreams))
	for k, v := range h.Upstreams {
		upstreams[k] = v
	}

	status := struct {
		Status           string            `json:"status"`
		Uptime           string            `json:"uptime"`
		RedisEnabled     bool              `json:"redis_enabled"`
		RedisConnected   bool              `json:"redis_connected"`
		RedisLatencyMs   float64           `json:"redis_latency_ms"`
		LastRefreshAt    string            `json:"last_refresh_at,omitempty"`
		LastWhalePoll    string            `json:"last_whale_poll,omitempty"`
		Upstreams        map[string]string `json:"upstreams"`
		FailingUpstreams []string          `json:"failing_upstreams,omitempty"`
		LastCheckAt      string            `json:"last_check_at,omitempty"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		RedisEnabled:     h.RedisEnabled,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		LastRefreshAt:    formatTime(h.LastRefreshAt),
		LastWhalePoll:    formatTime(h.LastWhalePoll),
		Upstreams:        upstreams,
		FailingUpstreams: failing,
		LastCheckAt:      formatTime(h.LastCheckAt),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

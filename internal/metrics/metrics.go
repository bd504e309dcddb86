package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the analyst service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Upstream calls (exchange, llm, feed)
	UpstreamDur *prometheus.HistogramVec // labels: service, outcome

	// Dashboard pipelines
	RefreshesTotal        prometheus.Counter
	PipelineFailures      *prometheus.CounterVec // labels: kind
	StaleResultsDiscarded prometheus.Counter
	SnapshotComputeDur    prometheus.Histogram
	CoercedValues         prometheus.Counter
	WhaleItems            *prometheus.CounterVec // labels: result=matched|skipped
	PublishFailures       prometheus.Counter

	// Gateway
	WSClients    prometheus.Gauge
	WSBroadcasts prometheus.Counter
	WSDrops      prometheus.Counter
	WSLag        prometheus.Histogram // view update to broadcast

	// Redis cache + circuit breaker
	CacheRequests            *prometheus.CounterVec // labels: result=hit|miss|error|bypass
	RedisCircuitBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
}

// NewMetrics registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analyst_upstream_request_duration_seconds",
			Help:    "Latency of exchange, LLM and feed requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service", "outcome"}),

		RefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_refreshes_total",
			Help: "Dashboard refreshes started",
		}),
		PipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyst_pipeline_failures_total",
			Help: "Pipeline runs that ended in an error, by error kind",
		}, []string{"kind"}),
		StaleResultsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_stale_results_discarded_total",
			Help: "Pipeline results dropped because a newer selection superseded them",
		}),
		SnapshotComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyst_snapshot_compute_duration_seconds",
			Help:    "Indicator computation latency per snapshot",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}),
		CoercedValues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_llm_coerced_values_total",
			Help: "LLM response values replaced by a neutral fallback",
		}),
		WhaleItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyst_whale_items_total",
			Help: "Whale feed items by parse result",
		}, []string{"result"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_publish_failures_total",
			Help: "View updates that could not be published",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyst_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		WSBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_ws_broadcasts_total",
			Help: "Envelopes broadcast to WebSocket clients",
		}),
		WSDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_ws_drops_total",
			Help: "Messages dropped for slow WebSocket clients",
		}),

		WSLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyst_ws_broadcast_lag_seconds",
			Help:    "Time from a view update to its broadcast",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyst_cache_requests_total",
			Help: "Market cache lookups by result",
		}, []string{"result"}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyst_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.UpstreamDur,
		m.RefreshesTotal,
		m.PipelineFailures,
		m.StaleResultsDiscarded,
		m.SnapshotComputeDur,
		m.CoercedValues,
		m.WhaleItems,
		m.PublishFailures,
		m.WSClients,
		m.WSBroadcasts,
		m.WSDrops,
		m.WSLag,
		m.CacheRequests,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)

	return m
}

// ObserveUpstream records one upstream call started at start.
func (m *Metrics) ObserveUpstream(service string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.UpstreamDur.WithLabelValues(service, Outcome(err)).Observe(time.Since(start).Seconds())
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// IncPipelineFailure counts one failed pipeline run.
func (m *Metrics) IncPipelineFailure(kind string) {
	if m == nil {
		return
	}
	m.PipelineFailures.WithLabelValues(kind).Inc()
}

// IncCache counts one cache lookup.
func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// IncRefresh counts one started dashboard refresh.
func (m *Metrics) IncRefresh() {
	if m == nil {
		return
	}
	m.RefreshesTotal.Inc()
}

// IncStale counts one discarded stale result.
func (m *Metrics) IncStale() {
	if m == nil {
		return
	}
	m.StaleResultsDiscarded.Inc()
}

// ObserveSnapshot records indicator computation time.
func (m *Metrics) ObserveSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotComputeDur.Observe(d.Seconds())
}

// AddCoerced counts LLM values replaced by a fallback.
func (m *Metrics) AddCoerced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CoercedValues.Add(float64(n))
}

// AddWhaleItems counts parsed and skipped feed items from one poll.
func (m *Metrics) AddWhaleItems(matched, skipped int) {
	if m == nil {
		return
	}
	m.WhaleItems.WithLabelValues("matched").Add(float64(matched))
	m.WhaleItems.WithLabelValues("skipped").Add(float64(skipped))
}

// IncPublishFailure counts one view update that was not delivered.
func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

// SetWSClients records the connected client count.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}

// IncBroadcast counts one broadcast envelope.
func (m *Metrics) IncBroadcast() {
	if m == nil {
		return
	}
	m.WSBroadcasts.Inc()
}

// IncWSDrop counts one message dropped for a slow client.
func (m *Metrics) IncWSDrop() {
	if m == nil {
		return
	}
	m.WSDrops.Inc()
}

// ObserveWSLag records the delay between a view update and its broadcast.
func (m *Metrics) ObserveWSLag(d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.WSLag.Observe(d.Seconds())
}

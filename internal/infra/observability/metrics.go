package observability

import (
	"time"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for Lynix, server and client core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	gateRedirects   *prometheus.CounterVec
	callsEnded      *prometheus.CounterVec
	quotaRejections prometheus.Counter
	syncRollbacks   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lynix_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_llm_tokens_total",
				Help: "Total text-generation tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		gateRedirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_gate_redirects_total",
				Help: "Navigation gate redirects by requested and target page.",
			},
			[]string{"from", "to"},
		),
		callsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_calls_ended_total",
				Help: "Simulated calls ended, by final status.",
			},
			[]string{"status"},
		),
		quotaRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lynix_guest_quota_rejections_total",
				Help: "AI prompts short-circuited by the guest quota.",
			},
		),
		syncRollbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lynix_sync_rollbacks_total",
				Help: "Optimistic local changes restored after a remote failure.",
			},
			[]string{"entity"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	if m == nil {
		return
	}
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrGateRedirect counts a navigation redirect.
func (m *Metrics) IncrGateRedirect(from, to domain.Page) {
	if m == nil {
		return
	}
	m.gateRedirects.WithLabelValues(string(from), string(to)).Inc()
}

// IncrCallEnded counts an ended call by its final status.
func (m *Metrics) IncrCallEnded(status domain.CallStatus) {
	if m == nil {
		return
	}
	m.callsEnded.WithLabelValues(string(status)).Inc()
}

// IncrQuotaRejection counts a prompt rejected by the guest quota.
func (m *Metrics) IncrQuotaRejection() {
	if m == nil {
		return
	}
	m.quotaRejections.Inc()
}

// IncrSyncRollback counts an optimistic rollback for an entity.
func (m *Metrics) IncrSyncRollback(entity string) {
	if m == nil {
		return
	}
	m.syncRollbacks.WithLabelValues(entity).Inc()
}

// GetUsageSnapshot returns a snapshot of usage metrics suitable for the
// GET /api/stats endpoint.
func (m *Metrics) GetUsageSnapshot() *domain.UsageStats {
	// Prometheus counters expose cumulative values.
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	errorCount := getCounterValue(m.requestsTotal, "error")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "rejected") + errorCount
	cacheHits := getCounterValue(m.cacheHits, "users")
	cacheMisses := getCounterValue(m.cacheMisses, "users")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.UsageStats{
		TotalRequests:     int64(totalRequests),
		ErrorRate:         errorRate,
		PromptTokens:      int64(promptTokens),
		CompletionTokens:  int64(completionTokens),
		UsersCacheHitRate: cacheHitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

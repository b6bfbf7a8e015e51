package fetchguard

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// reliability layers. All record methods are nil-safe so instrumentation can
// stay unconditional in the hot path. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	circuitBreakerOpen *prometheus.GaugeVec
	circuitOpenTotal   *prometheus.CounterVec

	rateLimitWait *prometheus.HistogramVec

	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	coalescedHits *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, letting tests and embedders isolate metric registration.
func NewMetricsCollectorWithRegistry(reg prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_requests_total",
				Help: "Total number of logical requests, by provider key and final status code",
			},
			[]string{"key", "status_code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetchguard_request_duration_seconds",
				Help:    "Duration of logical requests including pacing, retries and backoff",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fetchguard_requests_in_flight",
				Help: "Number of logical requests currently in flight",
			},
			[]string{"key"},
		),
		retriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"key", "attempt"},
		),
		circuitBreakerOpen: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fetchguard_circuit_breaker_open",
				Help: "Whether the circuit breaker for a provider key is open (1) or closed (0)",
			},
			[]string{"key"},
		),
		circuitOpenTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_circuit_open_rejections_total",
				Help: "Total number of requests fast-failed because the breaker was open",
			},
			[]string{"key"},
		),
		rateLimitWait: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetchguard_rate_limit_wait_seconds",
				Help:    "Pacing delay imposed before dispatching a request",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"key"},
		),
		cacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_cache_hits_total",
				Help: "Total number of responses served from the cache",
			},
			[]string{"key"},
		),
		cacheMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_cache_misses_total",
				Help: "Total number of cache lookups that missed",
			},
			[]string{"key"},
		),
		coalescedHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_coalesced_hits_total",
				Help: "Total number of requests that joined an identical in-flight request",
			},
			[]string{"key"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchguard_errors_total",
				Help: "Total number of failed attempts by failure type",
			},
			[]string{"type", "key"},
		),
		registerer: reg,
	}
}

// RecordRequest records a finished logical request.
func (mc *MetricsCollector) RecordRequest(key string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.requestsTotal.WithLabelValues(key, strconv.Itoa(statusCode)).Inc()
	mc.requestDuration.WithLabelValues(key).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(key string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(key).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(key string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(key).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(key string, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(key, strconv.Itoa(attempt)).Inc()
}

// RecordBreakerOpen sets the open gauge for a key.
func (mc *MetricsCollector) RecordBreakerOpen(key string, open bool) {
	if mc == nil {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	mc.circuitBreakerOpen.WithLabelValues(key).Set(v)
}

// RecordCircuitRejection counts a fast-failed request.
func (mc *MetricsCollector) RecordCircuitRejection(key string) {
	if mc == nil {
		return
	}
	mc.circuitOpenTotal.WithLabelValues(key).Inc()
}

// RecordRateLimitWait observes a pacing delay.
func (mc *MetricsCollector) RecordRateLimitWait(key string, d time.Duration) {
	if mc == nil {
		return
	}
	mc.rateLimitWait.WithLabelValues(key).Observe(d.Seconds())
}

// RecordCacheHit increments the cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(key string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(key).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(key string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(key).Inc()
}

// RecordCoalescedHit counts a request served by joining an in-flight one.
func (mc *MetricsCollector) RecordCoalescedHit(key string) {
	if mc == nil {
		return
	}
	mc.coalescedHits.WithLabelValues(key).Inc()
}

// RecordError increments the error counter by failure type.
func (mc *MetricsCollector) RecordError(errorType, key string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(errorType, key).Inc()
}

// Registerer exposes the registerer the collector was built on.
func (mc *MetricsCollector) Registerer() prometheus.Registerer {
	return mc.registerer
}

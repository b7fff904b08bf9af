package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	HTTPRejectedTotal   CounterVec

	// Intelligence layer
	ChatRequestsTotal      CounterVec
	TrendComputationsTotal CounterVec
	TrendFallbackTotal     CounterVec

	// Data source
	DataSourceQueryDuration HistogramVec
	DataSourceUp            GaugeVec

	// System
	ErrorsTotal CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
)

// NewAppMetrics registers all metrics on collector and returns the set.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests")
	m.HTTPRejectedTotal = collector.RegisterCounter("http_rejected_total", "Requests rejected by middleware", "reason")

	m.ChatRequestsTotal = collector.RegisterCounter("chat_requests_total", "Chat messages answered", "intent")
	m.TrendComputationsTotal = collector.RegisterCounter("trend_computations_total", "Trend snapshots produced", "source")
	m.TrendFallbackTotal = collector.RegisterCounter("trend_fallback_total", "Trend snapshots answered with fallback data", "reason")

	m.DataSourceQueryDuration = collector.RegisterHistogram("data_source_query_duration_seconds", "Data source query duration", DefaultDBDurationBuckets, "source", "outcome")
	m.DataSourceUp = collector.RegisterGauge("data_source_up", "Data source readiness (1=up, 0=down)", "source")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// NewNoopAppMetrics returns an AppMetrics whose instruments discard every
// observation.  Commands that do not expose /metrics use it.
func NewNoopAppMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:       noopCounterVec{},
		HTTPRequestDuration:     noopHistogramVec{},
		HTTPActiveRequests:      noopGaugeVec{},
		HTTPRejectedTotal:       noopCounterVec{},
		ChatRequestsTotal:       noopCounterVec{},
		TrendComputationsTotal:  noopCounterVec{},
		TrendFallbackTotal:      noopCounterVec{},
		DataSourceQueryDuration: noopHistogramVec{},
		DataSourceUp:            noopGaugeVec{},
		ErrorsTotal:             noopCounterVec{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers.  All helpers accept a nil *AppMetrics.
// ─────────────────────────────────────────────────────────────────────────────

// RecordHTTPRequest records one finished request.
func RecordHTTPRequest(metrics *AppMetrics, method, route string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRejection records a request refused by middleware (cors, rate_limit,
// body_too_large).
func RecordRejection(metrics *AppMetrics, reason string) {
	if metrics == nil {
		return
	}
	metrics.HTTPRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordChat records one answered chat message.
func RecordChat(metrics *AppMetrics, intent string) {
	if metrics == nil {
		return
	}
	metrics.ChatRequestsTotal.WithLabelValues(intent).Inc()
}

// RecordTrendComputation records where a trend snapshot came from.  A
// non-empty fallbackReason also counts towards trend_fallback_total.
func RecordTrendComputation(metrics *AppMetrics, source, fallbackReason string) {
	if metrics == nil {
		return
	}
	metrics.TrendComputationsTotal.WithLabelValues(source).Inc()
	if fallbackReason != "" {
		metrics.TrendFallbackTotal.WithLabelValues(fallbackReason).Inc()
	}
}

// RecordDataSourceQuery records the duration of a query timed by timer and
// its outcome.
func RecordDataSourceQuery(metrics *AppMetrics, source string, timer *Timer, err error) {
	if metrics == nil || timer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		metrics.ErrorsTotal.WithLabelValues(source, "query_error").Inc()
	}
	timer.ObserveDuration(metrics.DataSourceQueryDuration.WithLabelValues(source, outcome))
}

// RecordDataSourceUp sets the readiness gauge of a data source.
func RecordDataSourceUp(metrics *AppMetrics, source string, up bool) {
	if metrics == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	metrics.DataSourceUp.WithLabelValues(source).Set(v)
}

// RecordError records an error of errorType raised by component.
func RecordError(metrics *AppMetrics, component, errorType string) {
	if metrics == nil {
		return
	}
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all heatmap-portal metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Downstream service metrics
	DownstreamRequestsTotal   *prometheus.CounterVec
	DownstreamRequestDuration *prometheus.HistogramVec

	// Aggregation metrics
	AggregationsTotal   *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec
	AggregationZonesFailed prometheus.Counter
	AggregationsSuperseded prometheus.Counter

	// Session metrics
	SessionTransitions *prometheus.CounterVec

	// Key-value store metrics
	KVOperations *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.DownstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "downstream_requests_total",
			Help:      "Total number of downstream service requests",
		},
		[]string{"service", "downstream", "operation", "status"},
	)

	m.DownstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "downstream_request_duration_seconds",
			Help:      "Downstream service request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "downstream", "operation"},
	)

	m.AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "heatmap_aggregations_total",
			Help:      "Total number of heatmap aggregation cycles",
		},
		[]string{"service", "scope", "status"},
	)

	m.AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "heatmap_aggregation_duration_seconds",
			Help:      "Heatmap aggregation cycle duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "scope"},
	)

	m.AggregationZonesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "heatmap_aggregation_zones_failed_total",
			Help:        "Total number of zones skipped during all-zones merges",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.AggregationsSuperseded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "heatmap_aggregations_superseded_total",
			Help:        "Total number of aggregation results discarded because a newer request won",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of session state transitions",
		},
		[]string{"service", "transition"},
	)

	m.KVOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kvstore_operations_total",
			Help:      "Total number of key-value store operations",
		},
		[]string{"service", "operation", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DownstreamRequestsTotal,
		m.DownstreamRequestDuration,
		m.AggregationsTotal,
		m.AggregationDuration,
		m.AggregationZonesFailed,
		m.AggregationsSuperseded,
		m.SessionTransitions,
		m.KVOperations,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordDownstreamRequest records a downstream service call
func (m *Metrics) RecordDownstreamRequest(downstream, operation, status string, duration time.Duration) {
	m.DownstreamRequestsTotal.WithLabelValues(m.serviceName, downstream, operation, status).Inc()
	m.DownstreamRequestDuration.WithLabelValues(m.serviceName, downstream, operation).Observe(duration.Seconds())
}

// RecordAggregation records a completed aggregation cycle
func (m *Metrics) RecordAggregation(scope, status string, duration time.Duration) {
	m.AggregationsTotal.WithLabelValues(m.serviceName, scope, status).Inc()
	m.AggregationDuration.WithLabelValues(m.serviceName, scope).Observe(duration.Seconds())
}

// RecordAggregationZoneFailures records zones skipped during a merge
func (m *Metrics) RecordAggregationZoneFailures(count int) {
	m.AggregationZonesFailed.Add(float64(count))
}

// RecordAggregationSuperseded records a discarded stale aggregation result
func (m *Metrics) RecordAggregationSuperseded() {
	m.AggregationsSuperseded.Inc()
}

// RecordSessionTransition records a session state transition
func (m *Metrics) RecordSessionTransition(transition string) {
	m.SessionTransitions.WithLabelValues(m.serviceName, transition).Inc()
}

// RecordKVOperation records a key-value store operation
func (m *Metrics) RecordKVOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.KVOperations.WithLabelValues(m.serviceName, operation, status).Inc()
}

// SetCircuitBreakerState records the current breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

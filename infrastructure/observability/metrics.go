package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics of the service. Each collector owns
// its registry so tests and multiple wirings never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Link metrics
	LinksCreated  prometheus.Counter
	LinksDeleted  prometheus.Counter
	LinksRejected *prometheus.CounterVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	StoreRetries    *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
}

// NewCollector creates a collector with metrics under the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LinksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Total number of links created, reverse halves included",
		}),
		LinksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_deleted_total",
			Help:      "Total number of link deletions",
		}),
		LinksRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "links_rejected_total",
				Help:      "Link writes rejected by validation",
			},
			[]string{"reason"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of record store operations",
			},
			[]string{"store", "operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Record store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
		StoreRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Record store operations retried after a transient failure",
			},
			[]string{"store", "operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events handed to the event bus",
			},
			[]string{"type", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.LinksCreated,
		c.LinksDeleted,
		c.LinksRejected,
		c.StoreOperations,
		c.StoreDuration,
		c.StoreRetries,
		c.BreakerState,
		c.EventsPublished,
	)
	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// ObserveStoreOperation records one record store call
func (c *Collector) ObserveStoreOperation(store, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(store, operation, status).Inc()
	c.StoreDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// ObserveStoreRetry counts a retried store call
func (c *Collector) ObserveStoreRetry(store, operation string) {
	c.StoreRetries.WithLabelValues(store, operation).Inc()
}

// ObserveBreakerState exports the breaker state as a gauge
func (c *Collector) ObserveBreakerState(name string, state int) {
	c.BreakerState.WithLabelValues(name).Set(float64(state))
}

// ObserveEvent counts one published or failed domain event
func (c *Collector) ObserveEvent(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.EventsPublished.WithLabelValues(eventType, status).Inc()
}

// ObserveLinksCreated counts stored links
func (c *Collector) ObserveLinksCreated(count int) {
	c.LinksCreated.Add(float64(count))
}

// ObserveLinksDeleted counts removed links
func (c *Collector) ObserveLinksDeleted(count int) {
	c.LinksDeleted.Add(float64(count))
}

// ObserveLinkRejected counts a refused link write by reason
func (c *Collector) ObserveLinkRejected(reason string) {
	c.LinksRejected.WithLabelValues(reason).Inc()
}

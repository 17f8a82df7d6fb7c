// Package metric manages the engine's Prometheus metrics. A Registry owns
// a private prometheus.Registry so tests and embedded deployments never
// collide with the global default registry.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages engine metrics on a private Prometheus registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry

	queriesTotal      *prometheus.CounterVec
	mutationsTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	storeErrorsTotal  *prometheus.CounterVec
}

// NewRegistry creates a metrics registry with the engine's core metrics
// and Go runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stixgraph_queries_total",
			Help: "Read queries issued to the triple store, by entity type and operation.",
		}, []string{"entity_type", "operation"}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stixgraph_mutations_total",
			Help: "Mutating queries issued to the triple store, by entity type and operation.",
		}, []string{"entity_type", "operation"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stixgraph_operation_duration_seconds",
			Help:    "End-to-end resolver operation latency, by entity type and operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity_type", "operation"}),
		storeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stixgraph_store_errors_total",
			Help: "Errors surfaced by the triple store driver, by operation.",
		}, []string{"operation"}),
	}

	r.prometheusRegistry.MustRegister(
		r.queriesTotal,
		r.mutationsTotal,
		r.operationDuration,
		r.storeErrorsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry for
// exposition by the hosting process.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// ObserveQuery records a read query against the store.
func (r *Registry) ObserveQuery(entityType, operation string) {
	if r == nil {
		return
	}
	r.queriesTotal.WithLabelValues(entityType, operation).Inc()
}

// ObserveMutation records a mutating query against the store.
func (r *Registry) ObserveMutation(entityType, operation string) {
	if r == nil {
		return
	}
	r.mutationsTotal.WithLabelValues(entityType, operation).Inc()
}

// ObserveDuration records the latency of a complete resolver operation.
func (r *Registry) ObserveDuration(entityType, operation string, start time.Time) {
	if r == nil {
		return
	}
	r.operationDuration.WithLabelValues(entityType, operation).Observe(time.Since(start).Seconds())
}

// ObserveStoreError records a store-reported failure.
func (r *Registry) ObserveStoreError(operation string) {
	if r == nil {
		return
	}
	r.storeErrorsTotal.WithLabelValues(operation).Inc()
}

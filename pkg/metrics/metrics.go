package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	registry *prometheus.Registry

	TasksEnqueued  prometheus.Counter
	TasksDropped   prometheus.Counter
	TasksProcessed *prometheus.CounterVec
	TaskDuration   prometheus.Histogram
	QueueDepth     prometheus.Gauge

	ProviderCalls *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	Renewals      *prometheus.CounterVec
}

// New registers all instruments with a private registry.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TasksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enrichment_tasks_enqueued_total",
			Help: "Total number of enrichment tasks accepted into the queue.",
		}),
		TasksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enrichment_tasks_dropped_total",
			Help: "Total number of tasks dropped because the queue was full.",
		}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_tasks_processed_total",
			Help: "Terminal task outcomes by status.",
		}, []string{"status"}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrichment_task_seconds",
			Help:    "End-to-end task duration from dequeue to terminal outcome.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enrichment_queue_depth",
			Help: "Current number of tasks waiting in the queue.",
		}),

		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_provider_calls_total",
			Help: "AI provider invocations by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by namespace and result.",
		}, []string{"namespace", "result"}),
		Renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_renewals_total",
			Help: "Subscription renewal sweep outcomes.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.TasksEnqueued,
		m.TasksDropped,
		m.TasksProcessed,
		m.TaskDuration,
		m.QueueDepth,
		m.ProviderCalls,
		m.CacheLookups,
		m.Renewals,
	)

	return m
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WorkerHooks returns the metric callbacks wired into the worker pool.
// Centralises the prometheus observation calls so the pipeline stays
// import-free.
func (m *Metrics) WorkerHooks() (
	onProcessed func(status string, elapsed time.Duration),
	onDepth func(depth int),
) {
	onProcessed = func(status string, elapsed time.Duration) {
		m.TasksProcessed.WithLabelValues(status).Inc()
		m.TaskDuration.Observe(elapsed.Seconds())
	}
	onDepth = func(depth int) {
		m.QueueDepth.Set(float64(depth))
	}
	return
}

// QueueHooks returns the metric callbacks wired into the task queue.
func (m *Metrics) QueueHooks() (onEnqueued func(), onDropped func()) {
	onEnqueued = func() { m.TasksEnqueued.Inc() }
	onDropped = func() { m.TasksDropped.Inc() }
	return
}

// ProviderHook records one provider call outcome ("ok", "error",
// "parse_error", "quota").
func (m *Metrics) ProviderHook() func(provider, outcome string) {
	return func(provider, outcome string) {
		m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	}
}

// CacheHook records one cache lookup result ("hit" or "miss").
func (m *Metrics) CacheHook() func(namespace, result string) {
	return func(namespace, result string) {
		m.CacheLookups.WithLabelValues(namespace, result).Inc()
	}
}

// RenewalHook records one renewal sweep outcome ("ok" or "error").
func (m *Metrics) RenewalHook() func(result string) {
	return func(result string) {
		m.Renewals.WithLabelValues(result).Inc()
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	IssuesPublished prometheus.Counter
	PublishReplays  prometheus.Counter
	EmailsSent      prometheus.Counter
	EmailsRetried   prometheus.Counter
	EmailsDiscarded prometheus.Counter
	DeliveryLatency prometheus.Histogram
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IssuesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_issues_published_total",
			Help: "Total number of newsletter issues accepted for delivery.",
		}),
		PublishReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_publish_replays_total",
			Help: "Total number of publish requests answered from the idempotency store.",
		}),
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_emails_sent_total",
			Help: "Total number of successfully delivered emails.",
		}),
		EmailsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_emails_retried_total",
			Help: "Total number of delivery attempts left queued after a transient provider failure.",
		}),
		EmailsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_emails_discarded_total",
			Help: "Total number of delivery tasks discarded on permanent failure.",
		}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsletter_delivery_seconds",
			Help:    "Per-task latency from queue claim to provider ack.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.IssuesPublished,
		m.PublishReplays,
		m.EmailsSent,
		m.EmailsRetried,
		m.EmailsDiscarded,
		m.DeliveryLatency,
	)

	return m
}

// PublishHooks returns the counter callbacks the publish service accepts
// via WithMetricHooks.
func (m *Metrics) PublishHooks() (onPublished, onReplayed func()) {
	onPublished = func() { m.IssuesPublished.Inc() }
	onReplayed = func() { m.PublishReplays.Inc() }
	return
}

// WorkerHooks returns the metric callbacks expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker package stays
// free of metrics imports.
func (m *Metrics) WorkerHooks() (
	onSent func(latency time.Duration),
	onRetried func(),
	onDiscarded func(),
) {
	onSent = func(latency time.Duration) {
		m.EmailsSent.Inc()
		m.DeliveryLatency.Observe(latency.Seconds())
	}
	onRetried = func() {
		m.EmailsRetried.Inc()
	}
	onDiscarded = func() {
		m.EmailsDiscarded.Inc()
	}
	return
}

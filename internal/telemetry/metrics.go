package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "craftdesk",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// DispatchAttemptsTotal counts notification dispatch attempts by channel and outcome.
var DispatchAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "craftdesk",
		Subsystem: "dispatch",
		Name:      "attempts_total",
		Help:      "Notification dispatch attempts by channel and outcome (sent, failed, skipped).",
	},
	[]string{"channel", "outcome"},
)

// RemindersSentTotal counts reminder emails sent by the sweep.
var RemindersSentTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "craftdesk",
		Subsystem: "reminder",
		Name:      "sent_total",
		Help:      "Booking reminder emails sent.",
	},
)

// ReminderSweepDuration tracks how long a full reminder sweep takes.
var ReminderSweepDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "craftdesk",
		Subsystem: "reminder",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a reminder sweep run in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
)

// NewMetricsRegistry creates a Prometheus registry with default and custom collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		DispatchAttemptsTotal,
		RemindersSentTotal,
		ReminderSweepDuration,
	)
	return reg
}

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsWrittenCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_audit_events_written_total",
		Help: "Audit events persisted to disk.",
	})
	eventsDroppedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_audit_events_dropped_total",
		Help: "Audit events lost because a batch could not be written.",
	})
	writeFailureCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_audit_write_failures_total",
		Help: "Failed audit batch writes.",
	})
	bufferedEventsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteperf_audit_buffered_events",
		Help: "Audit events waiting for the next flush.",
	})
)

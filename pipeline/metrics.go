package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesReceivedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteperf_stream_updates_total",
		Help: "Updates received from the subscription by kind.",
	}, []string{"kind"})
	keepaliveRepliesCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_keepalive_replies_total",
		Help: "Keepalive pings answered.",
	})
	keepaliveFailuresCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_keepalive_failures_total",
		Help: "Keepalive replies that could not be sent.",
	})
	queueDepthGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voteperf_queue_depth",
		Help: "Updates waiting in a work queue.",
	}, []string{"queue"})
	processingErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteperf_processing_errors_total",
		Help: "Updates that could not be processed by queue.",
	}, []string{"queue"})
)

const (
	transactionQueue = "transactions"
	blockQueue       = "blocks"
)

package performance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	confirmedVotesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteperf_confirmed_votes_total",
		Help: "Confirmed votes by credit tier.",
	}, []string{"tier"})
	creditsEarnedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_credits_earned_total",
		Help: "Timely vote credits earned this session.",
	})
	creditsPossibleCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_credits_possible_total",
		Help: "Maximum credits the confirmed votes could have earned.",
	})
	voteLatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voteperf_vote_latency_slots",
		Help:    "Slots between a voted slot and the block it landed in.",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32, 64},
	})
	efficiencyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteperf_credit_efficiency_percent",
		Help: "Earned over possible credits this session.",
	})
	windowLatencyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteperf_window_avg_latency_slots",
		Help: "Average latency of the most recent votes.",
	})
	finalizedSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteperf_last_finalized_slot",
		Help: "Slot of the block carrying the latest confirmed vote.",
	})
	auditEventsCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_audit_events_published_total",
		Help: "Confirmed votes that matched the audit filter.",
	})
)

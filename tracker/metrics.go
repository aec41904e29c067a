package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pathPending = "pending"
	pathDirect  = "direct"
)

var (
	pendingVotesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteperf_pending_votes",
		Help: "Votes observed in transactions and not yet seen in a finalized block.",
	})
	pendingAddedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_pending_votes_added_total",
		Help: "Vote transactions added to the pending table.",
	})
	confirmationsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteperf_vote_confirmations_total",
		Help: "Confirmed votes by correlation path.",
	}, []string{"path"})
	rejectedConfirmationsCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_rejected_confirmations_total",
		Help: "Confirmations rejected because the block precedes the voted slot.",
	})
	evictedPendingCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_pending_votes_evicted_total",
		Help: "Pending votes removed by the age sweep.",
	})
	processedBlocksCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_processed_blocks_total",
		Help: "Finalized blocks processed.",
	})
	duplicateBlocksCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voteperf_duplicate_blocks_total",
		Help: "Block notifications skipped because the slot was already processed.",
	})
	decodeErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteperf_instruction_decode_errors_total",
		Help: "Vote instructions that could not be decoded.",
	}, []string{"source", "reason"})
)

package audit

import (
	"time"

	"github.com/prysmaticlabs/voteperf/credits"
)

// Event is one persisted audit record.
type Event struct {
	Timestamp            time.Time `json:"timestamp"`
	LandedSlot           uint64    `json:"landed_slot"`
	VotedSlot            uint64    `json:"voted_slot"`
	Latency              uint64    `json:"latency"`
	TVCCredits           uint64    `json:"tvc_credits"`
	TransactionSignature string    `json:"transaction_signature"`
	VoteAccount          string    `json:"vote_account"`
	TotalTVCCredits      uint64    `json:"total_tvc_credits"`
	TotalVotedSlots      int       `json:"total_voted_slots"`
	TVCMultiplier        float64   `json:"tvc_multiplier"`
	SessionID            string    `json:"session_id,omitempty"`
}

// CreditRatio returns earned credits as a fraction of the maximum.
func CreditRatio(earned uint64) float64 {
	return float64(earned) / float64(credits.MaxCreditsPerSlot)
}

// Sink accepts audit events. Implementations must not block for long; the
// caller is on the block processing path.
type Sink interface {
	Publish(ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event) error

// Publish calls f.
func (f SinkFunc) Publish(ev Event) error {
	return f(ev)
}

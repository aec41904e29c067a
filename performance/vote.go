// Package performance aggregates confirmed votes into session statistics.
package performance

import (
	"time"

	"github.com/prysmaticlabs/voteperf/credits"
)

// ConfirmedVote is a vote observed in a finalized block.
type ConfirmedVote struct {
	Signature     string
	VotedSlot     uint64
	FinalizedSlot uint64
	Latency       uint64
	Credits       uint64
	Timestamp     time.Time
}

// NewConfirmedVote derives latency and credits from the two slots.
func NewConfirmedVote(signature string, votedSlot, finalizedSlot uint64, ts time.Time) ConfirmedVote {
	latency, earned := credits.FromSlots(votedSlot, finalizedSlot)
	return ConfirmedVote{
		Signature:     signature,
		VotedSlot:     votedSlot,
		FinalizedSlot: finalizedSlot,
		Latency:       latency,
		Credits:       earned,
		Timestamp:     ts,
	}
}

// Tier buckets the earned credits.
func (v ConfirmedVote) Tier() credits.Tier {
	return credits.TierFor(v.Credits)
}

// LostCredits is the shortfall from the maximum credit.
func (v ConfirmedVote) LostCredits() uint64 {
	if v.Credits >= credits.MaxCreditsPerSlot {
		return 0
	}
	return credits.MaxCreditsPerSlot - v.Credits
}

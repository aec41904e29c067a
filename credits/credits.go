// Package credits implements the timely vote credit (TVC) model: the number of
// credits a vote earns as a function of how many slots it took to land in a
// finalized block, and the qualitative tier a credit value falls into.
package credits

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	// GraceSlots is the latency, in slots, that still earns the full credit.
	GraceSlots uint64 = 2
	// MaxCreditsPerSlot is the maximum number of credits a single vote can earn.
	MaxCreditsPerSlot uint64 = 16
	// MinCreditsPerSlot is the floor applied to every landed vote.
	MinCreditsPerSlot uint64 = 1
)

// FromLatency returns the credits earned by a vote that landed latency slots
// after the slot it voted on. One credit is lost per slot beyond the grace
// window and the result never drops below MinCreditsPerSlot.
func FromLatency(latency uint64) uint64 {
	if latency <= GraceSlots {
		return MaxCreditsPerSlot
	}
	penalty := latency - GraceSlots
	if penalty >= MaxCreditsPerSlot {
		return MinCreditsPerSlot
	}
	return MaxCreditsPerSlot - penalty
}

// FromSlots computes the latency between the voted and finalized slot,
// saturating at zero, together with the credits that latency earns.
func FromSlots(votedSlot, finalizedSlot uint64) (latency uint64, earned uint64) {
	if finalizedSlot > votedSlot {
		latency = finalizedSlot - votedSlot
	}
	return latency, FromLatency(latency)
}

// Tier is a qualitative bucket for a per-vote credit value.
type Tier uint8

const (
	// Optimal votes earn the full 16 credits.
	Optimal Tier = iota
	// Good votes earn 12 to 15 credits.
	Good
	// Fair votes earn 8 to 11 credits.
	Fair
	// Poor votes earn 4 to 7 credits.
	Poor
	// Critical votes earn fewer than 4 credits.
	Critical
)

var tierNames = [...]string{
	Optimal:  "optimal",
	Good:     "good",
	Fair:     "fair",
	Poor:     "poor",
	Critical: "critical",
}

// ErrUnknownTier is returned when a tier name does not match any tier.
var ErrUnknownTier = errors.New("unknown performance level")

// TierFor buckets a credit value.
func TierFor(earned uint64) Tier {
	switch {
	case earned >= MaxCreditsPerSlot:
		return Optimal
	case earned >= 12:
		return Good
	case earned >= 8:
		return Fair
	case earned >= 4:
		return Poor
	default:
		return Critical
	}
}

// String returns the lower-case tier name.
func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// Matches reports whether name refers to this tier, ignoring case.
func (t Tier) Matches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), t.String())
}

// ParseTier resolves a tier from its name, ignoring case.
func ParseTier(name string) (Tier, error) {
	for i := range tierNames {
		if Tier(i).Matches(name) {
			return Tier(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownTier, "%q, valid levels: %s", name, strings.Join(TierNames(), ", "))
}

// TierNames lists every tier name from best to worst.
func TierNames() []string {
	names := make([]string, len(tierNames))
	copy(names, tierNames[:])
	return names
}

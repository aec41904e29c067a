package performance

import "time"

// Status is the coarse session health derived from credit efficiency.
type Status string

// Session statuses.
const (
	StatusOptimal Status = "optimal"
	StatusGood    Status = "good"
	StatusPoor    Status = "poor"
)

const (
	optimalEfficiency = 95.0
	goodEfficiency    = 85.0
)

// Snapshot is a point-in-time copy of the statistics. Derived metrics are
// computed from the raw counters on every call.
type Snapshot struct {
	SessionID string
	Start     time.Time
	Elapsed   time.Duration

	TotalVotes      uint64
	CreditsEarned   uint64
	CreditsPossible uint64
	OptimalVotes    uint64
	GoodVotes       uint64
	PoorVotes       uint64
	LowLatencyVotes uint64
	LatencySum      uint64
	FinalizedSlot   uint64
	LastVote        *ConfirmedVote

	// Oldest first.
	RecentVotes      []ConfirmedVote
	PoorVotesHistory []ConfirmedVote
	WindowLatencies  []uint64
	WindowLatencySum uint64
}

// Efficiency is earned over possible credits in percent, 100 before any vote.
func (s *Snapshot) Efficiency() float64 {
	return efficiency(s.CreditsEarned, s.CreditsPossible)
}

// MissedCredits is possible minus earned credits.
func (s *Snapshot) MissedCredits() uint64 {
	if s.CreditsEarned >= s.CreditsPossible {
		return 0
	}
	return s.CreditsPossible - s.CreditsEarned
}

// VoteRate is confirmed votes per second of session time.
func (s *Snapshot) VoteRate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.TotalVotes) / secs
}

// SessionAvgLatency is the mean latency over the whole session.
func (s *Snapshot) SessionAvgLatency() float64 {
	return average(s.LatencySum, int(s.TotalVotes))
}

// WindowAvgLatency is the mean latency of the latency window.
func (s *Snapshot) WindowAvgLatency() float64 {
	return average(s.WindowLatencySum, len(s.WindowLatencies))
}

// LowLatencyPercentage is the share of votes that landed within the grace window.
func (s *Snapshot) LowLatencyPercentage() float64 {
	if s.TotalVotes == 0 {
		return 0
	}
	return float64(s.LowLatencyVotes) / float64(s.TotalVotes) * 100
}

// Percentage returns count as a percentage of all votes.
func (s *Snapshot) Percentage(count uint64) float64 {
	if s.TotalVotes == 0 {
		return 0
	}
	return float64(count) / float64(s.TotalVotes) * 100
}

// Status classifies the session efficiency.
func (s *Snapshot) Status() Status {
	e := s.Efficiency()
	switch {
	case e >= optimalEfficiency:
		return StatusOptimal
	case e >= goodEfficiency:
		return StatusGood
	default:
		return StatusPoor
	}
}

func efficiency(earned, possible uint64) float64 {
	if possible == 0 {
		return 100
	}
	return float64(earned) / float64(possible) * 100
}

func average(sum uint64, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

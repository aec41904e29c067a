package performance

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/audit"
	"github.com/prysmaticlabs/voteperf/container/ring"
	"github.com/prysmaticlabs/voteperf/credits"
	"github.com/sirupsen/logrus"
)

const (
	// RecentVotesWindow is the number of votes shown as recent activity.
	RecentVotesWindow = 20
	// PoorVotesWindow is the number of sub-maximum votes kept for review.
	PoorVotesWindow = 50
	// LatencyWindow is the number of latencies in the windowed average.
	LatencyWindow = 20
	// LowLatencyThreshold is the highest latency counted as low.
	LowLatencyThreshold = credits.GraceSlots
	// goodCredits is the lower bound of the good breakdown bucket.
	goodCredits = 12
)

// Config for a Stats aggregator.
type Config struct {
	Clock     clock.Clock
	SessionID string
	Sink      audit.Sink
}

// Stats accumulates session statistics. One writer records votes while
// readers take consistent snapshots; all fields are guarded by one lock.
type Stats struct {
	clock     clock.Clock
	sessionID string
	start     time.Time
	sink      audit.Sink

	mu              sync.RWMutex
	totalVotes      uint64
	creditsEarned   uint64
	creditsPossible uint64
	optimalVotes    uint64
	goodVotes       uint64
	poorVotes       uint64
	lowLatency      uint64
	latencySum      uint64
	finalizedSlot   uint64
	last            *ConfirmedVote
	recent          *ring.Buffer[ConfirmedVote]
	poor            *ring.Buffer[ConfirmedVote]
	latencies       *ring.Buffer[uint64]
	windowSum       uint64
}

// NewStats starts a session at the current clock time.
func NewStats(cfg *Config) *Stats {
	if cfg == nil {
		cfg = &Config{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Stats{
		clock:     clk,
		sessionID: cfg.SessionID,
		start:     clk.Now(),
		sink:      cfg.Sink,
		recent:    ring.New[ConfirmedVote](RecentVotesWindow),
		poor:      ring.New[ConfirmedVote](PoorVotesWindow),
		latencies: ring.New[uint64](LatencyWindow),
	}
}

// Record adds a confirmed vote to every counter and window.
func (s *Stats) Record(v ConfirmedVote) {
	s.mu.Lock()
	s.recordLocked(v)
	efficiency := efficiency(s.creditsEarned, s.creditsPossible)
	window := average(s.windowSum, s.latencies.Len())
	s.mu.Unlock()

	tier := v.Tier()
	confirmedVotesCount.WithLabelValues(tier.String()).Inc()
	creditsEarnedCount.Add(float64(v.Credits))
	creditsPossibleCount.Add(float64(credits.MaxCreditsPerSlot))
	voteLatencyHistogram.Observe(float64(v.Latency))
	efficiencyGauge.Set(efficiency)
	windowLatencyGauge.Set(window)
	finalizedSlotGauge.Set(float64(v.FinalizedSlot))
}

func (s *Stats) recordLocked(v ConfirmedVote) {
	s.totalVotes++
	s.creditsEarned += v.Credits
	s.creditsPossible += credits.MaxCreditsPerSlot
	s.finalizedSlot = v.FinalizedSlot
	s.latencySum += v.Latency

	switch {
	case v.Credits >= credits.MaxCreditsPerSlot:
		s.optimalVotes++
	case v.Credits >= goodCredits:
		s.goodVotes++
	default:
		s.poorVotes++
	}
	if v.Latency <= LowLatencyThreshold {
		s.lowLatency++
	}

	s.recent.Push(v)
	if old, evicted := s.latencies.Push(v.Latency); evicted {
		s.windowSum -= old
	}
	s.windowSum += v.Latency
	if v.Credits < credits.MaxCreditsPerSlot {
		s.poor.Push(v)
	}
	last := v
	s.last = &last
}

// RecordWithFilter records v and, when filter selects it, publishes an audit
// event for voteAccount. The sink is called without holding the lock and its
// failure leaves the statistics untouched.
func (s *Stats) RecordWithFilter(v ConfirmedVote, voteAccount string, filter *audit.Filter) (bool, error) {
	s.Record(v)
	if s.sink == nil || !filter.ShouldSave(v.Latency, v.Credits) {
		return false, nil
	}
	ev := audit.Event{
		Timestamp:            s.clock.Now().UTC(),
		LandedSlot:           v.FinalizedSlot,
		VotedSlot:            v.VotedSlot,
		Latency:              v.Latency,
		TVCCredits:           v.Credits,
		TransactionSignature: v.Signature,
		VoteAccount:          voteAccount,
		TotalTVCCredits:      v.Credits,
		TotalVotedSlots:      1,
		TVCMultiplier:        audit.CreditRatio(v.Credits),
		SessionID:            s.sessionID,
	}
	auditEventsCount.Inc()
	if err := s.sink.Publish(ev); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"votedSlot": v.VotedSlot,
			"latency":   v.Latency,
		}).Warn("Could not persist audit event")
		return true, errors.Wrap(err, "could not publish audit event")
	}
	return true, nil
}

// Snapshot returns a consistent copy of the statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		SessionID:        s.sessionID,
		Start:            s.start,
		Elapsed:          s.clock.Since(s.start),
		TotalVotes:       s.totalVotes,
		CreditsEarned:    s.creditsEarned,
		CreditsPossible:  s.creditsPossible,
		OptimalVotes:     s.optimalVotes,
		GoodVotes:        s.goodVotes,
		PoorVotes:        s.poorVotes,
		LowLatencyVotes:  s.lowLatency,
		LatencySum:       s.latencySum,
		FinalizedSlot:    s.finalizedSlot,
		RecentVotes:      s.recent.Values(),
		PoorVotesHistory: s.poor.Values(),
		WindowLatencies:  s.latencies.Values(),
		WindowLatencySum: s.windowSum,
	}
	if s.last != nil {
		last := *s.last
		snap.LastVote = &last
	}
	return snap
}

// TotalVotes returns the number of confirmed votes recorded.
func (s *Stats) TotalVotes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalVotes
}

package performance

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/audit"
	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
	logTest "github.com/sirupsen/logrus/hooks/test"
)

func vote(voted, finalized uint64) ConfirmedVote {
	return NewConfirmedVote("sig", voted, finalized, time.Unix(0, 0))
}

func TestNewConfirmedVote(t *testing.T) {
	v := vote(1000, 1004)
	assert.Equal(t, uint64(4), v.Latency)
	assert.Equal(t, uint64(14), v.Credits)
	assert.Equal(t, uint64(2), v.LostCredits())
	assert.Equal(t, "good", v.Tier().String())
	assert.Equal(t, uint64(0), vote(10, 11).LostCredits())
}

func TestSnapshot_Empty(t *testing.T) {
	s := NewStats(&Config{Clock: clock.NewMock()})
	snap := s.Snapshot()
	assert.Equal(t, 100.0, snap.Efficiency())
	assert.Equal(t, uint64(0), snap.MissedCredits())
	assert.Equal(t, 0.0, snap.VoteRate())
	assert.Equal(t, 0.0, snap.SessionAvgLatency())
	assert.Equal(t, 0.0, snap.WindowAvgLatency())
	assert.Equal(t, 0.0, snap.LowLatencyPercentage())
	assert.Equal(t, StatusOptimal, snap.Status())
	assert.IsNil(t, snap.LastVote)
}

func TestRecord_Counters(t *testing.T) {
	clk := clock.NewMock()
	s := NewStats(&Config{Clock: clk, SessionID: "abc"})
	s.Record(vote(100, 101)) // latency 1, 16 credits
	s.Record(vote(100, 104)) // latency 4, 14 credits
	s.Record(vote(100, 110)) // latency 10, 8 credits
	clk.Add(30 * time.Second)

	snap := s.Snapshot()
	assert.Equal(t, "abc", snap.SessionID)
	assert.Equal(t, uint64(3), snap.TotalVotes)
	assert.Equal(t, uint64(38), snap.CreditsEarned)
	assert.Equal(t, uint64(48), snap.CreditsPossible)
	assert.Equal(t, uint64(10), snap.MissedCredits())
	assert.Equal(t, uint64(1), snap.OptimalVotes)
	assert.Equal(t, uint64(1), snap.GoodVotes)
	assert.Equal(t, uint64(1), snap.PoorVotes)
	assert.Equal(t, uint64(1), snap.LowLatencyVotes)
	assert.Equal(t, uint64(15), snap.LatencySum)
	assert.Equal(t, uint64(110), snap.FinalizedSlot)
	assert.Equal(t, 5.0, snap.SessionAvgLatency())
	assert.Equal(t, 5.0, snap.WindowAvgLatency())
	assert.Equal(t, 0.1, snap.VoteRate())
	assert.Equal(t, 2, len(snap.PoorVotesHistory), "only sub-maximum votes")
	assert.Equal(t, 3, len(snap.RecentVotes))
	require.NotNil(t, snap.LastVote)
	assert.Equal(t, uint64(110), snap.LastVote.FinalizedSlot)
	assert.Equal(t, true, snap.Efficiency() > 79.16 && snap.Efficiency() < 79.17, "efficiency %v", snap.Efficiency())
	assert.Equal(t, StatusPoor, snap.Status())
	assert.Equal(t, 30*time.Second, snap.Elapsed)
}

func TestRecord_Windows(t *testing.T) {
	s := NewStats(&Config{Clock: clock.NewMock()})
	for i := uint64(0); i < 60; i++ {
		latency := uint64(1)
		if i >= 40 {
			latency = 3
		}
		s.Record(vote(i, i+latency))
	}
	snap := s.Snapshot()
	assert.Equal(t, RecentVotesWindow, len(snap.RecentVotes))
	assert.Equal(t, uint64(40), snap.RecentVotes[0].VotedSlot, "oldest retained vote")
	assert.Equal(t, 20, len(snap.PoorVotesHistory))
	assert.Equal(t, LatencyWindow, len(snap.WindowLatencies))
	assert.Equal(t, 3.0, snap.WindowAvgLatency(), "window holds only the last 20 latencies")
	assert.Equal(t, uint64(60), snap.WindowLatencySum)

	for i := uint64(0); i < 60; i++ {
		s.Record(vote(i, i+5))
	}
	snap = s.Snapshot()
	assert.Equal(t, PoorVotesWindow, len(snap.PoorVotesHistory))
	assert.Equal(t, 5.0, snap.WindowAvgLatency())
}

func TestSnapshot_Status(t *testing.T) {
	tests := []struct {
		earned, possible uint64
		want             Status
	}{
		{earned: 95, possible: 100, want: StatusOptimal},
		{earned: 94, possible: 100, want: StatusGood},
		{earned: 85, possible: 100, want: StatusGood},
		{earned: 84, possible: 100, want: StatusPoor},
	}
	for _, tt := range tests {
		snap := Snapshot{CreditsEarned: tt.earned, CreditsPossible: tt.possible}
		assert.Equal(t, tt.want, snap.Status())
	}
}

func TestRecordWithFilter(t *testing.T) {
	clk := clock.NewMock()
	var got []audit.Event
	sink := audit.SinkFunc(func(ev audit.Event) error {
		got = append(got, ev)
		return nil
	})
	s := NewStats(&Config{Clock: clk, SessionID: "sess", Sink: sink})
	f := audit.DefaultFilter()

	saved, err := s.RecordWithFilter(vote(100, 101), "Vote1", &f)
	require.NoError(t, err)
	assert.Equal(t, false, saved, "optimal votes are not saved")

	saved, err = s.RecordWithFilter(vote(100, 112), "Vote1", &f)
	require.NoError(t, err)
	assert.Equal(t, true, saved)
	require.Equal(t, 1, len(got))
	assert.Equal(t, uint64(112), got[0].LandedSlot)
	assert.Equal(t, uint64(12), got[0].Latency)
	assert.Equal(t, uint64(6), got[0].TVCCredits)
	assert.Equal(t, "Vote1", got[0].VoteAccount)
	assert.Equal(t, 1, got[0].TotalVotedSlots)
	assert.Equal(t, 0.375, got[0].TVCMultiplier)
	assert.Equal(t, "sess", got[0].SessionID)
	assert.Equal(t, uint64(2), s.TotalVotes(), "every vote is recorded")

	f.Enabled = false
	saved, err = s.RecordWithFilter(vote(100, 112), "Vote1", &f)
	require.NoError(t, err)
	assert.Equal(t, false, saved)
}

func TestRecordWithFilter_SinkFailure(t *testing.T) {
	hook := logTest.NewGlobal()
	sink := audit.SinkFunc(func(audit.Event) error {
		return errors.New("disk full")
	})
	s := NewStats(&Config{Clock: clock.NewMock(), Sink: sink})
	f := audit.Filter{Enabled: true}
	saved, err := s.RecordWithFilter(vote(1, 20), "Vote1", &f)
	assert.Equal(t, true, saved)
	assert.ErrorContains(t, "disk full", err)
	assert.Equal(t, uint64(1), s.Snapshot().TotalVotes)
	require.LogsContain(t, hook, "Could not persist audit event")
}

func TestStats_ConcurrentReaders(t *testing.T) {
	s := NewStats(&Config{Clock: clock.NewMock()})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := uint64(0); i < 500; i++ {
			s.Record(vote(i, i+1+i%6))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			snap := s.Snapshot()
			if snap.CreditsPossible != snap.TotalVotes*16 {
				t.Errorf("inconsistent snapshot: %d possible for %d votes", snap.CreditsPossible, snap.TotalVotes)
				return
			}
		}
	}()
	wg.Wait()
	assert.Equal(t, uint64(500), s.TotalVotes())
}

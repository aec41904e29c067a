package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prysmaticlabs/voteperf/performance"
	"github.com/prysmaticlabs/voteperf/stream"
	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
	"github.com/prysmaticlabs/voteperf/testing/util"
	logTest "github.com/sirupsen/logrus/hooks/test"
)

func newTestTracker(t *testing.T, clk clock.Clock) *Tracker {
	cfg := DefaultConfig()
	cfg.Clock = clk
	tr, err := New(cfg)
	require.NoError(t, err)
	return tr
}

func pendingFor(sig string, txSlot uint64, slots ...uint64) *PendingVote {
	p := &PendingVote{Signature: sig, TransactionSlot: txSlot, VotedSlots: map[uint64]struct{}{}}
	for _, s := range slots {
		p.VotedSlots[s] = struct{}{}
	}
	return p
}

func TestEndToEnd_LatencyAndCredits(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, clock.NewMock())
	stats := performance.NewStats(&performance.Config{Clock: clock.NewMock()})

	sig := util.Signature(1)
	ix := util.EncodeTowerSync(util.Uint64(900), util.TowerFor(1000, 5)...)
	require.NoError(t, tr.ProcessVoteTransaction(ctx, util.VoteTransaction(1000, sig, ix)))
	require.Equal(t, 1, tr.Stats().Pending)

	votes, err := tr.ProcessFinalizedBlock(ctx, util.Block(1004, util.VoteTransactionInfo(sig, ix)))
	require.NoError(t, err)
	require.Equal(t, 1, len(votes))
	assert.Equal(t, uint64(1000), votes[0].VotedSlot)
	assert.Equal(t, uint64(1004), votes[0].FinalizedSlot)
	assert.Equal(t, uint64(4), votes[0].Latency)
	assert.Equal(t, uint64(14), votes[0].Credits)
	for _, v := range votes {
		stats.Record(v)
	}

	snap := stats.Snapshot()
	assert.Equal(t, uint64(1), snap.TotalVotes)
	assert.Equal(t, uint64(0), snap.OptimalVotes)
	assert.Equal(t, uint64(1), snap.GoodVotes)
	assert.DeepEqual(t, Stats{Pending: 0, Confirmed: 1, Processed: 1}, tr.Stats())
	assert.Equal(t, 1, len(tr.RecentConfirmed()))
}

func TestProcessFinalizedBlock_Idempotent(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, clock.NewMock())
	stats := performance.NewStats(&performance.Config{Clock: clock.NewMock()})
	sig := util.Signature(2)
	ix := util.EncodeVote(500)
	require.NoError(t, tr.ProcessVoteTransaction(ctx, util.VoteTransaction(500, sig, ix)))

	block := util.Block(503, util.VoteTransactionInfo(sig, ix))
	votes, err := tr.ProcessFinalizedBlock(ctx, block)
	require.NoError(t, err)
	require.Equal(t, 1, len(votes))
	stats.Record(votes[0])
	before := stats.Snapshot()
	trackerBefore := tr.Stats()

	votes, err = tr.ProcessFinalizedBlock(ctx, block)
	require.NoError(t, err)
	assert.Equal(t, 0, len(votes))
	for _, v := range votes {
		stats.Record(v)
	}
	after := stats.Snapshot()
	assert.Equal(t, before.TotalVotes, after.TotalVotes)
	assert.Equal(t, before.CreditsEarned, after.CreditsEarned)
	assert.DeepEqual(t, trackerBefore, tr.Stats())
}

func TestConfirm_RemovesWholePendingEntry(t *testing.T) {
	tr := newTestTracker(t, clock.NewMock())
	tr.AddPending(pendingFor("S1", 101, 100, 101))

	v, ok := tr.Confirm("S1", 101, 105)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(4), v.Latency)
	_, pending := tr.Pending("S1")
	assert.Equal(t, false, pending, "entry removed although slot 100 was never confirmed")
	assert.Equal(t, 1, tr.Stats().Confirmed)

	// The other slot now takes the direct path: confirmed, but not buffered.
	v, ok = tr.Confirm("S1", 100, 110)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(10), v.Latency)
	assert.Equal(t, uint64(8), v.Credits)
	assert.Equal(t, 1, tr.Stats().Confirmed)
}

func TestConfirm_SlotNotPending(t *testing.T) {
	tr := newTestTracker(t, clock.NewMock())
	tr.AddPending(pendingFor("S2", 200, 200))

	_, ok := tr.Confirm("S2", 150, 204)
	assert.Equal(t, false, ok)
	p, pending := tr.Pending("S2")
	require.Equal(t, true, pending)
	assert.DeepEqual(t, []uint64{200}, p.Slots())
}

func TestConfirm_RejectsFinalizedBeforeVoted(t *testing.T) {
	hook := logTest.NewGlobal()
	tr := newTestTracker(t, clock.NewMock())
	tr.AddPending(pendingFor("S3", 50, 50))
	before := tr.Stats()

	_, ok := tr.Confirm("S3", 50, 40)
	assert.Equal(t, false, ok)
	_, ok = tr.Confirm("unknown", 50, 40)
	assert.Equal(t, false, ok)
	assert.DeepEqual(t, before, tr.Stats())
	_, pending := tr.Pending("S3")
	assert.Equal(t, true, pending)
	require.LogsContain(t, hook, "Finalized slot precedes voted slot")
}

func TestConfirm_DirectPath(t *testing.T) {
	tr := newTestTracker(t, clock.NewMock())
	v, ok := tr.Confirm("never-seen-signature", 700, 702)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(2), v.Latency)
	assert.Equal(t, uint64(16), v.Credits)
	assert.Equal(t, 0, tr.Stats().Confirmed)
}

func TestAddPending_OverwritesSignature(t *testing.T) {
	tr := newTestTracker(t, clock.NewMock())
	tr.AddPending(pendingFor("S4", 10, 10))
	tr.AddPending(pendingFor("S4", 12, 12))
	p, ok := tr.Pending("S4")
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(12), p.TransactionSlot)
	assert.Equal(t, 1, tr.Stats().Pending)
}

func TestSweep(t *testing.T) {
	clk := clock.NewMock()
	tr := newTestTracker(t, clk)
	tr.AddPending(pendingFor("old", 10, 10))
	tr.AddPending(pendingFor("edge", 100, 100))
	tr.MarkProcessed(200)
	tr.MarkProcessed(150)

	// Interval not elapsed yet.
	clk.Add(59 * time.Second)
	tr.AddPending(pendingFor("fresh", 199, 199))
	assert.Equal(t, 3, tr.Stats().Pending)

	clk.Add(time.Second)
	tr.AddPending(pendingFor("fresher", 200, 200))
	// Cutoff is 200-100, so slots at or below 100 go.
	_, ok := tr.Pending("old")
	assert.Equal(t, false, ok)
	_, ok = tr.Pending("edge")
	assert.Equal(t, false, ok)
	_, ok = tr.Pending("fresh")
	assert.Equal(t, true, ok)
	assert.Equal(t, 2, tr.Stats().Pending)

	// The next sweep waits for another full interval.
	tr.MarkProcessed(400)
	clk.Add(30 * time.Second)
	tr.AddPending(pendingFor("later", 390, 390))
	assert.Equal(t, 3, tr.Stats().Pending)
}

func TestProcessVoteTransaction_Filters(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, clock.NewMock())

	err := tr.ProcessVoteTransaction(ctx, &stream.TransactionUpdate{Slot: 1})
	require.ErrorIs(t, err, ErrInvalidUpdate)

	nonVote := util.VoteTransaction(5, util.Signature(3), util.EncodeVote(5))
	nonVote.Info.IsVote = false
	require.NoError(t, tr.ProcessVoteTransaction(ctx, nonVote))

	// Only tower replays, no new vote.
	towerOnly := util.EncodeUpdateVoteState(nil, util.Lockout{Slot: 3, ConfirmationCount: 3}, util.Lockout{Slot: 4, ConfirmationCount: 2})
	require.NoError(t, tr.ProcessVoteTransaction(ctx, util.VoteTransaction(6, util.Signature(4), towerOnly)))
	assert.Equal(t, 0, tr.Stats().Pending)

	tower := util.EncodeCompactUpdateVoteState(util.Uint64(1), util.TowerFor(10, 4)...)
	require.NoError(t, tr.ProcessVoteTransaction(ctx, util.VoteTransaction(10, util.Signature(5), tower)))
	p, ok := tr.Pending(tr.signatures.GetOrInsert(util.Signature(5)))
	require.Equal(t, true, ok)
	assert.DeepEqual(t, []uint64{10}, p.Slots(), "only the newly voted slot is tracked")
	assert.DeepEqual(t, tower, p.InstructionData)
}

func TestProcessVoteTransaction_DecodeErrorSkipsInstruction(t *testing.T) {
	hook := logTest.NewGlobal()
	ctx := context.Background()
	tr := newTestTracker(t, clock.NewMock())
	malformed := util.EncodeVote(1, 2, 3)[:10]
	u := util.VoteTransaction(30, util.Signature(6), malformed, util.EncodeVote(30))
	require.NoError(t, tr.ProcessVoteTransaction(ctx, u))

	assert.Equal(t, 1, tr.Stats().Pending)
	require.LogsContain(t, hook, "Could not decode vote instruction")
}

func TestProcessFinalizedBlock_OneConfirmationPerTransaction(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, clock.NewMock())
	// Not pending, so the first new slot confirms directly and ends the transaction.
	votes, err := tr.ProcessFinalizedBlock(ctx, util.Block(110,
		util.VoteTransactionInfo(util.Signature(7), util.EncodeVote(100, 101), util.EncodeVote(102)),
		util.VoteTransactionInfo(util.Signature(8), util.EncodeVote(105)),
	))
	require.NoError(t, err)
	require.Equal(t, 2, len(votes))
	assert.Equal(t, uint64(100), votes[0].VotedSlot)
	assert.Equal(t, uint64(105), votes[1].VotedSlot)
}

func TestProcessFinalizedBlock_SkipsUnusableTransactions(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, clock.NewMock())
	noSigs := util.VoteTransactionInfo(util.Signature(9), util.EncodeVote(1))
	noSigs.Transaction.Signatures = nil
	votes, err := tr.ProcessFinalizedBlock(ctx, util.Block(5, nil, &stream.TransactionInfo{}, noSigs))
	require.NoError(t, err)
	assert.Equal(t, 0, len(votes))
	assert.Equal(t, true, tr.HasProcessed(5))

	_, err = tr.ProcessFinalizedBlock(ctx, nil)
	require.ErrorIs(t, err, ErrInvalidUpdate)
}

func TestProcessFinalizedBlock_VoteAccountFilter(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Clock = clock.NewMock()
	cfg.VoteAccount = util.VoteAccount()
	tr, err := New(cfg)
	require.NoError(t, err)

	ours := util.VoteTransactionInfo(util.Signature(10), util.EncodeVote(20))
	theirs := util.VoteTransactionInfo(util.Signature(11), util.EncodeVote(20))
	theirs.Transaction.Message.AccountKeys[1] = make([]byte, 32)
	votes, err := tr.ProcessFinalizedBlock(ctx, util.Block(22, ours, theirs))
	require.NoError(t, err)
	require.Equal(t, 1, len(votes))
	assert.Equal(t, tr.signatures.GetOrInsert(util.Signature(10)), votes[0].Signature)
}

func TestProcessedRing(t *testing.T) {
	tr := newTestTracker(t, clock.NewMock())
	for s := uint64(1); s <= 60; s++ {
		tr.MarkProcessed(s)
	}
	assert.Equal(t, 50, tr.Stats().Processed)
	assert.Equal(t, false, tr.HasProcessed(10), "evicted from the ring")
	assert.Equal(t, true, tr.HasProcessed(11))
	assert.Equal(t, true, tr.HasProcessed(60))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProcessedCapacity = 0
	_, err := New(cfg)
	assert.ErrorContains(t, "ring capacities must be positive", err)

	cfg = DefaultConfig()
	cfg.VoteAccount = []byte{1, 2}
	_, err = New(cfg)
	assert.ErrorContains(t, "vote account must be 32 bytes", err)

	cfg = DefaultConfig()
	cfg.SignatureCacheSize = 0
	_, err = New(cfg)
	assert.NotNil(t, err)
}

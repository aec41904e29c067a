// Package tracker correlates vote transactions with the finalized blocks
// they land in.
//
// A vote is pending from the moment its transaction is observed until one of
// its newly voted slots is seen in a finalized block, or until the periodic
// sweep drops it for falling too far behind the chain.
package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/cache"
	"github.com/prysmaticlabs/voteperf/container/ring"
	"github.com/prysmaticlabs/voteperf/encoding/voteinstruction"
	"github.com/prysmaticlabs/voteperf/performance"
	"github.com/prysmaticlabs/voteperf/stream"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// ErrInvalidUpdate is returned for updates missing the fields needed to track a vote.
var ErrInvalidUpdate = errors.New("invalid update")

// PendingVote is a vote transaction awaiting finalization.
type PendingVote struct {
	Signature       string
	VotedSlots      map[uint64]struct{}
	TransactionSlot uint64
	Timestamp       time.Time
	InstructionData []byte
}

// Slots returns the voted slots in ascending order.
func (p *PendingVote) Slots() []uint64 {
	out := make([]uint64, 0, len(p.VotedSlots))
	for s := range p.VotedSlots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats are the buffer occupancies of a Tracker.
type Stats struct {
	Pending   int
	Confirmed int
	Processed int
}

// Tracker owns the pending table and the recent confirmed and processed rings.
type Tracker struct {
	cfg        *Config
	clock      clock.Clock
	signatures *cache.SignatureCache

	lock             sync.RWMutex
	pending          map[string]*PendingVote
	confirmed        *ring.Buffer[performance.ConfirmedVote]
	processed        *ring.Buffer[uint64]
	maxProcessedSlot uint64
	lastSweep        time.Time
}

// New builds a Tracker. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tracker config")
	}
	sigs, err := cache.NewSignatureCache(cfg.SignatureCacheSize)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:        cfg,
		clock:      cfg.Clock,
		signatures: sigs,
		pending:    make(map[string]*PendingVote, 1024),
		confirmed:  ring.New[performance.ConfirmedVote](cfg.ConfirmedCapacity),
		processed:  ring.New[uint64](cfg.ProcessedCapacity),
		lastSweep:  cfg.Clock.Now(),
	}, nil
}

// AddPending stores p, replacing any entry with the same signature, and
// sweeps stale entries if the sweep interval has elapsed.
func (t *Tracker) AddPending(p *PendingVote) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.addPendingLocked(p)
}

func (t *Tracker) addPendingLocked(p *PendingVote) {
	t.pending[p.Signature] = p
	pendingAddedCount.Inc()
	if t.clock.Since(t.lastSweep) >= t.cfg.SweepInterval {
		t.sweepLocked()
	}
	pendingVotesGauge.Set(float64(len(t.pending)))
}

// sweepLocked drops pending votes whose transaction slot is at or below the
// retention cutoff behind the highest processed slot.
func (t *Tracker) sweepLocked() {
	cutoff := uint64(0)
	if t.maxProcessedSlot > t.cfg.PendingRetentionSlots {
		cutoff = t.maxProcessedSlot - t.cfg.PendingRetentionSlots
	}
	evicted := 0
	for sig, p := range t.pending {
		if p.TransactionSlot <= cutoff {
			delete(t.pending, sig)
			evicted++
		}
	}
	t.lastSweep = t.clock.Now()
	evictedPendingCount.Add(float64(evicted))
	log.WithFields(logrus.Fields{
		"cutoffSlot": cutoff,
		"evicted":    evicted,
		"remaining":  len(t.pending),
	}).Debug("Swept stale pending votes")
}

// Pending returns a copy of the pending entry for signature.
func (t *Tracker) Pending(signature string) (PendingVote, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	p, ok := t.pending[signature]
	if !ok {
		return PendingVote{}, false
	}
	return *p, true
}

// Confirm correlates signature voting votedSlot with the block at
// finalizedSlot.
//
// A block before the voted slot is rejected. If the signature is pending and
// votedSlot is one of its slots, the whole entry is removed and the vote is
// recorded as recently confirmed. If the signature is pending for other
// slots nothing happens. If it is not pending at all the vote is confirmed
// directly from the two slots without touching any state.
func (t *Tracker) Confirm(signature string, votedSlot, finalizedSlot uint64) (performance.ConfirmedVote, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.confirmLocked(signature, votedSlot, finalizedSlot)
}

func (t *Tracker) confirmLocked(signature string, votedSlot, finalizedSlot uint64) (performance.ConfirmedVote, bool) {
	fields := logrus.Fields{
		"signature":     sigPrefix(signature),
		"votedSlot":     votedSlot,
		"finalizedSlot": finalizedSlot,
	}
	if finalizedSlot < votedSlot {
		rejectedConfirmationsCount.Inc()
		log.WithFields(fields).Warn("Finalized slot precedes voted slot, ignoring confirmation")
		return performance.ConfirmedVote{}, false
	}
	p, ok := t.pending[signature]
	if !ok {
		v := performance.NewConfirmedVote(signature, votedSlot, finalizedSlot, t.clock.Now())
		confirmationsCount.WithLabelValues(pathDirect).Inc()
		log.WithFields(fields).WithField("latency", v.Latency).Debug("Confirmed vote without pending transaction")
		return v, true
	}
	if _, voted := p.VotedSlots[votedSlot]; !voted {
		log.WithFields(fields).WithField("pendingSlots", p.Slots()).Debug("Voted slot not in pending vote")
		return performance.ConfirmedVote{}, false
	}
	delete(t.pending, signature)
	pendingVotesGauge.Set(float64(len(t.pending)))
	v := performance.NewConfirmedVote(signature, votedSlot, finalizedSlot, t.clock.Now())
	t.confirmed.Push(v)
	confirmationsCount.WithLabelValues(pathPending).Inc()
	log.WithFields(fields).WithField("latency", v.Latency).Debug("Confirmed pending vote")
	return v, true
}

// HasProcessed reports whether the block at slot was processed recently.
func (t *Tracker) HasProcessed(slot uint64) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return ring.Contains(t.processed, slot)
}

// MarkProcessed records slot as processed.
func (t *Tracker) MarkProcessed(slot uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.markProcessedLocked(slot)
}

func (t *Tracker) markProcessedLocked(slot uint64) {
	t.processed.Push(slot)
	if slot > t.maxProcessedSlot {
		t.maxProcessedSlot = slot
	}
}

// newVoteSlots decodes every vote instruction in msg and returns the newly
// voted slots along with the payload of the first instruction carrying any.
// Instructions that fail to decode are logged and skipped.
func newVoteSlots(msg *stream.Message, source string, fields logrus.Fields) ([][]uint64, [][]byte) {
	var slots [][]uint64
	var payloads [][]byte
	for _, data := range msg.VoteInstructions() {
		infos, err := voteinstruction.Parse(data)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, voteinstruction.ErrUnsupported) {
				reason = "unsupported"
				log.WithError(err).WithFields(fields).Trace("Skipping vote instruction without votes")
			} else {
				log.WithError(err).WithFields(fields).Warn("Could not decode vote instruction")
			}
			decodeErrorsCount.WithLabelValues(source, reason).Inc()
			continue
		}
		var fresh []uint64
		for _, info := range infos {
			if info.IsNewVote() {
				fresh = append(fresh, info.Slot)
			}
		}
		slots = append(slots, fresh)
		payloads = append(payloads, data)
	}
	return slots, payloads
}

// ProcessVoteTransaction adds a pending vote for a vote transaction carrying
// at least one newly voted slot. Non-vote transactions are ignored.
func (t *Tracker) ProcessVoteTransaction(ctx context.Context, u *stream.TransactionUpdate) error {
	_, span := trace.StartSpan(ctx, "tracker.ProcessVoteTransaction")
	defer span.End()

	if u == nil || u.Info == nil {
		return errors.Wrap(ErrInvalidUpdate, "transaction update without transaction")
	}
	if !u.Info.IsVote {
		return nil
	}
	if len(u.Info.Signature) == 0 {
		return errors.Wrapf(ErrInvalidUpdate, "vote transaction at slot %d without signature", u.Slot)
	}
	span.AddAttributes(trace.Int64Attribute("slot", int64(u.Slot)))
	if u.Info.Transaction == nil || u.Info.Transaction.Message == nil {
		return nil
	}
	sig := t.signatures.GetOrInsert(u.Info.Signature)
	fields := logrus.Fields{"signature": sigPrefix(sig), "slot": u.Slot}

	slotSets, payloads := newVoteSlots(u.Info.Transaction.Message, "transaction", fields)
	var p *PendingVote
	for i, set := range slotSets {
		if len(set) == 0 {
			continue
		}
		if p == nil {
			p = &PendingVote{
				Signature:       sig,
				VotedSlots:      make(map[uint64]struct{}, len(set)),
				TransactionSlot: u.Slot,
				Timestamp:       t.clock.Now(),
				InstructionData: payloads[i],
			}
		}
		for _, s := range set {
			p.VotedSlots[s] = struct{}{}
		}
	}
	if p == nil {
		return nil
	}

	t.lock.Lock()
	t.addPendingLocked(p)
	t.lock.Unlock()

	log.WithFields(fields).WithField("newVotes", len(p.VotedSlots)).Debug("Added pending vote")
	return nil
}

// ProcessFinalizedBlock confirms the votes carried by a finalized block.
// A slot already processed yields nothing. Only the first signature of each
// transaction is used and each transaction confirms at most one vote.
func (t *Tracker) ProcessFinalizedBlock(ctx context.Context, b *stream.BlockUpdate) ([]performance.ConfirmedVote, error) {
	_, span := trace.StartSpan(ctx, "tracker.ProcessFinalizedBlock")
	defer span.End()

	if b == nil {
		return nil, errors.Wrap(ErrInvalidUpdate, "nil block update")
	}
	span.AddAttributes(
		trace.Int64Attribute("slot", int64(b.Slot)),
		trace.Int64Attribute("transactions", int64(len(b.Transactions))),
	)

	t.lock.Lock()
	defer t.lock.Unlock()

	if ring.Contains(t.processed, b.Slot) {
		duplicateBlocksCount.Inc()
		log.WithField("slot", b.Slot).Debug("Skipping already processed block")
		return nil, nil
	}
	t.markProcessedLocked(b.Slot)
	processedBlocksCount.Inc()

	var confirmed []performance.ConfirmedVote
	for _, info := range b.Transactions {
		if info == nil || info.Transaction == nil || info.Transaction.Message == nil {
			continue
		}
		rawSig, ok := info.Transaction.FirstSignature()
		if !ok {
			continue
		}
		msg := info.Transaction.Message
		if len(t.cfg.VoteAccount) != 0 && !msg.HasAccount(t.cfg.VoteAccount) {
			continue
		}
		sig := t.signatures.GetOrInsert(rawSig)
		if v, ok := t.confirmTransactionLocked(sig, msg, b.Slot); ok {
			confirmed = append(confirmed, v)
		}
	}
	span.AddAttributes(trace.Int64Attribute("confirmed", int64(len(confirmed))))
	log.WithFields(logrus.Fields{
		"slot":      b.Slot,
		"confirmed": len(confirmed),
	}).Debug("Processed finalized block")
	return confirmed, nil
}

func (t *Tracker) confirmTransactionLocked(sig string, msg *stream.Message, finalizedSlot uint64) (performance.ConfirmedVote, bool) {
	fields := logrus.Fields{"signature": sigPrefix(sig), "slot": finalizedSlot}
	slotSets, _ := newVoteSlots(msg, "block", fields)
	for _, set := range slotSets {
		for _, s := range set {
			if v, ok := t.confirmLocked(sig, s, finalizedSlot); ok {
				return v, true
			}
		}
	}
	return performance.ConfirmedVote{}, false
}

// Stats returns the buffer occupancies.
func (t *Tracker) Stats() Stats {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return Stats{
		Pending:   len(t.pending),
		Confirmed: t.confirmed.Len(),
		Processed: t.processed.Len(),
	}
}

// RecentConfirmed returns the recently confirmed pending votes, oldest first.
func (t *Tracker) RecentConfirmed() []performance.ConfirmedVote {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.confirmed.Values()
}

package tracker

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/cache"
)

const (
	// DefaultPendingRetentionSlots is how far behind the latest processed
	// block a pending vote may fall before the sweep drops it.
	DefaultPendingRetentionSlots = 100
	// DefaultSweepInterval is the minimum time between two sweeps.
	DefaultSweepInterval = 60 * time.Second
	// DefaultConfirmedCapacity is the size of the recent confirmed votes ring.
	DefaultConfirmedCapacity = 100
	// DefaultProcessedCapacity is the size of the processed slots ring.
	DefaultProcessedCapacity = 50
)

// Config tunes a Tracker.
type Config struct {
	PendingRetentionSlots uint64
	SweepInterval         time.Duration
	ConfirmedCapacity     int
	ProcessedCapacity     int
	SignatureCacheSize    int
	// VoteAccount, when set, restricts block processing to transactions
	// that reference this account.
	VoteAccount []byte
	Clock       clock.Clock
}

// DefaultConfig returns the production settings.
func DefaultConfig() *Config {
	return &Config{
		PendingRetentionSlots: DefaultPendingRetentionSlots,
		SweepInterval:         DefaultSweepInterval,
		ConfirmedCapacity:     DefaultConfirmedCapacity,
		ProcessedCapacity:     DefaultProcessedCapacity,
		SignatureCacheSize:    cache.DefaultSignatureCacheSize,
		Clock:                 clock.New(),
	}
}

func (c *Config) validate() error {
	if c.SweepInterval <= 0 {
		return errors.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	}
	if c.ConfirmedCapacity <= 0 || c.ProcessedCapacity <= 0 {
		return errors.Errorf("ring capacities must be positive, got confirmed=%d processed=%d", c.ConfirmedCapacity, c.ProcessedCapacity)
	}
	if len(c.VoteAccount) != 0 && len(c.VoteAccount) != 32 {
		return errors.Errorf("vote account must be 32 bytes, got %d", len(c.VoteAccount))
	}
	return nil
}

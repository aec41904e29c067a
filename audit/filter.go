// Package audit decides which confirmed votes are worth persisting and writes
// them as JSON lines to daily files.
package audit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/credits"
)

// ErrInvalidFilter is wrapped by every filter validation failure.
var ErrInvalidFilter = errors.New("invalid performance logging filter")

// Filter selects the votes written to the audit log. Unset bounds and an
// empty level list do not constrain.
type Filter struct {
	Enabled    bool     `yaml:"enabled"`
	MinLatency *uint64  `yaml:"min_latency_threshold"`
	MaxLatency *uint64  `yaml:"max_latency_threshold"`
	MinCredits *uint64  `yaml:"min_tvc_threshold"`
	MaxCredits *uint64  `yaml:"max_tvc_threshold"`
	Levels     []string `yaml:"performance_levels"`
}

// DefaultFilter records every vote below full credit that landed late
// enough to fall in the poor or critical tier.
func DefaultFilter() Filter {
	minLatency, maxCredits := uint64(1), credits.MaxCreditsPerSlot-1
	return Filter{
		Enabled:    true,
		MinLatency: &minLatency,
		MaxCredits: &maxCredits,
		Levels:     []string{credits.Poor.String(), credits.Critical.String()},
	}
}

// ShouldSave reports whether a vote with the given latency and credits is
// persisted. A disabled filter saves nothing.
func (f *Filter) ShouldSave(latency, earned uint64) bool {
	return f != nil && f.Enabled && f.Matches(latency, earned)
}

// Matches evaluates the bounds and levels, ignoring Enabled.
func (f *Filter) Matches(latency, earned uint64) bool {
	if f.MinLatency != nil && latency < *f.MinLatency {
		return false
	}
	if f.MaxLatency != nil && latency > *f.MaxLatency {
		return false
	}
	if f.MinCredits != nil && earned < *f.MinCredits {
		return false
	}
	if f.MaxCredits != nil && earned > *f.MaxCredits {
		return false
	}
	if len(f.Levels) == 0 {
		return true
	}
	tier := credits.TierFor(earned)
	for _, l := range f.Levels {
		if tier.Matches(l) {
			return true
		}
	}
	return false
}

// Validate checks the bounds are consistent and the levels known.
func (f *Filter) Validate() error {
	if f.MinLatency != nil && f.MaxLatency != nil && *f.MinLatency > *f.MaxLatency {
		return errors.Wrapf(ErrInvalidFilter, "min_latency_threshold (%d) > max_latency_threshold (%d)", *f.MinLatency, *f.MaxLatency)
	}
	if f.MinCredits != nil && f.MaxCredits != nil && *f.MinCredits > *f.MaxCredits {
		return errors.Wrapf(ErrInvalidFilter, "min_tvc_threshold (%d) > max_tvc_threshold (%d)", *f.MinCredits, *f.MaxCredits)
	}
	if f.MaxCredits != nil && *f.MaxCredits > credits.MaxCreditsPerSlot {
		return errors.Wrapf(ErrInvalidFilter, "max_tvc_threshold (%d) cannot exceed %d", *f.MaxCredits, credits.MaxCreditsPerSlot)
	}
	if f.MinCredits != nil && *f.MinCredits < credits.MinCreditsPerSlot {
		return errors.Wrap(ErrInvalidFilter, "min_tvc_threshold cannot be 0")
	}
	for _, l := range f.Levels {
		if _, err := credits.ParseTier(l); err != nil {
			return errors.Wrap(ErrInvalidFilter, err.Error())
		}
	}
	return nil
}

// Describe renders the active criteria for logs.
func (f *Filter) Describe() string {
	if !f.Enabled {
		return "disabled"
	}
	var parts []string
	if f.MinLatency != nil {
		parts = append(parts, fmt.Sprintf("latency >= %d", *f.MinLatency))
	}
	if f.MaxLatency != nil {
		parts = append(parts, fmt.Sprintf("latency <= %d", *f.MaxLatency))
	}
	if f.MinCredits != nil {
		parts = append(parts, fmt.Sprintf("tvc >= %d", *f.MinCredits))
	}
	if f.MaxCredits != nil {
		parts = append(parts, fmt.Sprintf("tvc <= %d", *f.MaxCredits))
	}
	if len(f.Levels) > 0 {
		parts = append(parts, fmt.Sprintf("levels: [%s]", strings.Join(f.Levels, ", ")))
	}
	if len(parts) == 0 {
		return "all votes"
	}
	return strings.Join(parts, ", ")
}

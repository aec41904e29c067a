// Package slots converts between slot counts and wall clock time.
package slots

import (
	"math"
	"time"
)

// Duration is the target length of a Solana slot.
const Duration = 400 * time.Millisecond

// ToDuration returns the wall clock time n slots take at the target rate.
func ToDuration(n uint64) time.Duration {
	if n > uint64(math.MaxInt64/int64(Duration)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n) * Duration
}

// FractionToDuration converts an average slot count.
func FractionToDuration(n float64) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n * float64(Duration)).Round(time.Millisecond)
}

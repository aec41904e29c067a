package dashboard

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ExplorerBaseURL prefixes transaction signatures in explorer links.
const ExplorerBaseURL = "https://solscan.io/tx/"

// ExplorerURL links a transaction signature on the block explorer.
func ExplorerURL(signature string) string {
	return ExplorerBaseURL + signature
}

// FormatDuration renders d as "1h 2m 3s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatCount renders n with thousands separators.
func FormatCount(n uint64) string {
	return humanize.Comma(int64(n))
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatRate(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

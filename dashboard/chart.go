package dashboard

import (
	"fmt"
	"strings"

	"github.com/prysmaticlabs/voteperf/credits"
	"github.com/prysmaticlabs/voteperf/performance"
)

const (
	chartHeight = 4
	chartWidth  = performance.RecentVotesWindow
	chartBar    = "▓"
)

// barHeight maps a credit value to 0..chartHeight rows, four credits per row.
func barHeight(earned uint64) int {
	if earned == 0 {
		return 0
	}
	h := int((earned + 3) / 4)
	if h > chartHeight {
		return chartHeight
	}
	return h
}

func (d *Dashboard) bar(earned uint64) string {
	switch {
	case earned >= credits.MaxCreditsPerSlot:
		return d.au.Green(chartBar).String()
	case earned >= 12:
		return d.au.Yellow(chartBar).String()
	default:
		return d.au.Red(chartBar).String()
	}
}

// tvcChart draws the credits of the latest votes as a bar chart, oldest on
// the left, left padded with empty columns.
func (d *Dashboard) tvcChart(votes []performance.ConfirmedVote) []string {
	if len(votes) > chartWidth {
		votes = votes[len(votes)-chartWidth:]
	}
	values := make([]uint64, chartWidth)
	copy(values[chartWidth-len(votes):], creditsOf(votes))

	lines := make([]string, 0, chartHeight+1)
	for level := chartHeight; level >= 1; level-- {
		var b strings.Builder
		fmt.Fprintf(&b, "%2d |", level*4)
		for _, v := range values {
			if barHeight(v) >= level {
				b.WriteString(" ")
				b.WriteString(d.bar(v))
			} else {
				b.WriteString("  ")
			}
		}
		lines = append(lines, b.String())
	}
	lines = append(lines, " 0 |"+strings.Repeat("──", chartWidth))
	return lines
}

func creditsOf(votes []performance.ConfirmedVote) []uint64 {
	out := make([]uint64, len(votes))
	for i, v := range votes {
		out[i] = v.Credits
	}
	return out
}

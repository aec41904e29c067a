// Package dashboard presents session statistics, either as a terminal
// dashboard repainted in place or as log lines per confirmed vote.
package dashboard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/paulbellamy/ratecounter"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/credits"
	"github.com/prysmaticlabs/voteperf/performance"
	"github.com/prysmaticlabs/voteperf/time/slots"
	"github.com/prysmaticlabs/voteperf/tracker"
	"golang.org/x/term"
)

const (
	rule          = "═══════════════════════════════════════════════════════════════"
	recentShown   = 10
	poorShown     = 15
	clearLine     = "\x1b[K"
	clearScreen   = "\x1b[2J"
	hideCursor    = "\x1b[?25l"
	showCursor    = "\x1b[?25h"
	resetColours  = "\x1b[0m"
	defaultWidth  = 80
	defaultHeight = 24
)

// SizeFunc returns the terminal width and height.
type SizeFunc func() (width, height int, err error)

// Config for a Dashboard.
type Config struct {
	Out         io.Writer
	VoteAccount string
	Colours     bool
	// Size defaults to the size of stdout.
	Size SizeFunc
}

// Dashboard renders snapshots to a terminal, repainting only the lines that
// changed since the previous render.
type Dashboard struct {
	out         io.Writer
	au          aurora.Aurora
	voteAccount string
	size        SizeFunc
	perMinute   *ratecounter.RateCounter

	mu            sync.Mutex
	prev          []string
	width, height int
	closed        bool
}

// New builds a Dashboard. Nothing is written until the first Render.
func New(cfg *Config) *Dashboard {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	size := cfg.Size
	if size == nil {
		size = func() (int, int, error) { return term.GetSize(int(os.Stdout.Fd())) }
	}
	return &Dashboard{
		out:         out,
		au:          aurora.NewAurora(cfg.Colours),
		voteAccount: cfg.VoteAccount,
		size:        size,
		perMinute:   ratecounter.NewRateCounter(time.Minute),
		width:       defaultWidth,
		height:      defaultHeight,
	}
}

// VoteConfirmed feeds the per minute vote rate.
func (d *Dashboard) VoteConfirmed(performance.ConfirmedVote, *performance.Snapshot) {
	d.perMinute.Incr(1)
}

// Render repaints the dashboard. The first render and every render after a
// terminal resize clear the screen and draw everything.
func (d *Dashboard) Render(snap *performance.Snapshot, st tracker.Stats) {
	if err := d.render(snap, st); err != nil {
		log.WithError(err).Debug("Could not render dashboard")
	}
}

func (d *Dashboard) render(snap *performance.Snapshot, st tracker.Stats) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if w, h, err := d.size(); err == nil && (w != d.width || h != d.height) {
		d.width, d.height = w, h
		d.prev = nil
	}
	lines := d.Lines(snap, st)

	var b strings.Builder
	b.WriteString(hideCursor)
	if d.prev == nil {
		b.WriteString(clearScreen)
		b.WriteString(moveTo(0))
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	} else {
		for i, line := range lines {
			if i < len(d.prev) && d.prev[i] == line {
				continue
			}
			b.WriteString(moveTo(i))
			b.WriteString(line)
			b.WriteString(clearLine)
		}
		for i := len(lines); i < len(d.prev); i++ {
			b.WriteString(moveTo(i))
			b.WriteString(clearLine)
		}
	}
	d.prev = lines
	if _, err := io.WriteString(d.out, b.String()); err != nil {
		return errors.Wrap(err, "could not write dashboard")
	}
	return nil
}

// Close restores colours and the cursor, leaving the last frame on screen.
func (d *Dashboard) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	_, err := io.WriteString(d.out, resetColours+showCursor+"\n")
	return err
}

func moveTo(row int) string {
	return fmt.Sprintf("\x1b[%d;1H", row+1)
}

// Lines builds the dashboard frame.
func (d *Dashboard) Lines(snap *performance.Snapshot, st tracker.Stats) []string {
	var lines []string
	add := func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add(rule)
	add("%s", d.au.Bold("performance monitor"))
	add("vote account: %s", d.voteAccount)
	add(rule)
	add("")

	add("current slot: %12s      session uptime: %15s", FormatCount(snap.FinalizedSlot), FormatDuration(snap.Elapsed))
	add("total votes:  %12s      vote rate: %8.3f votes/sec (%d in the last minute)",
		FormatCount(snap.TotalVotes), snap.VoteRate(), d.perMinute.Rate())
	add("")

	add("tvc performance (last %d votes)", chartWidth)
	lines = append(lines, d.tvcChart(snap.RecentVotes)...)
	add("")

	add("tvc efficiency")
	add("   earned:  %8s credits   possible: %8s credits", FormatCount(snap.CreditsEarned), FormatCount(snap.CreditsPossible))
	add("   missed:  %8s credits   efficiency: %6.1f%%", FormatCount(snap.MissedCredits()), snap.Efficiency())
	add("")

	add("vote latency metrics")
	add("   session avg latency: %6.1f slots (~%s)   window avg latency: %6.1f slots (~%s)",
		snap.SessionAvgLatency(), slots.FractionToDuration(snap.SessionAvgLatency()),
		snap.WindowAvgLatency(), slots.FractionToDuration(snap.WindowAvgLatency()))
	add("   low latency votes:   %6d of %d (%.1f%%, <=%d slots)",
		snap.LowLatencyVotes, snap.TotalVotes, snap.LowLatencyPercentage(), performance.LowLatencyThreshold)
	add("")

	add("performance breakdown")
	if snap.TotalVotes == 0 {
		add("   waiting for votes...")
	} else {
		add("   %s optimal (16 tvc):    %4d votes (%4.1f%%)", d.au.Green("■"), snap.OptimalVotes, snap.Percentage(snap.OptimalVotes))
		add("   %s good (12-15 tvc):    %4d votes (%4.1f%%)", d.au.Yellow("■"), snap.GoodVotes, snap.Percentage(snap.GoodVotes))
		add("   %s poor (<12 tvc):      %4d votes (%4.1f%%)", d.au.Red("■"), snap.PoorVotes, snap.Percentage(snap.PoorVotes))
	}
	add("")

	lines = append(lines, d.recentLines(snap.RecentVotes)...)
	add("")
	lines = append(lines, d.poorLines(snap.PoorVotesHistory)...)
	add("")

	add("status: %s performance", d.status(snap.Status()))
	add("tracker: %d pending, %d confirmed, %d processed blocks", st.Pending, st.Confirmed, st.Processed)
	add(rule)
	add("press ctrl+c to quit")
	return lines
}

func (d *Dashboard) recentLines(votes []performance.ConfirmedVote) []string {
	lines := []string{fmt.Sprintf("recent performance (last %d votes)", len(votes))}
	if len(votes) == 0 {
		return append(lines, "   waiting for confirmed votes...")
	}
	var latencySum, lost uint64
	optimal := 0
	for i := len(votes) - 1; i >= 0; i-- {
		v := votes[i]
		latencySum += v.Latency
		lost += v.LostCredits()
		if v.Tier() == credits.Optimal {
			optimal++
		}
		if len(votes)-i > recentShown {
			continue
		}
		loss := d.au.Green("ok").String()
		if v.LostCredits() > 0 {
			loss = fmt.Sprintf("(-%d)", v.LostCredits())
		}
		lines = append(lines, fmt.Sprintf("   %s slot %9d -> lat:%2d -> %2d tvc %s | tx: %s",
			d.marker(v.Credits), v.VotedSlot, v.Latency, v.Credits, loss, ExplorerURL(v.Signature)))
	}
	n := float64(len(votes))
	lines = append(lines, "", fmt.Sprintf("   recent summary: avg latency %.1f, %d tvc lost, %.1f%% optimal (%d/%d)",
		float64(latencySum)/n, lost, float64(optimal)/n*100, optimal, len(votes)))
	return lines
}

func (d *Dashboard) poorLines(votes []performance.ConfirmedVote) []string {
	lines := []string{"poor performance events (< 16 tvc)"}
	if len(votes) == 0 {
		return append(lines, "   no poor performance votes in session")
	}
	for i := len(votes) - 1; i >= 0 && len(votes)-i <= poorShown; i-- {
		v := votes[i]
		lines = append(lines, fmt.Sprintf("   %s slot %9d -> lat:%2d -> %2d tvc | tx: %s",
			d.severity(v.Tier()), v.VotedSlot, v.Latency, v.Credits, ExplorerURL(v.Signature)))
	}
	return lines
}

func (d *Dashboard) marker(earned uint64) aurora.Value {
	switch credits.TierFor(earned) {
	case credits.Optimal:
		return d.au.Green("■")
	case credits.Good:
		return d.au.Yellow("■")
	default:
		return d.au.Red("■")
	}
}

func (d *Dashboard) severity(t credits.Tier) aurora.Value {
	switch t {
	case credits.Good:
		return d.au.Yellow("■")
	case credits.Fair:
		return d.au.Magenta("■")
	case credits.Poor:
		return d.au.Red("■")
	default:
		return d.au.BrightRed("✖")
	}
}

func (d *Dashboard) status(s performance.Status) aurora.Value {
	switch s {
	case performance.StatusOptimal:
		return d.au.Green(s)
	case performance.StatusGood:
		return d.au.Yellow(s)
	default:
		return d.au.Red(s)
	}
}

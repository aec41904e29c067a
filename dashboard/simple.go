package dashboard

import (
	"github.com/prysmaticlabs/voteperf/performance"
	"github.com/prysmaticlabs/voteperf/time/slots"
	"github.com/prysmaticlabs/voteperf/tracker"
	"github.com/sirupsen/logrus"
)

// Simple logs every confirmed vote instead of drawing a dashboard.
type Simple struct{}

// NewSimple returns a Simple reporter.
func NewSimple() *Simple {
	return &Simple{}
}

// Render is a no-op; Simple reports per vote.
func (*Simple) Render(*performance.Snapshot, tracker.Stats) {}

// VoteConfirmed logs the vote followed by the session totals.
func (*Simple) VoteConfirmed(v performance.ConfirmedVote, snap *performance.Snapshot) {
	log.WithFields(logrus.Fields{
		"slot":     v.VotedSlot,
		"landed":   v.FinalizedSlot,
		"latency":  v.Latency,
		"delay":    slots.ToDuration(v.Latency),
		"credits":  v.Credits,
		"explorer": ExplorerURL(v.Signature),
	}).Info("Vote confirmed")
	log.WithFields(logrus.Fields{
		"votes":         snap.TotalVotes,
		"efficiency":    formatPercent(snap.Efficiency()),
		"creditsEarned": snap.CreditsEarned,
	}).Info("Session stats")
}

// Close is a no-op.
func (*Simple) Close() error {
	return nil
}

// LogSummary logs the final statistics of a session.
func LogSummary(snap *performance.Snapshot, voteAccount string, auditDir string) {
	log.WithFields(logrus.Fields{
		"voteAccount": voteAccount,
		"session":     snap.SessionID,
		"duration":    FormatDuration(snap.Elapsed),
	}).Info("Final statistics")
	log.WithFields(logrus.Fields{
		"votes":           snap.TotalVotes,
		"votesPerSecond":  formatRate(snap.VoteRate()),
		"efficiency":      formatPercent(snap.Efficiency()),
		"creditsEarned":   snap.CreditsEarned,
		"creditsPossible": snap.CreditsPossible,
		"avgLatency":      formatRate(snap.SessionAvgLatency()),
		"lowLatencyRate":  formatPercent(snap.LowLatencyPercentage()),
	}).Info("Performance summary")
	log.WithFields(logrus.Fields{
		"optimal": snap.OptimalVotes,
		"good":    snap.GoodVotes,
		"poor":    snap.PoorVotes,
	}).Info("Performance breakdown")
	if snap.PoorVotes > 0 && auditDir != "" {
		log.WithField("dir", auditDir).Info("Poor votes were recorded, check the audit directory")
	}
}

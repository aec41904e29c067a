package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const (
	prefixKey     = "prefix"
	defaultPrefix = "global"
)

var logEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "voteperf_log_entries_total",
	Help: "Log entries by level and package prefix.",
}, []string{"level", "prefix"})

// LogrusCollector is a logrus hook counting warnings and errors per package.
type LogrusCollector struct {
	counterVec *prometheus.CounterVec
}

// NewLogrusCollector returns the hook. Register it with logrus.AddHook.
func NewLogrusCollector() *LogrusCollector {
	return &LogrusCollector{counterVec: logEntries}
}

// Fire is called on every entry at a supported level.
func (hook *LogrusCollector) Fire(entry *logrus.Entry) error {
	prefix := defaultPrefix
	if v, ok := entry.Data[prefixKey].(string); ok {
		prefix = v
	}
	hook.counterVec.WithLabelValues(entry.Level.String(), prefix).Inc()
	return nil
}

// Levels returns the levels counted by the hook.
func (*LogrusCollector) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

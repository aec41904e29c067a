// Package node is the main process which handles the lifecycle of the
// runtime services of a vote monitor, gracefully shutting everything down
// upon close.
package node

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/audit"
	"github.com/prysmaticlabs/voteperf/config"
	"github.com/prysmaticlabs/voteperf/dashboard"
	"github.com/prysmaticlabs/voteperf/io/logs"
	"github.com/prysmaticlabs/voteperf/monitoring/prometheus"
	"github.com/prysmaticlabs/voteperf/monitoring/tracing"
	"github.com/prysmaticlabs/voteperf/performance"
	"github.com/prysmaticlabs/voteperf/pipeline"
	"github.com/prysmaticlabs/voteperf/runtime"
	"github.com/prysmaticlabs/voteperf/runtime/version"
	"github.com/prysmaticlabs/voteperf/stream"
	"github.com/prysmaticlabs/voteperf/stream/geyser"
	"github.com/prysmaticlabs/voteperf/tracker"
	"github.com/sirupsen/logrus"
)

// Reporter is a pipeline reporter owning terminal state.
type Reporter interface {
	pipeline.Reporter
	io.Closer
}

// Config for a VoteMonitor.
type Config struct {
	App               *config.Config
	Simple            bool
	RenderInterval    time.Duration
	ShutdownGrace     time.Duration
	DisableMonitoring bool
	MonitoringHost    string
	MonitoringPort    int
	Tracing           tracing.Config

	// Client is dialed from App when nil.
	Client stream.Client
	// Reporter defaults to the dashboard, or log lines in simple mode.
	Reporter Reporter
	Clock    clock.Clock
}

// VoteMonitor owns the session objects and the services built on them.
type VoteMonitor struct {
	cfg          *Config
	sessionID    string
	services     *runtime.ServiceRegistry
	pipeline     *pipeline.Service
	stats        *performance.Stats
	tracker      *tracker.Tracker
	client       stream.Client
	reporter     Reporter
	closeTracing func()

	closeOnce sync.Once
	stop      chan struct{}
}

// New validates the configuration and builds every service of a session.
func New(ctx context.Context, cfg *Config) (*VoteMonitor, error) {
	if cfg == nil || cfg.App == nil {
		return nil, errors.New("node: nil configuration")
	}
	app := cfg.App
	if err := app.Validate(); err != nil {
		return nil, err
	}
	key, err := app.VoteAccountKey()
	if err != nil {
		return nil, err
	}
	commitment, err := app.CommitmentLevel()
	if err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	closeTracing, err := tracing.Setup(cfg.Tracing)
	if err != nil {
		return nil, errors.Wrap(err, "could not set up tracing")
	}

	m := &VoteMonitor{
		cfg:          cfg,
		sessionID:    uuid.New().String(),
		services:     runtime.NewServiceRegistry(),
		closeTracing: closeTracing,
		stop:         make(chan struct{}),
	}
	log.WithFields(logrus.Fields{
		"version":     version.Version(),
		"session":     m.sessionID,
		"voteAccount": app.VoteAccount,
		"endpoint":    logs.MaskCredentialsLogging(app.GRPCURL),
		"commitment":  commitment,
	}).Info("Starting vote monitor")

	if !cfg.DisableMonitoring {
		addr := fmt.Sprintf("%s:%d", cfg.MonitoringHost, cfg.MonitoringPort)
		if err := m.services.RegisterService(prometheus.NewService(addr, m.services)); err != nil {
			return nil, err
		}
	}

	tcfg := tracker.DefaultConfig()
	tcfg.VoteAccount = key
	tcfg.Clock = cfg.Clock
	if m.tracker, err = tracker.New(tcfg); err != nil {
		return nil, err
	}

	scfg := &performance.Config{Clock: cfg.Clock, SessionID: m.sessionID}
	filter := app.PerformanceLogging
	if filter.Enabled {
		writer, err := audit.NewWriter(audit.WriterConfig{
			Dir:           app.Audit.Dir,
			BatchSize:     app.Audit.BatchSize,
			FlushInterval: app.Audit.FlushInterval,
			Clock:         cfg.Clock,
		})
		if err != nil {
			return nil, err
		}
		if err := m.services.RegisterService(writer); err != nil {
			return nil, err
		}
		scfg.Sink = writer
		log.WithFields(logrus.Fields{
			"filter": filter.Describe(),
			"dir":    app.Audit.Dir,
		}).Info("Performance logging enabled")
	} else {
		log.Info("Performance logging disabled")
	}
	m.stats = performance.NewStats(scfg)

	m.client = cfg.Client
	if m.client == nil {
		if m.client, err = geyser.Dial(ctx, &geyser.Config{Endpoint: app.GRPCURL, XToken: app.XToken}); err != nil {
			return nil, err
		}
	}

	m.reporter = cfg.Reporter
	if m.reporter == nil {
		if cfg.Simple {
			log.Info("Simple logging mode")
			m.reporter = dashboard.NewSimple()
		} else {
			log.Info("Interactive dashboard mode, press ctrl+c to quit")
			m.reporter = dashboard.New(&dashboard.Config{VoteAccount: app.VoteAccount, Colours: true})
		}
	}

	m.pipeline, err = pipeline.NewService(ctx, &pipeline.Config{
		Client:         m.client,
		Request:        stream.VoteSubscription(app.VoteAccount, commitment),
		Tracker:        m.tracker,
		Stats:          m.stats,
		Filter:         &filter,
		VoteAccount:    app.VoteAccount,
		Reporter:       m.reporter,
		RenderInterval: cfg.RenderInterval,
		ShutdownGrace:  cfg.ShutdownGrace,
		Clock:          cfg.Clock,
	})
	if err != nil {
		return nil, err
	}
	if err := m.services.RegisterService(m.pipeline); err != nil {
		return nil, err
	}
	return m, nil
}

// Start runs every service and blocks until the monitor is closed, either
// by a termination signal or because the pipeline ended. It returns the
// error that ended the pipeline.
func (m *VoteMonitor) Start() error {
	m.services.StartAll()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		select {
		case <-sigc:
			log.Info("Got interrupt, shutting down...")
		case <-m.pipeline.Done():
		case <-m.stop:
			return
		}
		go m.Close()
		for i := 10; i > 0; i-- {
			select {
			case <-sigc:
			case <-m.stop:
				return
			}
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the vote monitor")
	}()

	<-m.stop
	return m.pipeline.Err()
}

// Close stops the services in reverse order, restores the terminal and logs
// the session summary.
func (m *VoteMonitor) Close() {
	m.closeOnce.Do(func() {
		if err := m.services.StopAll(); err != nil {
			log.WithError(err).Error("Could not stop all services")
		}
		if err := m.reporter.Close(); err != nil {
			log.WithError(err).Debug("Could not restore terminal")
		}
		if err := m.client.Close(); err != nil {
			log.WithError(err).Debug("Could not close stream client")
		}
		snap := m.stats.Snapshot()
		dir := ""
		if m.cfg.App.PerformanceLogging.Enabled {
			dir = m.cfg.App.Audit.Dir
		}
		dashboard.LogSummary(&snap, m.cfg.App.VoteAccount, dir)
		m.closeTracing()
		log.Info("Stopping vote monitor")
		close(m.stop)
	})
}

// SessionID identifies this session in logs and audit events.
func (m *VoteMonitor) SessionID() string {
	return m.sessionID
}

// Stats returns the session statistics.
func (m *VoteMonitor) Stats() *performance.Stats {
	return m.stats
}

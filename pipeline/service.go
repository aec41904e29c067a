// Package pipeline connects a vote subscription to the tracker and the
// performance statistics. One goroutine classifies inbound updates onto two
// bounded queues, one worker feeds vote transactions to the tracker and a
// second confirms finalized blocks and renders reports on a ticker.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/audit"
	"github.com/prysmaticlabs/voteperf/performance"
	"github.com/prysmaticlabs/voteperf/stream"
	"github.com/prysmaticlabs/voteperf/tracker"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultQueueSize is the capacity of each work queue.
	DefaultQueueSize = 1000
	// DefaultRenderInterval is the period between two reports.
	DefaultRenderInterval = 500 * time.Millisecond
	// DefaultShutdownGrace bounds how long Stop waits for queued work.
	DefaultShutdownGrace = 2 * time.Second
)

var (
	// ErrStreamClosed is returned when the server ends the subscription.
	ErrStreamClosed = errors.New("subscription closed by server")
	// ErrShutdownTimeout is returned by Stop when the workers outlive the grace period.
	ErrShutdownTimeout = errors.New("pipeline did not stop within grace period")

	errNotRunning = errors.New("not running")
)

// Reporter presents the session. Render is called on every tick of the
// block worker and once more on exit, VoteConfirmed after every vote.
type Reporter interface {
	Render(snap *performance.Snapshot, st tracker.Stats)
	VoteConfirmed(v performance.ConfirmedVote, snap *performance.Snapshot)
}

// Config wires a pipeline Service.
type Config struct {
	Client         stream.Client
	Request        *stream.SubscribeRequest
	Tracker        *tracker.Tracker
	Stats          *performance.Stats
	Filter         *audit.Filter
	VoteAccount    string
	Reporter       Reporter
	QueueSize      int
	RenderInterval time.Duration
	ShutdownGrace  time.Duration
	Clock          clock.Clock
}

// Service runs the pipeline until the subscription fails or Stop is called.
type Service struct {
	cfg    *Config
	ctx    context.Context
	cancel context.CancelFunc
	clock  clock.Clock

	txQueue    chan *stream.TransactionUpdate
	blockQueue chan *stream.BlockUpdate

	done    chan struct{}
	startMu sync.Once
	mu      sync.RWMutex
	running bool
	runErr  error
}

// NewService validates cfg and fills in defaults.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("nil pipeline config")
	}
	if cfg.Client == nil || cfg.Request == nil {
		return nil, errors.New("pipeline needs a stream client and a subscribe request")
	}
	if cfg.Tracker == nil || cfg.Stats == nil {
		return nil, errors.New("pipeline needs a tracker and stats")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.RenderInterval <= 0 {
		cfg.RenderInterval = DefaultRenderInterval
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		clock:      cfg.Clock,
		txQueue:    make(chan *stream.TransactionUpdate, cfg.QueueSize),
		blockQueue: make(chan *stream.BlockUpdate, cfg.QueueSize),
		done:       make(chan struct{}),
	}, nil
}

// Start opens the subscription and spawns the pipeline goroutines.
func (s *Service) Start() {
	s.startMu.Do(func() {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()
		go s.run()
	})
}

// Stop cancels the pipeline and waits up to the grace period for the
// workers to drain what was already queued.
func (s *Service) Stop() error {
	s.cancel()
	s.Start()
	select {
	case <-s.done:
		return nil
	case <-s.clock.After(s.cfg.ShutdownGrace):
		log.WithFields(logrus.Fields{
			"grace":        s.cfg.ShutdownGrace,
			"transactions": len(s.txQueue),
			"blocks":       len(s.blockQueue),
		}).Warn("Abandoning queued updates")
		return ErrShutdownTimeout
	}
}

// Status reports the terminal error once the pipeline has stopped.
func (s *Service) Status() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runErr != nil {
		return s.runErr
	}
	if !s.running {
		return errNotRunning
	}
	return nil
}

// Done is closed once every pipeline goroutine has returned.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the pipeline, nil after a clean stop.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runErr
}

func (s *Service) run() {
	defer close(s.done)
	err := s.serve()
	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		err = nil
	}
	s.render()

	s.mu.Lock()
	s.running = false
	s.runErr = err
	s.mu.Unlock()
	if err != nil {
		log.WithError(err).Error("Pipeline stopped")
		return
	}
	log.Info("Pipeline stopped")
}

func (s *Service) serve() error {
	sub, err := s.cfg.Client.Subscribe(s.ctx, s.cfg.Request)
	if err != nil {
		close(s.txQueue)
		close(s.blockQueue)
		return errors.Wrap(err, "could not subscribe")
	}
	log.WithField("commitment", commitmentOf(s.cfg.Request)).Info("Subscribed to vote updates")

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		defer close(s.txQueue)
		defer close(s.blockQueue)
		return s.classify(ctx, sub)
	})
	g.Go(func() error {
		return s.intake(ctx)
	})
	g.Go(func() error {
		return s.confirm(ctx)
	})
	err = g.Wait()
	if cerr := sub.CloseSend(); cerr != nil {
		log.WithError(cerr).Debug("Could not close subscription")
	}
	return err
}

// classify routes every inbound update. Pings are answered before the next
// Recv. A full queue blocks the loop until a worker catches up.
func (s *Service) classify(ctx context.Context, sub stream.Subscription) error {
	for {
		u, err := sub.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return errors.Wrap(err, "could not receive update")
		}
		switch u := u.(type) {
		case *stream.PingUpdate:
			updatesReceivedCount.WithLabelValues("ping").Inc()
			if err := sub.Send(stream.KeepaliveReply()); err != nil {
				keepaliveFailuresCount.Inc()
				log.WithError(err).Warn("Could not answer keepalive ping")
				continue
			}
			keepaliveRepliesCount.Inc()
		case *stream.PongUpdate:
			updatesReceivedCount.WithLabelValues("pong").Inc()
			log.WithField("id", u.ID).Trace("Received pong")
		case *stream.TransactionUpdate:
			updatesReceivedCount.WithLabelValues("transaction").Inc()
			select {
			case s.txQueue <- u:
				queueDepthGauge.WithLabelValues(transactionQueue).Set(float64(len(s.txQueue)))
			case <-ctx.Done():
				return ctx.Err()
			}
		case *stream.BlockUpdate:
			updatesReceivedCount.WithLabelValues("block").Inc()
			select {
			case s.blockQueue <- u:
				queueDepthGauge.WithLabelValues(blockQueue).Set(float64(len(s.blockQueue)))
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			updatesReceivedCount.WithLabelValues("other").Inc()
			log.WithField("update", stream.Describe(u)).Trace("Ignoring update")
		}
	}
}

// intake feeds vote transactions to the tracker until the queue is closed.
func (s *Service) intake(ctx context.Context) error {
	for u := range s.txQueue {
		queueDepthGauge.WithLabelValues(transactionQueue).Set(float64(len(s.txQueue)))
		if err := s.cfg.Tracker.ProcessVoteTransaction(ctx, u); err != nil {
			processingErrorsCount.WithLabelValues(transactionQueue).Inc()
			log.WithError(err).WithField("slot", u.Slot).Warn("Could not process vote transaction")
		}
	}
	return nil
}

// confirm applies finalized blocks and renders on every tick until the
// block queue is closed and drained.
func (s *Service) confirm(ctx context.Context) error {
	ticker := s.clock.Ticker(s.cfg.RenderInterval)
	defer ticker.Stop()
	for {
		select {
		case b, ok := <-s.blockQueue:
			if !ok {
				return nil
			}
			queueDepthGauge.WithLabelValues(blockQueue).Set(float64(len(s.blockQueue)))
			s.processBlock(ctx, b)
		case <-ticker.C:
			s.render()
		}
	}
}

func (s *Service) processBlock(ctx context.Context, b *stream.BlockUpdate) {
	votes, err := s.cfg.Tracker.ProcessFinalizedBlock(ctx, b)
	if err != nil {
		processingErrorsCount.WithLabelValues(blockQueue).Inc()
		log.WithError(err).Warn("Could not process finalized block")
		return
	}
	for _, v := range votes {
		// Audit failures are logged by the stats and never stop confirmation.
		_, _ = s.cfg.Stats.RecordWithFilter(v, s.cfg.VoteAccount, s.cfg.Filter)
		if s.cfg.Reporter != nil {
			snap := s.cfg.Stats.Snapshot()
			s.cfg.Reporter.VoteConfirmed(v, &snap)
		}
	}
}

func (s *Service) render() {
	if s.cfg.Reporter == nil {
		return
	}
	snap := s.cfg.Stats.Snapshot()
	s.cfg.Reporter.Render(&snap, s.cfg.Tracker.Stats())
}

func commitmentOf(req *stream.SubscribeRequest) string {
	if req.Commitment == nil {
		return "default"
	}
	return req.Commitment.String()
}

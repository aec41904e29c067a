package audit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/async"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultDir is where audit files are written unless configured otherwise.
	DefaultDir = "./performance_issues"
	// DefaultBatchSize is the number of buffered events that forces a flush.
	DefaultBatchSize = 100
	// DefaultFlushInterval bounds how long an event stays buffered.
	DefaultFlushInterval = 5 * time.Second

	filePrefix      = "performance_issues_"
	fileDateLayout  = "2006-01-02"
	filePermissions = 0600
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriterConfig configures a Writer.
type WriterConfig struct {
	Dir           string
	BatchSize     int
	FlushInterval time.Duration
	Clock         clock.Clock
}

// Writer buffers events and appends them to one file per UTC day:
// <dir>/performance_issues_<YYYY-MM-DD>.json, one JSON object per line.
// Batches flush when full, when the flush interval elapsed, and on Stop.
type Writer struct {
	cfg WriterConfig

	mu         sync.Mutex
	buf        []Event
	lastFlush  time.Time
	failStatus error

	ctx    context.Context
	cancel context.CancelFunc
	done   <-chan struct{}
}

var _ Sink = (*Writer)(nil)

// FileName returns the audit file an event stamped at ts belongs to.
func FileName(dir string, ts time.Time) string {
	return filepath.Join(dir, filePrefix+ts.UTC().Format(fileDateLayout)+".json")
}

// NewWriter fills defaults for unset fields.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.BatchSize < 0 {
		return nil, errors.Errorf("audit batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.FlushInterval < 0 {
		return nil, errors.Errorf("audit flush interval must be positive, got %s", cfg.FlushInterval)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Writer{
		cfg:       cfg,
		buf:       make([]Event, 0, cfg.BatchSize),
		lastFlush: cfg.Clock.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Publish buffers ev and flushes if the batch is full or overdue.
func (w *Writer) Publish(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, ev)
	bufferedEventsGauge.Set(float64(len(w.buf)))
	if len(w.buf) >= w.cfg.BatchSize || w.cfg.Clock.Since(w.lastFlush) >= w.cfg.FlushInterval {
		return w.flushLocked()
	}
	return nil
}

// Flush writes all buffered events.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Pending returns the number of buffered events.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

func (w *Writer) flushLocked() error {
	w.lastFlush = w.cfg.Clock.Now()
	if len(w.buf) == 0 {
		return nil
	}
	batch := w.buf
	w.buf = make([]Event, 0, w.cfg.BatchSize)
	bufferedEventsGauge.Set(0)

	if err := w.write(batch); err != nil {
		writeFailureCount.Inc()
		eventsDroppedCount.Add(float64(len(batch)))
		w.failStatus = err
		log.WithError(err).WithField("events", len(batch)).Error("Could not write audit batch")
		return err
	}
	w.failStatus = nil
	eventsWrittenCount.Add(float64(len(batch)))
	log.WithField("events", len(batch)).Debug("Flushed audit batch")
	return nil
}

func (w *Writer) write(batch []Event) error {
	byFile := make(map[string]*bytes.Buffer)
	for i := range batch {
		name := FileName(w.cfg.Dir, batch[i].Timestamp)
		b, ok := byFile[name]
		if !ok {
			b = bytes.NewBuffer(make([]byte, 0, len(batch)*256))
			byFile[name] = b
		}
		enc, err := json.Marshal(&batch[i])
		if err != nil {
			return errors.Wrap(err, "could not encode audit event")
		}
		b.Write(enc)
		b.WriteByte('\n')
	}
	if err := os.MkdirAll(w.cfg.Dir, 0700); err != nil {
		return errors.Wrapf(err, "could not create audit directory %s", w.cfg.Dir)
	}
	names := make([]string, 0, len(byFile))
	for name := range byFile {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := appendFile(name, byFile[name].Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermissions) // #nosec G304
	if err != nil {
		return errors.Wrapf(err, "could not open %s", name)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "could not write %s", name)
	}
	return errors.Wrapf(f.Close(), "could not close %s", name)
}

// Start runs the periodic flush.
func (w *Writer) Start() {
	log.WithFields(logrus.Fields{
		"dir":           w.cfg.Dir,
		"batchSize":     w.cfg.BatchSize,
		"flushInterval": w.cfg.FlushInterval,
	}).Info("Starting audit writer")
	w.done = async.RunEvery(w.ctx, w.cfg.Clock, w.cfg.FlushInterval, func() {
		if err := w.Flush(); err != nil {
			log.WithError(err).Debug("Periodic audit flush failed")
		}
	})
}

// Stop ends the periodic flush and writes whatever is still buffered.
func (w *Writer) Stop() error {
	w.cancel()
	if w.done != nil {
		<-w.done
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "could not flush audit events on stop")
	}
	return nil
}

// Status reports the last write failure, cleared by the next successful write.
func (w *Writer) Status() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failStatus != nil {
		return errors.Wrap(w.failStatus, "audit writer")
	}
	return nil
}

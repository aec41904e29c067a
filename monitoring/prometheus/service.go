// Package prometheus serves the Prometheus metrics of the process together
// with service health and goroutine dumps.
package prometheus

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prysmaticlabs/voteperf/runtime"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "prometheus")

// Service exposes /metrics, /healthz and /goroutinez.
type Service struct {
	server      *http.Server
	svcRegistry *runtime.ServiceRegistry

	mu         sync.RWMutex
	failStatus error
	listener   net.Listener
}

// NewService sets up the HTTP handlers for addr (host:port). An empty host
// listens on every interface.
func NewService(addr string, svcRegistry *runtime.ServiceRegistry) *Service {
	s := &Service{svcRegistry: svcRegistry}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)

	s.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Service) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	statuses := s.svcRegistry.Statuses()
	lines := make([]string, 0, len(statuses))
	hasError := false
	for kind, err := range statuses {
		status := "OK"
		if err != nil {
			hasError = true
			status = "ERROR " + err.Error()
		}
		lines = append(lines, fmt.Sprintf("%s: %s\n", kind, status))
	}
	sort.Strings(lines)
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
	}

	if hasError {
		w.WriteHeader(http.StatusInternalServerError)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Error("Could not write healthz body")
	}
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	if err := pprof.Lookup("goroutine").WriteTo(w, 2); err != nil {
		log.WithError(err).Error("Could not write goroutine dump")
	}
}

// Start listens and serves in the background.
func (s *Service) Start() {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		log.WithError(err).Errorf("Could not listen to host:port %s", s.server.Addr)
		s.setFailStatus(err)
		return
	}
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()
	log.WithField("endpoint", lis.Addr().String()).Info("Starting service")
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
			s.setFailStatus(err)
		}
	}()
}

// Addr returns the bound address once started.
func (s *Service) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Service) setFailStatus(err error) {
	s.mu.Lock()
	s.failStatus = err
	s.mu.Unlock()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	log.Info("Stopping service")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports a listen or serve failure.
func (s *Service) Status() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failStatus
}

// Package tracing configures OpenCensus tracing with an optional Jaeger exporter.
package tracing

import (
	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

var log = logrus.WithField("prefix", "tracing")

// Config of the tracer.
type Config struct {
	Enabled        bool
	ServiceName    string
	Endpoint       string
	SampleFraction float64
}

// Setup applies cfg globally. The returned function flushes and unregisters
// the exporter and is safe to call when tracing is disabled.
func Setup(cfg Config) (func(), error) {
	if !cfg.Enabled {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		return func() {}, nil
	}
	if cfg.ServiceName == "" {
		return nil, errors.New("tracing service name cannot be empty")
	}
	if cfg.SampleFraction < 0 || cfg.SampleFraction > 1 {
		return nil, errors.Errorf("tracing sample fraction %v out of range [0, 1]", cfg.SampleFraction)
	}
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(cfg.SampleFraction)})

	log.WithField("endpoint", cfg.Endpoint).Info("Starting Jaeger exporter")
	exporter, err := jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: cfg.Endpoint,
		Process: jaeger.Process{
			ServiceName: cfg.ServiceName,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create jaeger exporter")
	}
	trace.RegisterExporter(exporter)
	return func() {
		exporter.Flush()
		trace.UnregisterExporter(exporter)
	}, nil
}

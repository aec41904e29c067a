// Package flags defines the command line flags of the voteperf binary.
package flags

import (
	"github.com/prysmaticlabs/voteperf/cmd/flags"
	"github.com/prysmaticlabs/voteperf/config"
	"github.com/prysmaticlabs/voteperf/pipeline"
	"github.com/urfave/cli/v2"
)

var (
	// ConfigFileFlag is the YAML configuration file or http(s) URL.
	ConfigFileFlag = &cli.StringFlag{
		Name:    "config-file",
		Usage:   "YAML configuration file or http(s) URL",
		Value:   config.DefaultFile,
		EnvVars: []string{"VOTEPERF_CONFIG_FILE"},
	}
	// GRPCURLFlag overrides grpc_url.
	GRPCURLFlag = &cli.StringFlag{
		Name:    "grpc-url",
		Usage:   "Geyser gRPC endpoint, https enables TLS",
		EnvVars: []string{"VOTEPERF_GRPC_URL"},
	}
	// XTokenFlag overrides x_token.
	XTokenFlag = &cli.StringFlag{
		Name:    "x-token",
		Usage:   "Authentication token sent as x-token metadata",
		EnvVars: []string{"VOTEPERF_X_TOKEN"},
	}
	// VoteAccountFlag overrides vote_account.
	VoteAccountFlag = &cli.StringFlag{
		Name:    "vote-account",
		Usage:   "Base58 vote account to monitor",
		EnvVars: []string{"VOTEPERF_VOTE_ACCOUNT"},
	}
	// CommitmentFlag overrides commitment.
	CommitmentFlag = flags.EnumValue{
		Name:  "commitment",
		Usage: "Commitment level of the subscription, overrides the configuration file",
		Enum:  []string{"processed", "confirmed", "finalized"},
	}.GenericFlag()
	// AuditDirFlag overrides audit.dir.
	AuditDirFlag = &cli.StringFlag{
		Name:  "audit-dir",
		Usage: "Directory of the daily performance issue files",
	}
	// SimpleFlag logs each vote instead of drawing the dashboard.
	SimpleFlag = &cli.BoolFlag{
		Name:  "simple",
		Usage: "Log every confirmed vote instead of drawing the dashboard",
	}
	// RenderIntervalFlag is the dashboard refresh period.
	RenderIntervalFlag = &cli.DurationFlag{
		Name:  "render-interval",
		Usage: "Dashboard refresh period",
		Value: pipeline.DefaultRenderInterval,
	}
	// ShutdownGraceFlag bounds how long queued updates are processed on exit.
	ShutdownGraceFlag = &cli.DurationFlag{
		Name:  "shutdown-grace",
		Usage: "How long queued updates are still processed on shutdown",
		Value: pipeline.DefaultShutdownGrace,
	}
	// VerbosityFlag sets the log level.
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error, fatal, panic), defaults to warn with the dashboard and info otherwise",
	}
	// LogFormatFlag selects the log formatter.
	LogFormatFlag = flags.EnumValue{
		Name:  "log-format",
		Usage: "Log output format",
		Enum:  []string{"text", "fluentd", "json"},
		Value: "text",
	}.GenericFlag()
	// LogFileFlag duplicates logs to a file.
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Also write logs to this file",
	}
	// MonitoringHostFlag is the metrics listen host.
	MonitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host used for listening and responding metrics for prometheus",
		Value: "127.0.0.1",
	}
	// MonitoringPortFlag is the metrics listen port.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used for listening and responding metrics for prometheus",
		Value: 8080,
	}
	// DisableMonitoringFlag turns the metrics server off.
	DisableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Disable the /metrics, /healthz and /goroutinez endpoints",
	}
	// EnableTracingFlag turns on OpenCensus tracing.
	EnableTracingFlag = &cli.BoolFlag{
		Name:  "enable-tracing",
		Usage: "Enable request tracing",
	}
	// TracingEndpointFlag is the Jaeger collector endpoint.
	TracingEndpointFlag = &cli.StringFlag{
		Name:  "tracing-endpoint",
		Usage: "Tracing endpoint defines where tracing data should be sent to",
		Value: "http://127.0.0.1:14268/api/traces",
	}
	// TraceSampleFractionFlag is the fraction of spans sampled.
	TraceSampleFractionFlag = &cli.Float64Flag{
		Name:  "trace-sample-fraction",
		Usage: "Fraction of spans sampled for tracing",
		Value: 0.20,
	}
)

// AppFlags lists every flag of the binary.
var AppFlags = []cli.Flag{
	ConfigFileFlag,
	GRPCURLFlag,
	XTokenFlag,
	VoteAccountFlag,
	CommitmentFlag,
	AuditDirFlag,
	SimpleFlag,
	RenderIntervalFlag,
	ShutdownGraceFlag,
	VerbosityFlag,
	LogFormatFlag,
	LogFileFlag,
	MonitoringHostFlag,
	MonitoringPortFlag,
	DisableMonitoringFlag,
	EnableTracingFlag,
	TracingEndpointFlag,
	TraceSampleFractionFlag,
}

// DefaultVerbosity is the log level used when VerbosityFlag is not set.
func DefaultVerbosity(simple bool) string {
	if simple {
		return "info"
	}
	return "warn"
}

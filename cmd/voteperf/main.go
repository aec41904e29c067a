// Package main runs voteperf, a monitor that correlates the vote
// transactions of a Solana validator with the finalized blocks that include
// them and reports the timely vote credits it earns.
package main

import (
	"context"
	"fmt"
	"os"

	joonix "github.com/joonix/log"
	"github.com/prysmaticlabs/voteperf/cmd/voteperf/flags"
	"github.com/prysmaticlabs/voteperf/config"
	"github.com/prysmaticlabs/voteperf/io/logs"
	"github.com/prysmaticlabs/voteperf/monitoring/prometheus"
	"github.com/prysmaticlabs/voteperf/monitoring/tracing"
	"github.com/prysmaticlabs/voteperf/node"
	"github.com/prysmaticlabs/voteperf/runtime/prereqs"
	"github.com/prysmaticlabs/voteperf/runtime/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	_ "go.uber.org/automaxprocs"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.App{}
	app.Name = "voteperf"
	app.Usage = "monitors the vote latency and timely vote credits of a Solana validator"
	app.Version = version.Version()
	app.Flags = flags.AppFlags
	app.Action = startVoteMonitor
	app.Before = configureLogging

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func configureLogging(ctx *cli.Context) error {
	verbosity := ctx.String(flags.VerbosityFlag.Name)
	if verbosity == "" {
		verbosity = flags.DefaultVerbosity(ctx.Bool(flags.SimpleFlag.Name))
	}
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	format := ctx.String(flags.LogFormatFlag.Name)
	switch format {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		// ANSI colours are unreadable in log files.
		formatter.DisableColors = ctx.String(flags.LogFileFlag.Name) != ""
		logrus.SetFormatter(formatter)
	case "fluentd":
		logrus.SetFormatter(joonix.NewFormatter())
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %s", format)
	}
	logrus.AddHook(prometheus.NewLogrusCollector())

	if name := ctx.String(flags.LogFileFlag.Name); name != "" {
		if _, err := logs.ConfigurePersistentLogging(name); err != nil {
			log.WithError(err).Error("Failed to configure logging to disk")
		}
	}
	return nil
}

func startVoteMonitor(ctx *cli.Context) error {
	app, err := config.LoadOrDefault(ctx.Context, ctx.String(flags.ConfigFileFlag.Name))
	if err != nil {
		return err
	}
	applyOverrides(ctx, app)

	simple := ctx.Bool(flags.SimpleFlag.Name)
	if !simple && !prereqs.DashboardSupported() {
		simple = true
	}

	monitor, err := node.New(context.Background(), &node.Config{
		App:               app,
		Simple:            simple,
		RenderInterval:    ctx.Duration(flags.RenderIntervalFlag.Name),
		ShutdownGrace:     ctx.Duration(flags.ShutdownGraceFlag.Name),
		DisableMonitoring: ctx.Bool(flags.DisableMonitoringFlag.Name),
		MonitoringHost:    ctx.String(flags.MonitoringHostFlag.Name),
		MonitoringPort:    ctx.Int(flags.MonitoringPortFlag.Name),
		Tracing: tracing.Config{
			Enabled:        ctx.Bool(flags.EnableTracingFlag.Name),
			ServiceName:    "voteperf",
			Endpoint:       ctx.String(flags.TracingEndpointFlag.Name),
			SampleFraction: ctx.Float64(flags.TraceSampleFractionFlag.Name),
		},
	})
	if err != nil {
		return err
	}
	return monitor.Start()
}

// applyOverrides copies explicitly set flags over the file configuration.
func applyOverrides(ctx *cli.Context, app *config.Config) {
	if ctx.IsSet(flags.GRPCURLFlag.Name) {
		app.GRPCURL = ctx.String(flags.GRPCURLFlag.Name)
	}
	if ctx.IsSet(flags.XTokenFlag.Name) {
		app.XToken = ctx.String(flags.XTokenFlag.Name)
	}
	if ctx.IsSet(flags.VoteAccountFlag.Name) {
		app.VoteAccount = ctx.String(flags.VoteAccountFlag.Name)
	}
	if ctx.IsSet(flags.CommitmentFlag.Name) {
		app.Commitment = ctx.String(flags.CommitmentFlag.Name)
	}
	if ctx.IsSet(flags.AuditDirFlag.Name) {
		app.Audit.Dir = ctx.String(flags.AuditDirFlag.Name)
	}
}

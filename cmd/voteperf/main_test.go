package main

import (
	"flag"
	"testing"

	"github.com/prysmaticlabs/voteperf/cmd/voteperf/flags"
	"github.com/prysmaticlabs/voteperf/config"
	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	app := &cli.App{Flags: flags.AppFlags}
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags.AppFlags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

func TestApplyOverrides(t *testing.T) {
	ctx := newContext(t,
		"--grpc-url", "https://example.com",
		"--vote-account", "Vote111111111111111111111111111111111111111",
		"--commitment", "confirmed",
		"--audit-dir", "/tmp/audit",
	)
	app := config.Default()
	app.XToken = "from-file"
	applyOverrides(ctx, app)
	assert.Equal(t, "https://example.com", app.GRPCURL)
	assert.Equal(t, "Vote111111111111111111111111111111111111111", app.VoteAccount)
	assert.Equal(t, "confirmed", app.Commitment)
	assert.Equal(t, "/tmp/audit", app.Audit.Dir)
	assert.Equal(t, "from-file", app.XToken, "unset flags keep file values")
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	require.NoError(t, configureLogging(newContext(t)))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel(), "dashboard mode logs warnings only")

	require.NoError(t, configureLogging(newContext(t, "--simple")))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	require.NoError(t, configureLogging(newContext(t, "--verbosity", "debug", "--log-format", "json")))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.NotNil(t, configureLogging(newContext(t, "--verbosity", "loud")))
}

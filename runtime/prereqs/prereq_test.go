package prereqs

import (
	"testing"

	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
	logTest "github.com/sirupsen/logrus/hooks/test"
)

func stubHost(t *testing.T, terminal bool, os, termEnv string) {
	oldTerminal, oldGetenv, oldOS := stdoutIsTerminal, getenv, runtimeOS
	t.Cleanup(func() {
		stdoutIsTerminal, getenv, runtimeOS = oldTerminal, oldGetenv, oldOS
	})
	stdoutIsTerminal = func() bool { return terminal }
	getenv = func(key string) string {
		if key == "TERM" {
			return termEnv
		}
		return ""
	}
	runtimeOS = os
}

func TestCheckDashboard(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
		os       string
		term     string
		wantErr  error
	}{
		{name: "xterm", terminal: true, os: "linux", term: "xterm-256color"},
		{name: "piped", terminal: false, os: "linux", term: "xterm", wantErr: ErrNotTerminal},
		{name: "dumb", terminal: true, os: "darwin", term: "dumb", wantErr: ErrDumbTerminal},
		{name: "unset", terminal: true, os: "linux", term: "", wantErr: ErrDumbTerminal},
		{name: "windows console", terminal: true, os: "windows", term: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubHost(t, tt.terminal, tt.os, tt.term)
			err := CheckDashboard()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDashboardSupported(t *testing.T) {
	hook := logTest.NewGlobal()
	stubHost(t, false, "linux", "xterm")
	assert.Equal(t, false, DashboardSupported())
	require.LogsContain(t, hook, "falling back to simple logging")

	hook.Reset()
	stubHost(t, true, "linux", "xterm")
	assert.Equal(t, true, DashboardSupported())
	require.LogsDoNotContain(t, hook, "falling back")
}

// Package prereqs checks that the host can run the interactive dashboard.
package prereqs

import (
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var log = logrus.WithField("prefix", "prereqs")

var (
	// stdoutIsTerminal and getenv can be replaced in tests.
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	getenv           = os.Getenv
	runtimeOS        = runtime.GOOS
)

// Errors returned by CheckDashboard.
var (
	ErrNotTerminal  = errors.New("stdout is not a terminal")
	ErrDumbTerminal = errors.New("terminal does not support cursor movement")
)

// CheckDashboard returns an error if stdout cannot host the dashboard, which
// repaints lines in place with ANSI escape sequences.
func CheckDashboard() error {
	if !stdoutIsTerminal() {
		return ErrNotTerminal
	}
	if runtimeOS == "windows" {
		return nil
	}
	switch t := strings.TrimSpace(getenv("TERM")); t {
	case "", "dumb":
		return errors.Wrapf(ErrDumbTerminal, "TERM=%q", t)
	}
	return nil
}

// DashboardSupported runs CheckDashboard and warns with the reason when the
// dashboard cannot be used.
func DashboardSupported() bool {
	if err := CheckDashboard(); err != nil {
		log.WithError(err).Warn("Interactive dashboard unavailable, falling back to simple logging")
		return false
	}
	return true
}

// Package async includes helpers for scheduling periodic work.
package async

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "async")

// RunEvery runs f every period on clk until ctx is done. It returns
// immediately; the returned channel is closed once the loop has exited.
func RunEvery(ctx context.Context, clk clock.Clock, period time.Duration, f func()) <-chan struct{} {
	funcName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
	ticker := clk.Ticker(period)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.WithField("function", funcName).Trace("Running")
				f()
			case <-ctx.Done():
				log.WithField("function", funcName).Debug("Context is closed, exiting")
				return
			}
		}
	}()
	return done
}

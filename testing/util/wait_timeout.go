package util

import (
	"sync"
	"testing"
	"time"
)

// WaitTimeout waits for wg and reports whether the timeout expired first.
func WaitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		wg.Wait()
	}()
	return !WaitClosed(ch, timeout)
}

// WaitClosed reports whether ch was closed within timeout.
func WaitClosed(ch <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// RequireClosed fails the test if ch is not closed within timeout.
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	if !WaitClosed(ch, timeout) {
		t.Fatalf("not closed after %s", timeout)
	}
}

// Eventually polls cond every few milliseconds and fails the test if it is
// still false after timeout.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met after %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

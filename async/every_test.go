package async_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prysmaticlabs/voteperf/async"
	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
)

func TestRunEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clk := clock.NewMock()
	var runs int32
	ran := make(chan struct{}, 10)
	done := async.RunEvery(ctx, clk, time.Second, func() {
		atomic.AddInt32(&runs, 1)
		ran <- struct{}{}
	})

	for i := 0; i < 3; i++ {
		clk.Add(time.Second)
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatalf("tick %d did not run the function", i)
		}
	}
	require.Equal(t, int32(3), atomic.LoadInt32(&runs))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after cancel")
	}
	clk.Add(5 * time.Second)
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

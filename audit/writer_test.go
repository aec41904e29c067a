package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
)

func testEvent(ts time.Time, slot uint64) Event {
	return Event{
		Timestamp:            ts,
		LandedSlot:           slot + 4,
		VotedSlot:            slot,
		Latency:              4,
		TVCCredits:           14,
		TransactionSignature: "5VfYmGBjvQKe",
		VoteAccount:          "Vote111",
		TotalTVCCredits:      14,
		TotalVotedSlots:      1,
		TVCMultiplier:        CreditRatio(14),
		SessionID:            "session",
	}
}

func readLines(t *testing.T, name string) []Event {
	f, err := os.Open(name) // #nosec G304
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		out = append(out, ev)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestWriter_FlushOnBatchSize(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	w, err := NewWriter(WriterConfig{Dir: dir, BatchSize: 3, FlushInterval: time.Hour, Clock: clk})
	require.NoError(t, err)

	require.NoError(t, w.Publish(testEvent(clk.Now(), 1)))
	require.NoError(t, w.Publish(testEvent(clk.Now(), 2)))
	assert.Equal(t, 2, w.Pending())
	_, err = os.Stat(FileName(dir, clk.Now()))
	assert.Equal(t, true, os.IsNotExist(err))

	require.NoError(t, w.Publish(testEvent(clk.Now(), 3)))
	assert.Equal(t, 0, w.Pending())
	events := readLines(t, filepath.Join(dir, "performance_issues_2024-03-01.json"))
	require.Equal(t, 3, len(events))
	assert.Equal(t, uint64(3), events[2].VotedSlot)
	assert.Equal(t, 0.875, events[0].TVCMultiplier)
	assert.Equal(t, "session", events[0].SessionID)
}

func TestWriter_FlushOnInterval(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewMock()
	w, err := NewWriter(WriterConfig{Dir: dir, BatchSize: 100, FlushInterval: 5 * time.Second, Clock: clk})
	require.NoError(t, err)

	require.NoError(t, w.Publish(testEvent(clk.Now(), 1)))
	assert.Equal(t, 1, w.Pending())
	clk.Add(6 * time.Second)
	require.NoError(t, w.Publish(testEvent(clk.Now(), 2)))
	assert.Equal(t, 0, w.Pending())
	assert.Equal(t, 2, len(readLines(t, FileName(dir, clk.Now()))))
}

func TestWriter_DailyFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(WriterConfig{Dir: dir, BatchSize: 10, FlushInterval: time.Hour, Clock: clock.NewMock()})
	require.NoError(t, err)
	day1 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	// 01:30 on March 2nd in UTC+2 is still March 1st in UTC.
	sameDay := time.Date(2024, 3, 2, 1, 30, 0, 0, time.FixedZone("EET", 2*3600))
	day2 := time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)
	require.NoError(t, w.Publish(testEvent(day1, 1)))
	require.NoError(t, w.Publish(testEvent(sameDay, 2)))
	require.NoError(t, w.Publish(testEvent(day2, 3)))
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, len(readLines(t, filepath.Join(dir, "performance_issues_2024-03-01.json"))))
	assert.Equal(t, 1, len(readLines(t, filepath.Join(dir, "performance_issues_2024-03-02.json"))))

	// Appends to existing files.
	require.NoError(t, w.Publish(testEvent(day2, 4)))
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, len(readLines(t, filepath.Join(dir, "performance_issues_2024-03-02.json"))))
}

func TestWriter_StopFlushes(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewMock()
	w, err := NewWriter(WriterConfig{Dir: dir, Clock: clk})
	require.NoError(t, err)
	w.Start()
	require.NoError(t, w.Publish(testEvent(clk.Now(), 1)))
	require.NoError(t, w.Stop())
	assert.Equal(t, 1, len(readLines(t, FileName(dir, clk.Now()))))
	require.NoError(t, w.Status())
}

func TestWriter_WriteFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	clk := clock.NewMock()
	w, err := NewWriter(WriterConfig{Dir: filepath.Join(blocker, "sub"), BatchSize: 1, Clock: clk})
	require.NoError(t, err)

	err = w.Publish(testEvent(clk.Now(), 1))
	assert.ErrorContains(t, "could not create audit directory", err)
	assert.ErrorContains(t, "audit writer", w.Status())
	assert.Equal(t, 0, w.Pending(), "failed batches are dropped")
}

func TestNewWriter_Defaults(t *testing.T) {
	w, err := NewWriter(WriterConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDir, w.cfg.Dir)
	assert.Equal(t, DefaultBatchSize, w.cfg.BatchSize)
	assert.Equal(t, DefaultFlushInterval, w.cfg.FlushInterval)
	_, err = NewWriter(WriterConfig{BatchSize: -1})
	assert.ErrorContains(t, "batch size must be positive", err)
}

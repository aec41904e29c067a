package audit

import (
	"testing"

	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
)

func u64(v uint64) *uint64 {
	return &v
}

func TestFilter_ShouldSave(t *testing.T) {
	f := Filter{Enabled: true, MinLatency: u64(1), MaxCredits: u64(15)}
	assert.Equal(t, false, f.ShouldSave(0, 16), "latency below minimum")
	assert.Equal(t, true, f.ShouldSave(3, 13), "late vote")
	assert.Equal(t, false, f.ShouldSave(1, 16), "full credit is never saved")
	assert.Equal(t, false, f.ShouldSave(40, 16), "full credit regardless of latency")

	f.Enabled = false
	assert.Equal(t, false, f.ShouldSave(3, 13), "disabled")
	var nilFilter *Filter
	assert.Equal(t, false, nilFilter.ShouldSave(3, 13))
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		latency uint64
		earned  uint64
		want    bool
	}{
		{name: "no constraints", filter: Filter{}, latency: 0, earned: 16, want: true},
		{name: "max latency", filter: Filter{MaxLatency: u64(5)}, latency: 6, earned: 12, want: false},
		{name: "min credits", filter: Filter{MinCredits: u64(4)}, latency: 17, earned: 1, want: false},
		{name: "level match case insensitive", filter: Filter{Levels: []string{"POOR"}}, latency: 10, earned: 6, want: true},
		{name: "level mismatch", filter: Filter{Levels: []string{"critical"}}, latency: 10, earned: 6, want: false},
		{name: "all constraints", filter: Filter{MinLatency: u64(3), MaxLatency: u64(20), MinCredits: u64(1), MaxCredits: u64(15), Levels: []string{"good", "fair"}}, latency: 7, earned: 11, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.latency, tt.earned))
		})
	}
}

func TestDefaultFilter(t *testing.T) {
	f := DefaultFilter()
	require.NoError(t, f.Validate())
	assert.Equal(t, "latency >= 1, tvc <= 15, levels: [poor, critical]", f.Describe())
	assert.Equal(t, true, f.ShouldSave(12, 6))
	assert.Equal(t, false, f.ShouldSave(4, 14), "good tier is not in the default levels")
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr string
	}{
		{name: "latency bounds", filter: Filter{MinLatency: u64(5), MaxLatency: u64(2)}, wantErr: "min_latency_threshold (5) > max_latency_threshold (2)"},
		{name: "credit bounds", filter: Filter{MinCredits: u64(10), MaxCredits: u64(8)}, wantErr: "min_tvc_threshold (10) > max_tvc_threshold (8)"},
		{name: "max credit", filter: Filter{MaxCredits: u64(17)}, wantErr: "cannot exceed 16"},
		{name: "zero min credit", filter: Filter{MinCredits: u64(0)}, wantErr: "min_tvc_threshold cannot be 0"},
		{name: "unknown level", filter: Filter{Levels: []string{"terrible"}}, wantErr: "valid levels: optimal, good, fair, poor, critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			require.ErrorIs(t, err, ErrInvalidFilter)
			assert.ErrorContains(t, tt.wantErr, err)
		})
	}
	ok := Filter{MinLatency: u64(2), MaxLatency: u64(2), Levels: []string{"Optimal"}}
	assert.NoError(t, ok.Validate())
}

func TestFilter_Describe(t *testing.T) {
	assert.Equal(t, "disabled", (&Filter{}).Describe())
	assert.Equal(t, "all votes", (&Filter{Enabled: true}).Describe())
	f := Filter{Enabled: true, MaxLatency: u64(8), MinCredits: u64(2)}
	assert.Equal(t, "latency <= 8, tvc >= 2", f.Describe())
}

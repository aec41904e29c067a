package voteinstruction_test

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/encoding/voteinstruction"
	"github.com/prysmaticlabs/voteperf/testing/assert"
	"github.com/prysmaticlabs/voteperf/testing/require"
	"github.com/prysmaticlabs/voteperf/testing/util"
)

func TestParse_Vote(t *testing.T) {
	slots, err := voteinstruction.Parse(util.EncodeVote(100, 101, 102))
	require.NoError(t, err)
	require.DeepEqual(t, []voteinstruction.SlotInfo{
		{Slot: 100, ConfirmationCount: 1},
		{Slot: 101, ConfirmationCount: 1},
		{Slot: 102, ConfirmationCount: 1},
	}, slots)
	for _, s := range slots {
		assert.Equal(t, true, s.IsNewVote())
		assert.Equal(t, false, s.IsTowerVote())
	}
}

func TestParse_UpdateVoteState(t *testing.T) {
	lockouts := []util.Lockout{{Slot: 10, ConfirmationCount: 3}, {Slot: 11, ConfirmationCount: 2}, {Slot: 12, ConfirmationCount: 1}}
	ix, err := voteinstruction.Decode(util.EncodeUpdateVoteState(util.Uint64(9), lockouts...))
	require.NoError(t, err)
	assert.Equal(t, voteinstruction.KindUpdateVoteState, ix.Kind)
	require.NotNil(t, ix.Root)
	assert.Equal(t, uint64(9), *ix.Root)
	require.DeepEqual(t, lockouts, ix.Slots)
	assert.IsNil(t, ix.Timestamp)

	ix, err = voteinstruction.Decode(util.EncodeUpdateVoteState(nil, lockouts...))
	require.NoError(t, err)
	assert.IsNil(t, ix.Root)
}

func TestParse_CompactUpdateVoteState(t *testing.T) {
	tower := util.TowerFor(5000, 4)
	ix, err := voteinstruction.Decode(util.EncodeCompactUpdateVoteState(util.Uint64(4900), tower...))
	require.NoError(t, err)
	require.DeepEqual(t, tower, ix.Slots)
	require.NotNil(t, ix.Timestamp)
	assert.Equal(t, int64(1700000000), *ix.Timestamp)
	assert.Equal(t, true, ix.Slots[3].IsNewVote())
	assert.Equal(t, true, ix.Slots[0].IsTowerVote())
}

func TestParse_CompactWithoutRoot(t *testing.T) {
	// Without a root, offsets accumulate from zero.
	ix, err := voteinstruction.Decode(util.EncodeCompactUpdateVoteState(nil, util.Lockout{Slot: 300, ConfirmationCount: 1}))
	require.NoError(t, err)
	assert.IsNil(t, ix.Root)
	require.DeepEqual(t, []voteinstruction.SlotInfo{{Slot: 300, ConfirmationCount: 1}}, ix.Slots)
}

func TestParse_TowerSync(t *testing.T) {
	tower := util.TowerFor(250_000_000, 31)
	slots, err := voteinstruction.Parse(util.EncodeTowerSync(util.Uint64(249_999_900), tower...))
	require.NoError(t, err)
	require.Equal(t, 31, len(slots))
	assert.Equal(t, uint64(250_000_000), slots[30].Slot)
	assert.Equal(t, uint32(31), slots[0].ConfirmationCount)
}

func TestParse_TrailingBytesAllowed(t *testing.T) {
	data := append(util.EncodeVote(42), 0xde, 0xad)
	slots, err := voteinstruction.Parse(data)
	require.NoError(t, err)
	require.Equal(t, 1, len(slots))
}

func TestParse_Unsupported(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, 3) // Withdraw
	_, err := voteinstruction.Parse(append(data, make([]byte, 8)...))
	require.ErrorIs(t, err, voteinstruction.ErrUnsupported)
	var perr *voteinstruction.ParseError
	require.Equal(t, true, errors.As(err, &perr))
	assert.Equal(t, voteinstruction.Kind(3), perr.Kind)
	assert.StringContains(t, "Unknown(3)", err.Error())
}

func TestParse_Malformed(t *testing.T) {
	full := util.EncodeTowerSync(util.Uint64(10), util.TowerFor(20, 3)...)
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short discriminant", data: []byte{2, 0}},
		{name: "truncated vote", data: util.EncodeVote(1, 2, 3)[:20]},
		{name: "huge vector length", data: binary.LittleEndian.AppendUint64(binary.LittleEndian.AppendUint32(nil, 2), 1<<40)},
		{name: "truncated tower sync", data: full[:len(full)-1]},
		{name: "oversized payload", data: make([]byte, voteinstruction.MaxPayloadSize+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := voteinstruction.Parse(tt.data)
			require.ErrorIs(t, err, voteinstruction.ErrMalformed)
		})
	}
}

func TestParse_BadOptionTag(t *testing.T) {
	data := util.EncodeVote(7)
	data[len(data)-1] = 2
	_, err := voteinstruction.Parse(data)
	require.ErrorContains(t, "invalid option tag", err)
}

func TestParse_SlotOverflow(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, uint32(voteinstruction.KindCompactUpdateVoteState))
	data = binary.LittleEndian.AppendUint64(data, ^uint64(0)-1)
	data = append(data, 1)                                                          // one lockout
	data = append(data, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01) // offset max u64
	data = append(data, 1)
	data = append(data, make([]byte, 33)...)
	_, err := voteinstruction.Parse(data)
	require.ErrorContains(t, "overflows", err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "TowerSync", voteinstruction.KindTowerSync.String())
	assert.Equal(t, "Unknown(99)", voteinstruction.Kind(99).String())
}

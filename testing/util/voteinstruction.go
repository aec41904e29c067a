package util

import (
	"encoding/binary"
	"math"

	"github.com/prysmaticlabs/voteperf/encoding/voteinstruction"
)

// Lockout is a slot and confirmation count in a tower vote.
type Lockout = voteinstruction.SlotInfo

func putU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func putU64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

func putTail(b []byte, ts *int64) []byte {
	b = append(b, make([]byte, voteinstruction.HashLength)...)
	if ts == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	return putU64(b, uint64(*ts))
}

func putShortVecLen(b []byte, n int) []byte {
	v := uint16(n)
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func putVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// EncodeVote builds a legacy Vote instruction for slots.
func EncodeVote(slots ...uint64) []byte {
	b := putU32(nil, uint32(voteinstruction.KindVote))
	b = putU64(b, uint64(len(slots)))
	for _, s := range slots {
		b = putU64(b, s)
	}
	return putTail(b, nil)
}

// EncodeUpdateVoteState builds an UpdateVoteState instruction. A nil root is encoded as None.
func EncodeUpdateVoteState(root *uint64, lockouts ...Lockout) []byte {
	b := putU32(nil, uint32(voteinstruction.KindUpdateVoteState))
	b = putU64(b, uint64(len(lockouts)))
	for _, l := range lockouts {
		b = putU64(b, l.Slot)
		b = putU32(b, l.ConfirmationCount)
	}
	if root == nil {
		b = append(b, 0)
	} else {
		b = append(b, 1)
		b = putU64(b, *root)
	}
	return putTail(b, nil)
}

func encodeCompact(kind voteinstruction.Kind, root *uint64, lockouts []Lockout) []byte {
	b := putU32(nil, uint32(kind))
	prev := uint64(0)
	if root == nil {
		b = putU64(b, math.MaxUint64)
	} else {
		b = putU64(b, *root)
		prev = *root
	}
	b = putShortVecLen(b, len(lockouts))
	for _, l := range lockouts {
		b = putVarint(b, l.Slot-prev)
		b = append(b, byte(l.ConfirmationCount))
		prev = l.Slot
	}
	ts := int64(1700000000)
	return putTail(b, &ts)
}

// EncodeCompactUpdateVoteState builds a CompactUpdateVoteState instruction.
// Lockouts must be in ascending slot order.
func EncodeCompactUpdateVoteState(root *uint64, lockouts ...Lockout) []byte {
	return encodeCompact(voteinstruction.KindCompactUpdateVoteState, root, lockouts)
}

// EncodeTowerSync builds a TowerSync instruction.
// Lockouts must be in ascending slot order.
func EncodeTowerSync(root *uint64, lockouts ...Lockout) []byte {
	b := encodeCompact(voteinstruction.KindTowerSync, root, lockouts)
	return append(b, make([]byte, voteinstruction.HashLength)...)
}

// TowerFor returns lockouts for consecutive slots ending at top, the oldest
// with the highest confirmation count, the way a validator tower looks.
func TowerFor(top uint64, depth int) []Lockout {
	out := make([]Lockout, 0, depth)
	for i := depth - 1; i >= 0; i-- {
		out = append(out, Lockout{Slot: top - uint64(i), ConfirmationCount: uint32(i + 1)})
	}
	return out
}

// Uint64 returns a pointer to v.
func Uint64(v uint64) *uint64 {
	return &v
}

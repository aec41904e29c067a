// Package voteinstruction decodes the bincode payload of Solana vote program
// instructions into the slots the validator voted on.
package voteinstruction

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// HashLength is the size of a bank hash or block id.
	HashLength = 32
	// MaxPayloadSize is the largest instruction payload accepted, the size of
	// a Solana transaction packet.
	MaxPayloadSize = 1232
)

// Kind is the VoteInstruction discriminant.
type Kind uint32

// Supported vote carrying instruction kinds.
const (
	KindVote                         Kind = 2
	KindVoteSwitch                   Kind = 6
	KindUpdateVoteState              Kind = 8
	KindUpdateVoteStateSwitch        Kind = 9
	KindCompactUpdateVoteState       Kind = 12
	KindCompactUpdateVoteStateSwitch Kind = 13
	KindTowerSync                    Kind = 14
	KindTowerSyncSwitch              Kind = 15
)

var kindNames = map[Kind]string{
	KindVote:                         "Vote",
	KindVoteSwitch:                   "VoteSwitch",
	KindUpdateVoteState:              "UpdateVoteState",
	KindUpdateVoteStateSwitch:        "UpdateVoteStateSwitch",
	KindCompactUpdateVoteState:       "CompactUpdateVoteState",
	KindCompactUpdateVoteStateSwitch: "CompactUpdateVoteStateSwitch",
	KindTowerSync:                    "TowerSync",
	KindTowerSyncSwitch:              "TowerSyncSwitch",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", uint32(k))
}

// SlotInfo is one voted slot and the confirmation count the vote assigns it.
// A tower vote carries the full lockout stack so older slots show up with
// higher counts.
type SlotInfo struct {
	Slot              uint64
	ConfirmationCount uint32
}

// IsNewVote reports whether this is the slot being voted on for the first time.
func (s SlotInfo) IsNewVote() bool {
	return s.ConfirmationCount == 1
}

// IsTowerVote reports whether the slot is an older lockout re-stated by the tower.
func (s SlotInfo) IsTowerVote() bool {
	return s.ConfirmationCount > 1
}

// Instruction is a decoded vote instruction.
type Instruction struct {
	Kind      Kind
	Slots     []SlotInfo
	Root      *uint64
	Hash      [HashLength]byte
	Timestamp *int64
}

// Parse decodes data and returns the voted slots in payload order.
func Parse(data []byte) ([]SlotInfo, error) {
	ix, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ix.Slots, nil
}

// Decode decodes a full vote instruction. Trailing bytes are ignored.
func Decode(data []byte) (*Instruction, error) {
	if len(data) > MaxPayloadSize {
		return nil, &ParseError{Reason: fmt.Sprintf("payload of %d bytes exceeds %d", len(data), MaxPayloadSize), Err: ErrMalformed}
	}
	if len(data) < 4 {
		return nil, &ParseError{Reason: "missing discriminant", Err: ErrMalformed}
	}
	kind := Kind(binary.LittleEndian.Uint32(data))
	r := &reader{data: data, off: 4, kind: kind}
	ix := &Instruction{Kind: kind}
	var err error
	switch kind {
	case KindVote, KindVoteSwitch:
		err = decodeVote(r, ix)
	case KindUpdateVoteState, KindUpdateVoteStateSwitch:
		err = decodeVoteStateUpdate(r, ix)
	case KindCompactUpdateVoteState, KindCompactUpdateVoteStateSwitch:
		err = decodeCompact(r, ix, false)
	case KindTowerSync, KindTowerSyncSwitch:
		err = decodeCompact(r, ix, true)
	default:
		return nil, &ParseError{Kind: kind, Offset: 0, Reason: "instruction carries no votes", Err: ErrUnsupported}
	}
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// Vote { slots: Vec<u64>, hash, timestamp: Option<i64> }
func decodeVote(r *reader, ix *Instruction) error {
	n, err := r.vecLen(8)
	if err != nil {
		return err
	}
	ix.Slots = make([]SlotInfo, 0, n)
	for i := 0; i < n; i++ {
		slot, err := r.u64()
		if err != nil {
			return err
		}
		ix.Slots = append(ix.Slots, SlotInfo{Slot: slot, ConfirmationCount: 1})
	}
	return decodeTail(r, ix)
}

// VoteStateUpdate { lockouts: Vec<Lockout>, root: Option<u64>, hash, timestamp }
func decodeVoteStateUpdate(r *reader, ix *Instruction) error {
	n, err := r.vecLen(12)
	if err != nil {
		return err
	}
	ix.Slots = make([]SlotInfo, 0, n)
	for i := 0; i < n; i++ {
		slot, err := r.u64()
		if err != nil {
			return err
		}
		conf, err := r.u32()
		if err != nil {
			return err
		}
		ix.Slots = append(ix.Slots, SlotInfo{Slot: slot, ConfirmationCount: conf})
	}
	root, ok, err := r.optionU64()
	if err != nil {
		return err
	}
	if ok {
		ix.Root = &root
	}
	return decodeTail(r, ix)
}

// Compact layout: root u64 (u64::MAX means none), short_vec of
// {varint slot offset, u8 confirmation count}, hash, timestamp and, for
// tower sync, the block id.
func decodeCompact(r *reader, ix *Instruction, withBlockID bool) error {
	root, err := r.u64()
	if err != nil {
		return err
	}
	slot := uint64(0)
	if root != math.MaxUint64 {
		ix.Root = &root
		slot = root
	}
	n, err := r.shortVecLen(2)
	if err != nil {
		return err
	}
	ix.Slots = make([]SlotInfo, 0, n)
	for i := 0; i < n; i++ {
		offset, err := r.varint()
		if err != nil {
			return err
		}
		conf, err := r.u8()
		if err != nil {
			return err
		}
		if slot > math.MaxUint64-offset {
			return r.fail("slot offset overflows u64")
		}
		slot += offset
		ix.Slots = append(ix.Slots, SlotInfo{Slot: slot, ConfirmationCount: uint32(conf)})
	}
	if err := decodeTail(r, ix); err != nil {
		return err
	}
	if withBlockID {
		if _, err := r.hash(); err != nil {
			return err
		}
	}
	return nil
}

func decodeTail(r *reader, ix *Instruction) error {
	h, err := r.hash()
	if err != nil {
		return err
	}
	ix.Hash = h
	ts, ok, err := r.optionU64()
	if err != nil {
		return err
	}
	if ok {
		v := int64(ts)
		ix.Timestamp = &v
	}
	return nil
}

// Package stream defines the model of the validator update stream: the
// subscription request sent upstream and the closed set of updates received.
package stream

import (
	"bytes"
	"fmt"
)

// VoteProgramID is the vote program address, Vote111111111111111111111111111111111111111.
var VoteProgramID = [32]byte{
	7, 97, 72, 29, 53, 116, 116, 187, 124, 77, 118, 36, 235, 211, 189, 179,
	216, 53, 94, 115, 209, 16, 67, 252, 13, 163, 83, 128, 0, 0, 0, 0,
}

// Update is one message received from the stream. The concrete type is one of
// *TransactionUpdate, *BlockUpdate, *PingUpdate, *PongUpdate or *UnknownUpdate.
type Update interface {
	isUpdate()
}

// TransactionUpdate is a transaction observed at Slot.
type TransactionUpdate struct {
	Slot uint64
	Info *TransactionInfo
}

// BlockUpdate is a block at the subscribed commitment level.
type BlockUpdate struct {
	Slot         uint64
	ParentSlot   uint64
	Blockhash    string
	Transactions []*TransactionInfo
}

// PingUpdate is a keepalive request that must be answered with a ping request.
type PingUpdate struct{}

// PongUpdate acknowledges a ping sent by the client.
type PongUpdate struct {
	ID int32
}

// UnknownUpdate carries any update kind the engine does not consume.
type UnknownUpdate struct {
	Field uint32
}

func (*TransactionUpdate) isUpdate() {}
func (*BlockUpdate) isUpdate()       {}
func (*PingUpdate) isUpdate()        {}
func (*PongUpdate) isUpdate()        {}
func (*UnknownUpdate) isUpdate()     {}

// TransactionInfo is a transaction together with its stream metadata.
type TransactionInfo struct {
	Signature   []byte
	IsVote      bool
	Index       uint64
	Transaction *Transaction
}

// Transaction is a signed message.
type Transaction struct {
	Signatures [][]byte
	Message    *Message
}

// Message is the instruction list of a transaction.
type Message struct {
	AccountKeys  [][]byte
	Instructions []CompiledInstruction
	Versioned    bool
}

// CompiledInstruction references its program by index into the account keys.
type CompiledInstruction struct {
	ProgramIDIndex uint32
	Accounts       []byte
	Data           []byte
}

// FirstSignature returns the transaction id, the first signature.
func (t *Transaction) FirstSignature() ([]byte, bool) {
	if t == nil || len(t.Signatures) == 0 {
		return nil, false
	}
	return t.Signatures[0], true
}

// ProgramID resolves the program an instruction invokes. Programs loaded from
// address lookup tables cannot be resolved and report false.
func (m *Message) ProgramID(ix CompiledInstruction) ([]byte, bool) {
	if m == nil || int(ix.ProgramIDIndex) >= len(m.AccountKeys) {
		return nil, false
	}
	return m.AccountKeys[ix.ProgramIDIndex], true
}

// VoteInstructions returns the payloads of all instructions invoking the vote program.
func (m *Message) VoteInstructions() [][]byte {
	if m == nil {
		return nil
	}
	var out [][]byte
	for _, ix := range m.Instructions {
		id, ok := m.ProgramID(ix)
		if ok && bytes.Equal(id, VoteProgramID[:]) {
			out = append(out, ix.Data)
		}
	}
	return out
}

// HasAccount reports whether key is one of the static account keys.
func (m *Message) HasAccount(key []byte) bool {
	if m == nil {
		return false
	}
	for _, k := range m.AccountKeys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}

// Describe names an update kind for logs.
func Describe(u Update) string {
	switch v := u.(type) {
	case *TransactionUpdate:
		return fmt.Sprintf("transaction(slot=%d)", v.Slot)
	case *BlockUpdate:
		return fmt.Sprintf("block(slot=%d txs=%d)", v.Slot, len(v.Transactions))
	case *PingUpdate:
		return "ping"
	case *PongUpdate:
		return fmt.Sprintf("pong(id=%d)", v.ID)
	case *UnknownUpdate:
		return fmt.Sprintf("unknown(field=%d)", v.Field)
	default:
		return "nil"
	}
}

package util

import (
	"github.com/prysmaticlabs/voteperf/stream"
)

// Signature returns a deterministic 64 byte signature derived from seed.
func Signature(seed byte) []byte {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = seed + byte(i)
	}
	return sig
}

// VoteAccount returns a deterministic 32 byte vote account key.
func VoteAccount() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(0xa0 + i)
	}
	return key
}

// VoteTransactionInfo builds a vote transaction signed by sig whose
// instructions invoke the vote program with the given payloads.
func VoteTransactionInfo(sig []byte, payloads ...[]byte) *stream.TransactionInfo {
	ixs := make([]stream.CompiledInstruction, 0, len(payloads))
	for _, p := range payloads {
		ixs = append(ixs, stream.CompiledInstruction{ProgramIDIndex: 2, Accounts: []byte{1, 0}, Data: p})
	}
	return &stream.TransactionInfo{
		Signature: sig,
		IsVote:    true,
		Transaction: &stream.Transaction{
			Signatures: [][]byte{sig},
			Message: &stream.Message{
				AccountKeys:  [][]byte{make([]byte, 32), VoteAccount(), stream.VoteProgramID[:]},
				Instructions: ixs,
			},
		},
	}
}

// VoteTransaction wraps VoteTransactionInfo in an update observed at slot.
func VoteTransaction(slot uint64, sig []byte, payloads ...[]byte) *stream.TransactionUpdate {
	return &stream.TransactionUpdate{Slot: slot, Info: VoteTransactionInfo(sig, payloads...)}
}

// Block builds a block update at slot carrying txs.
func Block(slot uint64, txs ...*stream.TransactionInfo) *stream.BlockUpdate {
	return &stream.BlockUpdate{
		Slot:         slot,
		ParentSlot:   slot - 1,
		Blockhash:    "11111111111111111111111111111111",
		Transactions: txs,
	}
}

package geyser

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/stream"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the geyser.proto messages used by the engine.
const (
	requestTransactions protowire.Number = 3
	requestBlocks       protowire.Number = 4
	requestCommitment   protowire.Number = 6
	requestPing         protowire.Number = 9

	txFilterVote            protowire.Number = 1
	txFilterFailed          protowire.Number = 2
	txFilterAccountInclude  protowire.Number = 3
	txFilterAccountExclude  protowire.Number = 4
	txFilterSignature       protowire.Number = 5
	txFilterAccountRequired protowire.Number = 6

	blockFilterAccountInclude      protowire.Number = 1
	blockFilterIncludeTransactions protowire.Number = 2
	blockFilterIncludeAccounts     protowire.Number = 3
	blockFilterIncludeEntries      protowire.Number = 4

	updateTransaction protowire.Number = 4
	updateBlock       protowire.Number = 5
	updatePing        protowire.Number = 6
	updatePong        protowire.Number = 9

	txUpdateInfo protowire.Number = 1
	txUpdateSlot protowire.Number = 2

	txInfoSignature   protowire.Number = 1
	txInfoIsVote      protowire.Number = 2
	txInfoTransaction protowire.Number = 3
	txInfoIndex       protowire.Number = 5

	transactionSignatures protowire.Number = 1
	transactionMessage    protowire.Number = 2

	messageAccountKeys  protowire.Number = 2
	messageInstructions protowire.Number = 4
	messageVersioned    protowire.Number = 5

	instructionProgramIDIndex protowire.Number = 1
	instructionAccounts       protowire.Number = 2
	instructionData           protowire.Number = 3

	blockSlot         protowire.Number = 1
	blockBlockhash    protowire.Number = 2
	blockTransactions protowire.Number = 6
	blockParentSlot   protowire.Number = 7

	pongID protowire.Number = 1
)

// ErrUnexpectedMessage is returned when the codec is handed a type it does not frame.
var ErrUnexpectedMessage = errors.New("unexpected message type")

// codec frames SubscribeRequest and SubscribeUpdate on the wire. It registers
// as "proto" so the server sees the regular application/grpc+proto content type.
type codec struct{}

// updateFrame receives one decoded update.
type updateFrame struct {
	update stream.Update
}

func (codec) Name() string {
	return "proto"
}

func (codec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case *stream.SubscribeRequest:
		return marshalSubscribeRequest(m), nil
	case []byte:
		return m, nil
	default:
		return nil, errors.Wrapf(ErrUnexpectedMessage, "marshal %T", v)
	}
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	switch m := v.(type) {
	case *updateFrame:
		// Decoded slices alias the buffer, which the transport may reuse.
		u, err := unmarshalSubscribeUpdate(append([]byte(nil), data...))
		if err != nil {
			return err
		}
		m.update = u
		return nil
	case *[]byte:
		*m = append((*m)[:0], data...)
		return nil
	default:
		return errors.Wrapf(ErrUnexpectedMessage, "unmarshal %T", v)
	}
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendStrings(b []byte, num protowire.Number, ss []string) []byte {
	for _, s := range ss {
		b = appendString(b, num, s)
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendOptionalBool writes explicitly set proto3 optional fields, false included.
func appendOptionalBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	return appendVarint(b, num, protowire.EncodeBool(*v))
}

// appendMapEntry writes one entry of a map<string, Message> field.
func appendMapEntry(b []byte, num protowire.Number, key string, value []byte) []byte {
	entry := appendString(nil, 1, key)
	entry = appendMessage(entry, 2, value)
	return appendMessage(b, num, entry)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshalSubscribeRequest(req *stream.SubscribeRequest) []byte {
	var b []byte
	for _, name := range sortedKeys(req.Transactions) {
		b = appendMapEntry(b, requestTransactions, name, marshalTransactionFilter(req.Transactions[name]))
	}
	for _, name := range sortedKeys(req.Blocks) {
		b = appendMapEntry(b, requestBlocks, name, marshalBlockFilter(req.Blocks[name]))
	}
	if req.Commitment != nil {
		b = appendVarint(b, requestCommitment, uint64(*req.Commitment))
	}
	if req.Ping != nil {
		var ping []byte
		if req.Ping.ID != 0 {
			ping = appendVarint(ping, 1, uint64(req.Ping.ID))
		}
		b = appendMessage(b, requestPing, ping)
	}
	return b
}

func marshalTransactionFilter(f *stream.TransactionFilter) []byte {
	if f == nil {
		return nil
	}
	var b []byte
	b = appendOptionalBool(b, txFilterVote, f.Vote)
	b = appendOptionalBool(b, txFilterFailed, f.Failed)
	b = appendStrings(b, txFilterAccountInclude, f.AccountInclude)
	b = appendStrings(b, txFilterAccountExclude, f.AccountExclude)
	if f.Signature != nil {
		b = appendString(b, txFilterSignature, *f.Signature)
	}
	b = appendStrings(b, txFilterAccountRequired, f.AccountRequired)
	return b
}

func marshalBlockFilter(f *stream.BlockFilter) []byte {
	if f == nil {
		return nil
	}
	var b []byte
	b = appendStrings(b, blockFilterAccountInclude, f.AccountInclude)
	b = appendOptionalBool(b, blockFilterIncludeTransactions, f.IncludeTransactions)
	b = appendOptionalBool(b, blockFilterIncludeAccounts, f.IncludeAccounts)
	b = appendOptionalBool(b, blockFilterIncludeEntries, f.IncludeEntries)
	return b
}

// field is one decoded tag and its still-encoded value.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	value []byte
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, errors.Errorf("field %d: want length-delimited, got wire type %d", f.num, f.typ)
	}
	v, n := protowire.ConsumeBytes(f.value)
	if n < 0 {
		return nil, errors.Wrapf(protowire.ParseError(n), "field %d", f.num)
	}
	return v, nil
}

func (f field) varint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, errors.Errorf("field %d: want varint, got wire type %d", f.num, f.typ)
	}
	v, n := protowire.ConsumeVarint(f.value)
	if n < 0 {
		return 0, errors.Wrapf(protowire.ParseError(n), "field %d", f.num)
	}
	return v, nil
}

// walk calls fn for every field of an encoded message. Unknown fields are
// handed to fn as well and it is up to fn to ignore them.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "could not read tag")
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return errors.Wrapf(protowire.ParseError(m), "could not read field %d", num)
		}
		if err := fn(field{num: num, typ: typ, value: b[:m]}); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func unmarshalSubscribeUpdate(b []byte) (stream.Update, error) {
	var u stream.Update
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case updateTransaction:
			var msg []byte
			if msg, err = f.bytes(); err == nil {
				u, err = unmarshalTransactionUpdate(msg)
			}
		case updateBlock:
			var msg []byte
			if msg, err = f.bytes(); err == nil {
				u, err = unmarshalBlock(msg)
			}
		case updatePing:
			u = &stream.PingUpdate{}
		case updatePong:
			var msg []byte
			if msg, err = f.bytes(); err == nil {
				u, err = unmarshalPong(msg)
			}
		case 1, 11:
			// filters, created_at
		default:
			if u == nil {
				u = &stream.UnknownUpdate{Field: uint32(f.num)}
			}
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not decode subscribe update")
	}
	if u == nil {
		u = &stream.UnknownUpdate{}
	}
	return u, nil
}

func unmarshalPong(b []byte) (*stream.PongUpdate, error) {
	p := &stream.PongUpdate{}
	err := walk(b, func(f field) error {
		if f.num != pongID {
			return nil
		}
		v, err := f.varint()
		p.ID = int32(v)
		return err
	})
	return p, err
}

func unmarshalTransactionUpdate(b []byte) (*stream.TransactionUpdate, error) {
	tu := &stream.TransactionUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case txUpdateInfo:
			msg, err := f.bytes()
			if err != nil {
				return err
			}
			tu.Info, err = unmarshalTransactionInfo(msg)
			return err
		case txUpdateSlot:
			v, err := f.varint()
			tu.Slot = v
			return err
		}
		return nil
	})
	return tu, err
}

func unmarshalTransactionInfo(b []byte) (*stream.TransactionInfo, error) {
	info := &stream.TransactionInfo{}
	err := walk(b, func(f field) error {
		switch f.num {
		case txInfoSignature:
			v, err := f.bytes()
			info.Signature = v
			return err
		case txInfoIsVote:
			v, err := f.varint()
			info.IsVote = protowire.DecodeBool(v)
			return err
		case txInfoTransaction:
			msg, err := f.bytes()
			if err != nil {
				return err
			}
			info.Transaction, err = unmarshalTransaction(msg)
			return err
		case txInfoIndex:
			v, err := f.varint()
			info.Index = v
			return err
		}
		return nil
	})
	return info, err
}

func unmarshalTransaction(b []byte) (*stream.Transaction, error) {
	tx := &stream.Transaction{}
	err := walk(b, func(f field) error {
		switch f.num {
		case transactionSignatures:
			v, err := f.bytes()
			tx.Signatures = append(tx.Signatures, v)
			return err
		case transactionMessage:
			msg, err := f.bytes()
			if err != nil {
				return err
			}
			tx.Message, err = unmarshalMessage(msg)
			return err
		}
		return nil
	})
	return tx, err
}

func unmarshalMessage(b []byte) (*stream.Message, error) {
	m := &stream.Message{}
	err := walk(b, func(f field) error {
		switch f.num {
		case messageAccountKeys:
			v, err := f.bytes()
			m.AccountKeys = append(m.AccountKeys, v)
			return err
		case messageInstructions:
			msg, err := f.bytes()
			if err != nil {
				return err
			}
			ix, err := unmarshalInstruction(msg)
			m.Instructions = append(m.Instructions, ix)
			return err
		case messageVersioned:
			v, err := f.varint()
			m.Versioned = protowire.DecodeBool(v)
			return err
		}
		return nil
	})
	return m, err
}

func unmarshalInstruction(b []byte) (stream.CompiledInstruction, error) {
	var ix stream.CompiledInstruction
	err := walk(b, func(f field) error {
		switch f.num {
		case instructionProgramIDIndex:
			v, err := f.varint()
			ix.ProgramIDIndex = uint32(v)
			return err
		case instructionAccounts:
			v, err := f.bytes()
			ix.Accounts = v
			return err
		case instructionData:
			v, err := f.bytes()
			ix.Data = v
			return err
		}
		return nil
	})
	return ix, err
}

func unmarshalBlock(b []byte) (*stream.BlockUpdate, error) {
	blk := &stream.BlockUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case blockSlot:
			v, err := f.varint()
			blk.Slot = v
			return err
		case blockBlockhash:
			v, err := f.bytes()
			blk.Blockhash = string(v)
			return err
		case blockParentSlot:
			v, err := f.varint()
			blk.ParentSlot = v
			return err
		case blockTransactions:
			msg, err := f.bytes()
			if err != nil {
				return err
			}
			info, err := unmarshalTransactionInfo(msg)
			blk.Transactions = append(blk.Transactions, info)
			return err
		}
		return nil
	})
	return blk, err
}

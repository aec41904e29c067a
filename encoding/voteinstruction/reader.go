package voteinstruction

import (
	"encoding/binary"
	"math"
)

// reader walks a bincode little-endian payload.
type reader struct {
	data []byte
	off  int
	kind Kind
}

func (r *reader) fail(reason string) error {
	return &ParseError{Kind: r.kind, Offset: r.off, Reason: reason, Err: ErrMalformed}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.fail("unexpected end of payload")
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) hash() ([HashLength]byte, error) {
	var h [HashLength]byte
	b, err := r.take(HashLength)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// optionU64 reads a bincode Option<u64>/Option<i64>.
func (r *reader) optionU64() (uint64, bool, error) {
	tag, err := r.u8()
	if err != nil {
		return 0, false, err
	}
	switch tag {
	case 0:
		return 0, false, nil
	case 1:
		v, err := r.u64()
		return v, true, err
	default:
		return 0, false, r.fail("invalid option tag")
	}
}

// vecLen reads a bincode u64 length prefix and checks that elemSize*length
// bytes are still available, so corrupt lengths never drive allocations.
func (r *reader) vecLen(minElemSize int) (int, error) {
	n, err := r.u64()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || int(n)*minElemSize > r.remaining() {
		return 0, r.fail("vector length exceeds payload")
	}
	return int(n), nil
}

// shortVecLen reads a compact-u16 length (1 to 3 bytes, 7 bits each).
func (r *reader) shortVecLen(minElemSize int) (int, error) {
	var v uint32
	for i := 0; ; i++ {
		if i == 3 {
			return 0, r.fail("short vec length too long")
		}
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			if i > 0 && b == 0 {
				return 0, r.fail("non-canonical short vec length")
			}
			break
		}
	}
	if v > math.MaxUint16 || int(v)*minElemSize > r.remaining() {
		return 0, r.fail("short vec length exceeds payload")
	}
	return int(v), nil
}

// varint reads a LEB128 encoded u64 as produced by serde_varint.
func (r *reader) varint() (uint64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift > 63 {
			return 0, r.fail("varint overflows u64")
		}
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b > 1 {
			return 0, r.fail("varint overflows u64")
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// Package wire holds the byte-level read and write helpers shared by the
// AMF codecs and the envelope framings. Readers work on byte slices and
// hand back the unconsumed rest, so decoders can thread the input through
// without carrying cursor state.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/ssungk/elso/pkg/amf"
)

// Take consumes exactly n bytes.
func Take(i []byte, n int) (rest []byte, taken []byte, err error) {
	if n < 0 || len(i) < n {
		return i, nil, errors.Wrapf(amf.ErrUnexpectedEOF, "need %d bytes, have %d", n, len(i))
	}
	return i[n:], i[:n], nil
}

// TakeByte consumes a single byte.
func TakeByte(i []byte) (rest []byte, b byte, err error) {
	if len(i) < 1 {
		return i, 0, errors.Wrap(amf.ErrUnexpectedEOF, "need 1 byte")
	}
	return i[1:], i[0], nil
}

// TakeU16 consumes a big-endian uint16.
func TakeU16(i []byte) (rest []byte, v uint16, err error) {
	if len(i) < 2 {
		return i, 0, errors.Wrapf(amf.ErrUnexpectedEOF, "need 2 bytes, have %d", len(i))
	}
	return i[2:], binary.BigEndian.Uint16(i), nil
}

// TakeU32 consumes a big-endian uint32.
func TakeU32(i []byte) (rest []byte, v uint32, err error) {
	if len(i) < 4 {
		return i, 0, errors.Wrapf(amf.ErrUnexpectedEOF, "need 4 bytes, have %d", len(i))
	}
	return i[4:], binary.BigEndian.Uint32(i), nil
}

// TakeI32 consumes a big-endian int32.
func TakeI32(i []byte) (rest []byte, v int32, err error) {
	rest, u, err := TakeU32(i)
	return rest, int32(u), err
}

// TakeF64 consumes a big-endian IEEE-754 double.
func TakeF64(i []byte) (rest []byte, v float64, err error) {
	if len(i) < 8 {
		return i, 0, errors.Wrapf(amf.ErrUnexpectedEOF, "need 8 bytes, have %d", len(i))
	}
	return i[8:], math.Float64frombits(binary.BigEndian.Uint64(i)), nil
}

// TakeTag consumes len(tag) bytes and requires them to equal tag.
func TakeTag(i []byte, tag []byte) (rest []byte, err error) {
	rest, taken, err := Take(i, len(tag))
	if err != nil {
		return i, err
	}
	for n, b := range tag {
		if taken[n] != b {
			return i, errors.Wrapf(amf.ErrTagMismatch, "offset %d: got 0x%02x, want 0x%02x", n, taken[n], b)
		}
	}
	return rest, nil
}

package amf3

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
)

// u29Max is the largest value a u29 can carry.
const u29Max = 0x1FFFFFFF

// readU29 decodes a 1-4 byte variable-length unsigned integer. The high
// bit of each of the first three bytes marks a continuation; a fourth
// byte contributes all eight of its bits.
func readU29(i []byte) (rest []byte, v uint32, err error) {
	i, b, err := wire.TakeByte(i)
	if err != nil {
		return i, 0, err
	}
	v = uint32(b & 0x7F)
	if b&0x80 == 0 {
		return i, v, nil
	}
	for n := 0; n < 2; n++ {
		i, b, err = wire.TakeByte(i)
		if err != nil {
			return i, 0, err
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return i, v, nil
		}
	}
	i, b, err = wire.TakeByte(i)
	if err != nil {
		return i, 0, err
	}
	return i, v<<8 | uint32(b), nil
}

// readI29 decodes a u29 and sign-extends bit 28, giving the 29-bit signed
// range [-2^28, 2^28-1].
func readI29(i []byte) (rest []byte, v int32, err error) {
	i, u, err := readU29(i)
	if err != nil {
		return i, 0, err
	}
	if u&0x10000000 != 0 {
		return i, int32(u) - 0x20000000, nil
	}
	return i, int32(u), nil
}

// appendU29 emits the shortest form that carries v.
func appendU29(buf *bytes.Buffer, v uint32) error {
	switch {
	case v < 0x80:
		buf.WriteByte(byte(v))
	case v < 0x4000:
		buf.WriteByte(byte(v>>7) | 0x80)
		buf.WriteByte(byte(v & 0x7F))
	case v < 0x200000:
		buf.WriteByte(byte(v>>14) | 0x80)
		buf.WriteByte(byte(v>>7) | 0x80)
		buf.WriteByte(byte(v & 0x7F))
	case v <= u29Max:
		buf.WriteByte(byte(v>>22) | 0x80)
		buf.WriteByte(byte(v>>15) | 0x80)
		buf.WriteByte(byte(v>>8) | 0x80)
		buf.WriteByte(byte(v))
	default:
		return errors.Wrapf(amf.ErrOutOfRange, "u29 cannot carry %d", v)
	}
	return nil
}

// appendI29 emits a signed 29-bit integer; negative values are offset by
// 2^29 before encoding.
func appendI29(buf *bytes.Buffer, v int32) error {
	if v < IntegerMin || v > IntegerMax {
		return errors.Wrapf(amf.ErrOutOfRange, "i29 cannot carry %d", v)
	}
	if v < 0 {
		return appendU29(buf, uint32(v+0x20000000))
	}
	return appendU29(buf, uint32(v))
}

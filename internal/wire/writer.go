package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writes go through bytes.Buffer, which never fails; encoders validate
// field widths before calling these.

// PutU16 appends a big-endian uint16.
func PutU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// PutU32 appends a big-endian uint32.
func PutU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// PutI32 appends a big-endian int32.
func PutI32(buf *bytes.Buffer, v int32) {
	PutU32(buf, uint32(v))
}

// PutF64 appends a big-endian IEEE-754 double.
func PutF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

package amf

import "github.com/pkg/errors"

var (
	// Input errors
	ErrUnexpectedEOF = errors.New("unexpected end of input")
	ErrTagMismatch   = errors.New("tag mismatch")
	ErrTrailingBytes = errors.New("trailing bytes after structure")

	// Value errors
	ErrUnknownMarker     = errors.New("unknown type marker")
	ErrOutOfRange        = errors.New("value out of range")
	ErrDanglingReference = errors.New("reference index past pool")
	ErrInvalidUTF8       = errors.New("invalid UTF-8 in string")

	// Envelope errors
	ErrInvalidVersion = errors.New("invalid AMF version")

	// External-class errors (decode and encode) and encoder errors
	ErrUnknownExternalClass = errors.New("unknown external class")
	ErrOversizedField       = errors.New("field exceeds framing width")
)

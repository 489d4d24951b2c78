// Package lso reads and writes Local Shared Object files: the fixed-magic
// envelope around an AMF0 or AMF3 body of named elements.
package lso

import "github.com/ssungk/elso/pkg/amf"

// Fixed envelope framing.
var (
	headerVersion   = []byte{0x00, 0xBF}
	headerSignature = []byte{0x54, 0x43, 0x53, 0x4F, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00}
)

const paddingByte = 0x00

// headerSuffixLength is the part of the envelope the length field counts
// besides the body: signature, name length prefix, name, padding and the
// version marker.
func headerSuffixLength(name string) int {
	return len(headerSignature) + 2 + len(name) + 3 + 1
}

// Header is the envelope of an LSO file.
type Header struct {
	// Length is the byte count from just after the length field to the
	// end of the file. It is recomputed on encode.
	Length uint32

	// Name is the shared object name.
	Name string

	// Version selects the marker set used by the body.
	Version amf.Version
}

// Lso is a decoded Local Shared Object: its header and root elements.
type Lso struct {
	Header Header
	Body   []amf.Element
}

// New creates an Lso with the given body, name and version. The header
// length stays zero until encode.
func New(body []amf.Element, name string, version amf.Version) *Lso {
	return &Lso{
		Header: Header{Name: name, Version: version},
		Body:   body,
	}
}

// NewEmpty creates an Lso with no body elements.
func NewEmpty(name string, version amf.Version) *Lso {
	return New(nil, name, version)
}

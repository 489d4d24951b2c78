// Package packet reads and writes the AMF packet framing used for
// AMF-over-HTTP exchanges: a version word, then length-prefixed headers
// and messages whose values are AMF0.
package packet

import "github.com/ssungk/elso/pkg/amf"

// unknownLength is the declared-length sentinel meaning "don't know".
// Readers accept it; writers emit it when exact lengths are off.
const unknownLength = 0xFFFFFFFF

// Header is a packet header: a named AMF0 value every message shares.
type Header struct {
	// Name of the header.
	Name string

	// MustUnderstand tells the endpoint to abort if it does not
	// understand this header.
	MustUnderstand bool

	// Value of the header.
	Value *amf.Value
}

// Message is one remoting message.
type Message struct {
	// TargetURI the message is intended for.
	TargetURI string

	// ResponseURI identifies this message for its response; may be empty
	// on responses.
	ResponseURI string

	// Contents of the message.
	Contents *amf.Value
}

// Packet is a decoded AMF packet.
type Packet struct {
	// Version of AMF named by the header word. Does not change how the
	// packet itself is framed.
	Version amf.Version

	// Headers shared by all messages.
	Headers []Header

	// Messages in this packet.
	Messages []Message
}

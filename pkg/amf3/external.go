package amf3

import "github.com/ssungk/elso/pkg/amf"

// ExternalDecoder reads the externalized body of a registered class. It
// receives the remaining input and the decoder whose pools it may share
// (so it can recursively decode further AMF3 values), and returns the
// unconsumed rest together with the decoded elements.
type ExternalDecoder func(i []byte, d *Decoder) (rest []byte, elements []amf.Element, err error)

// ExternalEncoder writes the externalized body of a registered class. It
// receives the external elements and the trait of the value being written,
// plus the encoder whose pools it shares, and returns the encoded payload.
type ExternalEncoder func(elements []amf.Element, trait *amf.Trait, e *Encoder) ([]byte, error)

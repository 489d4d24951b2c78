package packet

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf0"
)

func writeHeader(buf *bytes.Buffer, h Header, e *amf0.Encoder, exactLengths bool) error {
	if err := amf0.WriteString(buf, h.Name); err != nil {
		return err
	}
	if h.MustUnderstand {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	value := new(bytes.Buffer)
	if err := e.WriteValue(value, h.Value); err != nil {
		return err
	}
	if exactLengths {
		wire.PutU32(buf, uint32(value.Len()))
	} else {
		wire.PutU32(buf, unknownLength)
	}
	buf.Write(value.Bytes())
	return nil
}

func writeMessage(buf *bytes.Buffer, m Message, e *amf0.Encoder, exactLengths bool) error {
	if err := amf0.WriteString(buf, m.TargetURI); err != nil {
		return err
	}
	if err := amf0.WriteString(buf, m.ResponseURI); err != nil {
		return err
	}
	contents := new(bytes.Buffer)
	if err := e.WriteValue(contents, m.Contents); err != nil {
		return err
	}
	if exactLengths {
		wire.PutU32(buf, uint32(contents.Len()))
	} else {
		wire.PutU32(buf, unknownLength)
	}
	buf.Write(contents.Bytes())
	return nil
}

// Encode writes a packet to bytes. With exactLengths off, the declared
// length fields carry the "don't know" sentinel instead of computed
// sizes.
func Encode(p *Packet, exactLengths bool) ([]byte, error) {
	if len(p.Headers) > 0xFFFF {
		return nil, errors.Wrapf(amf.ErrOversizedField, "%d headers exceed 16-bit count", len(p.Headers))
	}
	if len(p.Messages) > 0xFFFF {
		return nil, errors.Wrapf(amf.ErrOversizedField, "%d messages exceed 16-bit count", len(p.Messages))
	}

	e := amf0.NewEncoder()
	buf := new(bytes.Buffer)
	buf.WriteByte(0x00)
	buf.WriteByte(byte(p.Version))

	wire.PutU16(buf, uint16(len(p.Headers)))
	for _, h := range p.Headers {
		if err := writeHeader(buf, h, e, exactLengths); err != nil {
			return nil, err
		}
	}

	wire.PutU16(buf, uint16(len(p.Messages)))
	for _, m := range p.Messages {
		if err := writeMessage(buf, m, e, exactLengths); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

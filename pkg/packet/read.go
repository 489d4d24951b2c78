package packet

import (
	"github.com/pkg/errors"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf0"
)

func decodeHeader(i []byte, d *amf0.Decoder) (rest []byte, h Header, err error) {
	i, name, err := amf0.DecodeString(i)
	if err != nil {
		return i, Header{}, err
	}
	i, mustUnderstand, err := wire.TakeByte(i)
	if err != nil {
		return i, Header{}, err
	}
	// The declared value length is advisory; the value is self-delimiting.
	i, _, err = wire.TakeU32(i)
	if err != nil {
		return i, Header{}, err
	}
	i, value, err := d.DecodeValue(i)
	if err != nil {
		return i, Header{}, err
	}
	return i, Header{Name: name, MustUnderstand: mustUnderstand != 0, Value: value}, nil
}

func decodeMessage(i []byte, d *amf0.Decoder) (rest []byte, m Message, err error) {
	i, target, err := amf0.DecodeString(i)
	if err != nil {
		return i, Message{}, err
	}
	i, response, err := amf0.DecodeString(i)
	if err != nil {
		return i, Message{}, err
	}
	i, _, err = wire.TakeU32(i)
	if err != nil {
		return i, Message{}, err
	}
	i, contents, err := d.DecodeValue(i)
	if err != nil {
		return i, Message{}, err
	}
	return i, Message{TargetURI: target, ResponseURI: response, Contents: contents}, nil
}

// DecodePartial reads a packet from the front of the input and returns
// the unconsumed rest.
func DecodePartial(i []byte) (*Packet, []byte, error) {
	i, err := wire.TakeTag(i, []byte{0x00})
	if err != nil {
		return nil, i, err
	}
	i, versionByte, err := wire.TakeByte(i)
	if err != nil {
		return nil, i, err
	}
	version, err := amf.ParseVersion(versionByte)
	if err != nil {
		return nil, i, err
	}

	d := amf0.NewDecoder()
	p := &Packet{Version: version}

	i, headerCount, err := wire.TakeU16(i)
	if err != nil {
		return nil, i, err
	}
	for n := uint16(0); n < headerCount; n++ {
		var h Header
		i, h, err = decodeHeader(i, d)
		if err != nil {
			return nil, i, err
		}
		p.Headers = append(p.Headers, h)
	}

	i, messageCount, err := wire.TakeU16(i)
	if err != nil {
		return nil, i, err
	}
	for n := uint16(0); n < messageCount; n++ {
		var m Message
		i, m, err = decodeMessage(i, d)
		if err != nil {
			return nil, i, err
		}
		p.Messages = append(p.Messages, m)
	}
	return p, i, nil
}

// Decode reads a packet and requires the input to hold nothing else.
func Decode(i []byte) (*Packet, error) {
	p, rest, err := DecodePartial(i)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(amf.ErrTrailingBytes, "%d bytes after packet", len(rest))
	}
	return p, nil
}

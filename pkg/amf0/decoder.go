package amf0

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf3"
)

// Decoder reads AMF0 values. AMF0 carries no per-body state of its own;
// the decoder only holds the external-class registry handed to the fresh
// AMF3 decoders it spawns for escape-marker values, and a logger.
type Decoder struct {
	external map[string]amf3.ExternalDecoder
	log      zerolog.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		external: make(map[string]amf3.ExternalDecoder),
		log:      zerolog.Nop(),
	}
}

// SetLogger installs a logger for trace-level codec diagnostics.
func (d *Decoder) SetLogger(log zerolog.Logger) {
	d.log = log
}

// RegisterExternalDecoder registers an AMF3 external class for values
// reached through the escape marker.
func (d *Decoder) RegisterExternalDecoder(name string, fn amf3.ExternalDecoder) {
	d.external[name] = fn
}

// SetExternalDecoders replaces the registry with a shared map.
func (d *Decoder) SetExternalDecoders(m map[string]amf3.ExternalDecoder) {
	if m != nil {
		d.external = m
	}
}

// DecodeBody reads a complete AMF0 body: named elements each followed by
// one padding byte. Input beyond the last element is ErrTrailingBytes.
func (d *Decoder) DecodeBody(i []byte) ([]amf.Element, error) {
	elements, rest, err := d.DecodeBodyPartial(i)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(amf.ErrTrailingBytes, "%d bytes after body", len(rest))
	}
	return elements, nil
}

// DecodeBodyPartial reads elements until the input is exhausted or stops
// parsing, and returns whatever followed.
func (d *Decoder) DecodeBodyPartial(i []byte) ([]amf.Element, []byte, error) {
	elements := make([]amf.Element, 0)
	for len(i) > 0 {
		rest, name, err := DecodeString(i)
		if err != nil {
			break
		}
		rest, v, err := d.DecodeValue(rest)
		if err != nil {
			break
		}
		rest, err = wire.TakeTag(rest, []byte{paddingByte})
		if err != nil {
			break
		}
		elements = append(elements, amf.NewElement(name, v))
		i = rest
	}
	d.log.Trace().Int("elements", len(elements)).Int("rest", len(i)).Msg("amf0 body decoded")
	return elements, i, nil
}

// DecodeString reads a 16-bit-length-prefixed UTF-8 string.
func DecodeString(i []byte) (rest []byte, s string, err error) {
	i, n, err := wire.TakeU16(i)
	if err != nil {
		return i, "", err
	}
	i, b, err := wire.Take(i, int(n))
	if err != nil {
		return i, "", err
	}
	if !utf8.Valid(b) {
		return i, "", errors.Wrap(amf.ErrInvalidUTF8, "string value")
	}
	return i, string(b), nil
}

// decodeLongString reads a 32-bit-length-prefixed UTF-8 string.
func decodeLongString(i []byte) (rest []byte, s string, err error) {
	i, n, err := wire.TakeU32(i)
	if err != nil {
		return i, "", err
	}
	i, b, err := wire.Take(i, int(n))
	if err != nil {
		return i, "", err
	}
	if !utf8.Valid(b) {
		return i, "", errors.Wrap(amf.ErrInvalidUTF8, "long string value")
	}
	return i, string(b), nil
}

// DecodeValue reads a single AMF0 value.
func (d *Decoder) DecodeValue(i []byte) (rest []byte, v *amf.Value, err error) {
	i, marker, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	switch marker {
	case numberMarker:
		i, n, err := wire.TakeF64(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewNumber(n), nil
	case booleanMarker:
		i, b, err := wire.TakeByte(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewBool(b != 0), nil
	case stringMarker:
		i, s, err := DecodeString(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewString(s), nil
	case objectMarker:
		i, elements, err := d.decodeObjectBody(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewObject(elements, nil), nil
	case nullMarker:
		return i, amf.NewNull(), nil
	case undefinedMarker:
		return i, amf.NewUndefined(), nil
	case ecmaArrayMarker:
		return d.decodeECMAArray(i)
	case strictArrayMarker:
		return d.decodeStrictArray(i)
	case dateMarker:
		return decodeDate(i)
	case longStringMarker:
		i, s, err := decodeLongString(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewString(s), nil
	case unsupportedMarker:
		return i, amf.NewUnsupported(), nil
	case xmlDocumentMarker:
		i, s, err := decodeLongString(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewXML(s, true), nil
	case typedObjectMarker:
		return d.decodeTypedObject(i)
	case avmPlusMarker:
		return d.decodeEmbeddedAMF3(i)
	case movieClipMarker, referenceMarker, recordSetMarker, objectEndMarker:
		return i, nil, errors.Wrapf(amf.ErrUnknownMarker, "amf0 marker 0x%02x not supported here", marker)
	default:
		return i, nil, errors.Wrapf(amf.ErrUnknownMarker, "amf0 marker 0x%02x", marker)
	}
}

// decodeObjectBody reads (name, value) pairs up to the empty name and
// object-end marker that close the object.
func (d *Decoder) decodeObjectBody(i []byte) (rest []byte, elements []amf.Element, err error) {
	elements = make([]amf.Element, 0)
	for {
		var name string
		i, name, err = DecodeString(i)
		if err != nil {
			return i, nil, err
		}
		if name == "" {
			var marker byte
			i, marker, err = wire.TakeByte(i)
			if err != nil {
				return i, nil, err
			}
			if marker != objectEndMarker {
				return i, nil, errors.Wrapf(amf.ErrTagMismatch, "empty property name followed by 0x%02x, want object end", marker)
			}
			return i, elements, nil
		}
		var v *amf.Value
		i, v, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		elements = append(elements, amf.NewElement(name, v))
	}
}

func (d *Decoder) decodeECMAArray(i []byte) (rest []byte, v *amf.Value, err error) {
	i, declared, err := wire.TakeU32(i)
	if err != nil {
		return i, nil, err
	}
	i, elements, err := d.decodeObjectBody(i)
	if err != nil {
		return i, nil, err
	}
	return i, amf.NewECMAArray(nil, elements, declared), nil
}

func (d *Decoder) decodeStrictArray(i []byte) (rest []byte, v *amf.Value, err error) {
	i, count, err := wire.TakeU32(i)
	if err != nil {
		return i, nil, err
	}
	// One byte per value is the floor; a declared length past that is a
	// hostile stream.
	if uint64(count) > uint64(len(i)) {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "strict array of %d elements, %d bytes left", count, len(i))
	}
	values := make([]*amf.Value, 0, count)
	for n := uint32(0); n < count; n++ {
		var el *amf.Value
		i, el, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		values = append(values, el)
	}
	return i, amf.NewStrictArray(values), nil
}

func decodeDate(i []byte) (rest []byte, v *amf.Value, err error) {
	i, millis, err := wire.TakeF64(i)
	if err != nil {
		return i, nil, err
	}
	i, tz, err := wire.TakeU16(i)
	if err != nil {
		return i, nil, err
	}
	return i, amf.NewDate(millis, &tz), nil
}

func (d *Decoder) decodeTypedObject(i []byte) (rest []byte, v *amf.Value, err error) {
	i, name, err := DecodeString(i)
	if err != nil {
		return i, nil, err
	}
	i, elements, err := d.decodeObjectBody(i)
	if err != nil {
		return i, nil, err
	}
	return i, amf.NewObject(elements, amf.NewTrait(name)), nil
}

// decodeEmbeddedAMF3 handles the escape marker. The embedded value is
// decoded by a fresh AMF3 decoder: the AMF0 and AMF3 pools never share
// state inside one stream.
func (d *Decoder) decodeEmbeddedAMF3(i []byte) (rest []byte, v *amf.Value, err error) {
	inner := amf3.NewDecoder()
	inner.SetExternalDecoders(d.external)
	inner.SetLogger(d.log)
	i, el, err := inner.DecodeValue(i)
	if err != nil {
		return i, nil, err
	}
	return i, amf.NewAMF3(el), nil
}

package amf0

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf3"
)

// Encoder writes AMF0 values.
type Encoder struct {
	external map[string]amf3.ExternalEncoder
	log      zerolog.Logger
}

// NewEncoder creates an Encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		external: make(map[string]amf3.ExternalEncoder),
		log:      zerolog.Nop(),
	}
}

// SetLogger installs a logger for trace-level codec diagnostics.
func (e *Encoder) SetLogger(log zerolog.Logger) {
	e.log = log
}

// RegisterExternalEncoder registers an AMF3 external class for values
// written through the escape marker.
func (e *Encoder) RegisterExternalEncoder(name string, fn amf3.ExternalEncoder) {
	e.external[name] = fn
}

// SetExternalEncoders replaces the registry with a shared map.
func (e *Encoder) SetExternalEncoders(m map[string]amf3.ExternalEncoder) {
	if m != nil {
		e.external = m
	}
}

// EncodeBody writes a complete AMF0 body: each element followed by one
// padding byte.
func (e *Encoder) EncodeBody(elements []amf.Element) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, el := range elements {
		if err := e.writeElement(buf, el); err != nil {
			return nil, err
		}
		buf.WriteByte(paddingByte)
	}
	e.log.Trace().Int("elements", len(elements)).Int("bytes", buf.Len()).Msg("amf0 body encoded")
	return buf.Bytes(), nil
}

func (e *Encoder) writeElement(buf *bytes.Buffer, el amf.Element) error {
	if err := WriteString(buf, el.Name); err != nil {
		return err
	}
	return e.WriteValue(buf, el.Value)
}

// WriteString emits a 16-bit-length-prefixed string without a marker,
// the form used for element and property names.
func WriteString(buf *bytes.Buffer, s string) error {
	if len(s) > shortStringMax {
		return errors.Wrapf(amf.ErrOversizedField, "name of %d bytes exceeds 16-bit length", len(s))
	}
	wire.PutU16(buf, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

// WriteValue appends one AMF0 value to buf. Kinds AMF0 cannot express
// (integers, byte arrays, vectors, dictionaries, externalized objects)
// are written as the unsupported marker.
func (e *Encoder) WriteValue(buf *bytes.Buffer, v *amf.Value) error {
	if v == nil {
		return errors.Wrap(amf.ErrOutOfRange, "nil value")
	}
	switch v.Kind {
	case amf.KindNumber:
		buf.WriteByte(numberMarker)
		wire.PutF64(buf, v.Number)
		return nil
	case amf.KindBool:
		buf.WriteByte(booleanMarker)
		buf.WriteByte(fixedByte(v.Bool))
		return nil
	case amf.KindString:
		if len(v.Str) > shortStringMax {
			buf.WriteByte(longStringMarker)
			return writeLongStringContent(buf, v.Str)
		}
		buf.WriteByte(stringMarker)
		return WriteString(buf, v.Str)
	case amf.KindObject:
		if v.Trait != nil {
			return e.writeTypedObject(buf, v)
		}
		buf.WriteByte(objectMarker)
		return e.writeObjectBody(buf, v.Elements)
	case amf.KindNull:
		buf.WriteByte(nullMarker)
		return nil
	case amf.KindUndefined:
		buf.WriteByte(undefinedMarker)
		return nil
	case amf.KindECMAArray:
		buf.WriteByte(ecmaArrayMarker)
		wire.PutU32(buf, v.DeclaredLen)
		return e.writeObjectBody(buf, v.Elements)
	case amf.KindStrictArray:
		buf.WriteByte(strictArrayMarker)
		wire.PutU32(buf, uint32(len(v.Values)))
		for _, el := range v.Values {
			if err := e.WriteValue(buf, el); err != nil {
				return err
			}
		}
		return nil
	case amf.KindDate:
		buf.WriteByte(dateMarker)
		wire.PutF64(buf, v.Number)
		if v.TZ != nil {
			wire.PutU16(buf, *v.TZ)
		} else {
			wire.PutU16(buf, 0)
		}
		return nil
	case amf.KindXML:
		buf.WriteByte(xmlDocumentMarker)
		return writeLongStringContent(buf, v.Str)
	case amf.KindAMF3:
		return e.writeEmbeddedAMF3(buf, v.Inner)
	case amf.KindUnsupported, amf.KindInteger, amf.KindByteArray, amf.KindVectorInt,
		amf.KindVectorUInt, amf.KindVectorDouble, amf.KindVectorObject,
		amf.KindDictionary, amf.KindCustom, amf.KindObjectReference:
		buf.WriteByte(unsupportedMarker)
		return nil
	default:
		return errors.Wrapf(amf.ErrUnknownMarker, "cannot encode kind %s", v.Kind)
	}
}

func writeLongStringContent(buf *bytes.Buffer, s string) error {
	if uint64(len(s)) > 0xFFFFFFFF {
		return errors.Wrapf(amf.ErrOversizedField, "string of %d bytes exceeds 32-bit length", len(s))
	}
	wire.PutU32(buf, uint32(len(s)))
	buf.WriteString(s)
	return nil
}

func (e *Encoder) writeObjectBody(buf *bytes.Buffer, elements []amf.Element) error {
	for _, el := range elements {
		if err := WriteString(buf, el.Name); err != nil {
			return err
		}
		if err := e.WriteValue(buf, el.Value); err != nil {
			return err
		}
	}
	wire.PutU16(buf, 0)
	buf.WriteByte(objectEndMarker)
	return nil
}

func (e *Encoder) writeTypedObject(buf *bytes.Buffer, v *amf.Value) error {
	buf.WriteByte(typedObjectMarker)
	if err := WriteString(buf, v.Trait.Name); err != nil {
		return err
	}
	return e.writeObjectBody(buf, v.Elements)
}

// writeEmbeddedAMF3 emits the escape marker and the wrapped value encoded
// with a fresh AMF3 encoder, mirroring the fresh pools used on read.
func (e *Encoder) writeEmbeddedAMF3(buf *bytes.Buffer, inner *amf.Value) error {
	buf.WriteByte(avmPlusMarker)
	enc := amf3.NewEncoder()
	enc.SetExternalEncoders(e.external)
	enc.SetLogger(e.log)
	return enc.WriteValue(buf, inner)
}

func fixedByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

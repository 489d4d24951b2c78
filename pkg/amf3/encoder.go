package amf3

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
)

// Encoder writes AMF3 values. It mirrors the Decoder's pool discipline:
// every inline composite takes the next object-pool slot, so the slot a
// reference names on write is the slot the reader will have cached. Repeat
// emissions of the same value (same pointer, or an ObjectReference node)
// become back-references; structurally equal but distinct values are
// written inline again, which is what keeps decode/encode byte-exact.
type Encoder struct {
	strings     map[string]int
	stringCount int
	traits      []*amf.Trait
	objects     []*amf.Value
	slotByPtr   map[*amf.Value]int
	slotByID    map[amf.ObjectID]int
	external    map[string]ExternalEncoder
	log         zerolog.Logger
}

// NewEncoder creates an Encoder with empty pools and no external classes.
func NewEncoder() *Encoder {
	e := &Encoder{
		external: make(map[string]ExternalEncoder),
		log:      zerolog.Nop(),
	}
	e.reset()
	return e
}

// SetLogger installs a logger for trace-level codec diagnostics.
func (e *Encoder) SetLogger(log zerolog.Logger) {
	e.log = log
}

// RegisterExternalEncoder makes fn responsible for the body of every
// Custom value whose trait names the given class.
func (e *Encoder) RegisterExternalEncoder(name string, fn ExternalEncoder) {
	e.external[name] = fn
}

// ExternalEncoders exposes the registry for sharing with the fresh
// encoders spawned for AMF0-embedded values.
func (e *Encoder) ExternalEncoders() map[string]ExternalEncoder {
	return e.external
}

// SetExternalEncoders replaces the registry with a shared map.
func (e *Encoder) SetExternalEncoders(m map[string]ExternalEncoder) {
	if m != nil {
		e.external = m
	}
}

func (e *Encoder) reset() {
	e.strings = make(map[string]int)
	e.stringCount = 0
	e.traits = e.traits[:0]
	e.objects = e.objects[:0]
	e.slotByPtr = make(map[*amf.Value]int)
	e.slotByID = make(map[amf.ObjectID]int)
}

// EncodeBody writes a complete AMF3 body: each element followed by one
// padding byte. Pools start fresh.
func (e *Encoder) EncodeBody(elements []amf.Element) ([]byte, error) {
	e.reset()
	buf := new(bytes.Buffer)
	for _, el := range elements {
		if err := e.writeElement(buf, el); err != nil {
			return nil, err
		}
		buf.WriteByte(paddingByte)
	}
	e.log.Trace().Int("elements", len(elements)).Int("bytes", buf.Len()).Msg("amf3 body encoded")
	return buf.Bytes(), nil
}

func (e *Encoder) writeElement(buf *bytes.Buffer, el amf.Element) error {
	if err := e.writeByteString(buf, []byte(el.Name)); err != nil {
		return err
	}
	return e.WriteValue(buf, el.Value)
}

// WriteValue appends one AMF3 value to buf, consulting and extending the
// pools. It does not reset state, so external encoders can call it for
// their payloads.
func (e *Encoder) WriteValue(buf *bytes.Buffer, v *amf.Value) error {
	if v == nil {
		return errors.Wrap(amf.ErrOutOfRange, "nil value")
	}
	switch v.Kind {
	case amf.KindUndefined, amf.KindUnsupported:
		buf.WriteByte(undefinedMarker)
		return nil
	case amf.KindNull:
		buf.WriteByte(nullMarker)
		return nil
	case amf.KindBool:
		if v.Bool {
			buf.WriteByte(trueMarker)
		} else {
			buf.WriteByte(falseMarker)
		}
		return nil
	case amf.KindInteger:
		if v.Int < IntegerMin || v.Int > IntegerMax {
			buf.WriteByte(numberMarker)
			wire.PutF64(buf, float64(v.Int))
			return nil
		}
		buf.WriteByte(integerMarker)
		return appendI29(buf, v.Int)
	case amf.KindNumber:
		buf.WriteByte(numberMarker)
		wire.PutF64(buf, v.Number)
		return nil
	case amf.KindString:
		buf.WriteByte(stringMarker)
		return e.writeByteString(buf, []byte(v.Str))
	case amf.KindDate:
		return e.writeDate(buf, v)
	case amf.KindXML:
		return e.writeXML(buf, v)
	case amf.KindByteArray:
		return e.writeByteArray(buf, v)
	case amf.KindStrictArray:
		return e.writeStrictArray(buf, v)
	case amf.KindECMAArray:
		return e.writeECMAArray(buf, v)
	case amf.KindObject, amf.KindCustom:
		return e.writeObject(buf, v)
	case amf.KindVectorInt:
		return e.writeVectorInt(buf, v)
	case amf.KindVectorUInt:
		return e.writeVectorUInt(buf, v)
	case amf.KindVectorDouble:
		return e.writeVectorDouble(buf, v)
	case amf.KindVectorObject:
		return e.writeVectorObject(buf, v)
	case amf.KindDictionary:
		return e.writeDictionary(buf, v)
	case amf.KindAMF3:
		return e.WriteValue(buf, v.Inner)
	case amf.KindObjectReference:
		return e.writeReference(buf, v.ID)
	default:
		return errors.Wrapf(amf.ErrUnknownMarker, "cannot encode kind %s", v.Kind)
	}
}

// writeByteString emits a pool-cached byte string. Empty strings are
// always inline and never cached.
func (e *Encoder) writeByteString(buf *bytes.Buffer, b []byte) error {
	if len(b) == 0 {
		return appendU29(buf, 1)
	}
	if len(b) > u29Max>>1 {
		return errors.Wrapf(amf.ErrOversizedField, "string of %d bytes", len(b))
	}
	if index, ok := e.strings[string(b)]; ok {
		return refLength(index).append(buf)
	}
	e.strings[string(b)] = e.stringCount
	e.stringCount++
	if err := inlineLength(uint32(len(b))).append(buf); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// beginComposite writes the marker and either resolves v to a
// back-reference (false) or reserves the next pool slot for an inline
// definition (true).
func (e *Encoder) beginComposite(buf *bytes.Buffer, v *amf.Value, marker byte) (inline bool, err error) {
	buf.WriteByte(marker)
	if slot, ok := e.slotByPtr[v]; ok {
		return false, refLength(slot).append(buf)
	}
	slot := len(e.objects)
	e.objects = append(e.objects, v)
	e.slotByPtr[v] = slot
	if v.ID != amf.InvalidObjectID {
		if _, taken := e.slotByID[v.ID]; !taken {
			e.slotByID[v.ID] = slot
		}
	}
	return true, nil
}

// writeReference emits a back-reference to the pool slot holding the
// object with the given id, using the marker of the value cached there.
func (e *Encoder) writeReference(buf *bytes.Buffer, id amf.ObjectID) error {
	slot, ok := e.slotByID[id]
	if !ok {
		return errors.Wrapf(amf.ErrDanglingReference, "object id %d not written in this body", id)
	}
	target := e.objects[slot]
	marker, err := markerFor(target)
	if err != nil {
		return err
	}
	buf.WriteByte(marker)
	return refLength(slot).append(buf)
}

func markerFor(v *amf.Value) (byte, error) {
	switch v.Kind {
	case amf.KindObject, amf.KindCustom:
		return objectMarker, nil
	case amf.KindStrictArray, amf.KindECMAArray:
		return arrayMarker, nil
	case amf.KindDate:
		return dateMarker, nil
	case amf.KindXML:
		if v.XMLString {
			return xmlStringMarker, nil
		}
		return xmlMarker, nil
	case amf.KindByteArray:
		return byteArrayMarker, nil
	case amf.KindVectorInt:
		return vectorIntMarker, nil
	case amf.KindVectorUInt:
		return vectorUIntMarker, nil
	case amf.KindVectorDouble:
		return vectorDoubleMarker, nil
	case amf.KindVectorObject:
		return vectorObjectMarker, nil
	case amf.KindDictionary:
		return dictionaryMarker, nil
	default:
		return 0, errors.Wrapf(amf.ErrDanglingReference, "reference to non-composite %s", v.Kind)
	}
}

func (e *Encoder) writeDate(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, dateMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(0).append(buf); err != nil {
		return err
	}
	wire.PutF64(buf, v.Number)
	return nil
}

func (e *Encoder) writeXML(buf *bytes.Buffer, v *amf.Value) error {
	marker, err := markerFor(v)
	if err != nil {
		return err
	}
	inline, err := e.beginComposite(buf, v, marker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Str))).append(buf); err != nil {
		return err
	}
	buf.WriteString(v.Str)
	return nil
}

func (e *Encoder) writeByteArray(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, byteArrayMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Bytes))).append(buf); err != nil {
		return err
	}
	buf.Write(v.Bytes)
	return nil
}

func (e *Encoder) writeStrictArray(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, arrayMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Values))).append(buf); err != nil {
		return err
	}
	if err := e.writeByteString(buf, nil); err != nil {
		return err
	}
	for _, el := range v.Values {
		if err := e.WriteValue(buf, el); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeECMAArray(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, arrayMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Values))).append(buf); err != nil {
		return err
	}
	for _, el := range v.Elements {
		if err := e.writeByteString(buf, []byte(el.Name)); err != nil {
			return err
		}
		if err := e.WriteValue(buf, el.Value); err != nil {
			return err
		}
	}
	if err := e.writeByteString(buf, nil); err != nil {
		return err
	}
	for _, el := range v.Values {
		if err := e.WriteValue(buf, el); err != nil {
			return err
		}
	}
	return nil
}

// anonymousDynamic stands in for a nil trait: an AMF0-style object embeds
// in AMF3 as an anonymous dynamic object.
var anonymousDynamic = &amf.Trait{Dynamic: true}

func (e *Encoder) traitIndex(t *amf.Trait) int {
	for index, cached := range e.traits {
		if cached.Equal(t) {
			return index
		}
	}
	return -1
}

func (e *Encoder) writeObject(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, objectMarker)
	if err != nil || !inline {
		return err
	}

	t := v.Trait
	if t == nil {
		t = anonymousDynamic
	}

	if index := e.traitIndex(t); index >= 0 {
		if err := appendU29(buf, uint32(index)<<2|1); err != nil {
			return err
		}
	} else {
		e.traits = append(e.traits, t)
		var attrs uint32
		if t.External {
			attrs |= 0x1
		}
		if t.Dynamic {
			attrs |= 0x2
		}
		word := (uint32(len(t.Properties))<<2 | attrs) << 2
		if err := appendU29(buf, word|0x3); err != nil {
			return err
		}
		if err := e.writeByteString(buf, []byte(t.Name)); err != nil {
			return err
		}
		for _, p := range t.Properties {
			if err := e.writeByteString(buf, []byte(p)); err != nil {
				return err
			}
		}
	}

	if t.External {
		fn, ok := e.external[t.Name]
		if !ok {
			return errors.Wrapf(amf.ErrUnknownExternalClass, "class %q", t.Name)
		}
		e.log.Trace().Str("class", t.Name).Msg("external encoder")
		payload, err := fn(v.External, t, e)
		if err != nil {
			return err
		}
		buf.Write(payload)
		return nil
	}

	// Sealed values in declaration order.
	for _, name := range t.Properties {
		for _, el := range v.Elements {
			if el.Name == name {
				if err := e.WriteValue(buf, el.Value); err != nil {
					return err
				}
				break
			}
		}
	}

	if t.Dynamic {
		for _, el := range v.Elements {
			if sealedProperty(t, el.Name) {
				continue
			}
			if err := e.writeByteString(buf, []byte(el.Name)); err != nil {
				return err
			}
			if err := e.WriteValue(buf, el.Value); err != nil {
				return err
			}
		}
		if err := e.writeByteString(buf, nil); err != nil {
			return err
		}
	}
	return nil
}

func sealedProperty(t *amf.Trait, name string) bool {
	for _, p := range t.Properties {
		if p == name {
			return true
		}
	}
	return false
}

func (e *Encoder) writeVectorInt(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, vectorIntMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Ints))).append(buf); err != nil {
		return err
	}
	buf.WriteByte(fixedByte(v.Fixed))
	for _, n := range v.Ints {
		wire.PutI32(buf, n)
	}
	return nil
}

func (e *Encoder) writeVectorUInt(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, vectorUIntMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Uints))).append(buf); err != nil {
		return err
	}
	buf.WriteByte(fixedByte(v.Fixed))
	for _, n := range v.Uints {
		wire.PutU32(buf, n)
	}
	return nil
}

func (e *Encoder) writeVectorDouble(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, vectorDoubleMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Doubles))).append(buf); err != nil {
		return err
	}
	buf.WriteByte(fixedByte(v.Fixed))
	for _, n := range v.Doubles {
		wire.PutF64(buf, n)
	}
	return nil
}

func (e *Encoder) writeVectorObject(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, vectorObjectMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Values))).append(buf); err != nil {
		return err
	}
	buf.WriteByte(fixedByte(v.Fixed))
	if err := e.writeByteString(buf, []byte(v.TypeName)); err != nil {
		return err
	}
	for _, el := range v.Values {
		if err := e.WriteValue(buf, el); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeDictionary(buf *bytes.Buffer, v *amf.Value) error {
	inline, err := e.beginComposite(buf, v, dictionaryMarker)
	if err != nil || !inline {
		return err
	}
	if err := inlineLength(uint32(len(v.Pairs))).append(buf); err != nil {
		return err
	}
	buf.WriteByte(fixedByte(v.Weak))
	for _, p := range v.Pairs {
		if err := e.WriteValue(buf, p.Key); err != nil {
			return err
		}
		if err := e.WriteValue(buf, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func fixedByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

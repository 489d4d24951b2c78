package amf3

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
)

// Decoder reads AMF3 values. It owns the three per-body reference pools
// (byte strings, traits, objects) and the external-decoder registry. The
// pools reset at the start of every body; the registry persists. A Decoder
// is not safe for concurrent use, but independent Decoders are.
type Decoder struct {
	strings  [][]byte
	traits   []*amf.Trait
	objects  []*amf.Value
	nextID   int64
	external map[string]ExternalDecoder
	log      zerolog.Logger
}

// NewDecoder creates a Decoder with empty pools and no external classes.
func NewDecoder() *Decoder {
	return &Decoder{
		external: make(map[string]ExternalDecoder),
		log:      zerolog.Nop(),
	}
}

// SetLogger installs a logger for trace-level codec diagnostics. The
// default discards everything.
func (d *Decoder) SetLogger(log zerolog.Logger) {
	d.log = log
}

// RegisterExternalDecoder makes fn responsible for the body of every
// object whose trait names the given class.
func (d *Decoder) RegisterExternalDecoder(name string, fn ExternalDecoder) {
	d.external[name] = fn
}

// ExternalDecoders exposes the registry so it can be shared with the
// fresh decoders spawned for AMF0-embedded values.
func (d *Decoder) ExternalDecoders() map[string]ExternalDecoder {
	return d.external
}

// SetExternalDecoders replaces the registry with a shared map.
func (d *Decoder) SetExternalDecoders(m map[string]ExternalDecoder) {
	if m != nil {
		d.external = m
	}
}

// reset discards the per-body pool state.
func (d *Decoder) reset() {
	d.strings = d.strings[:0]
	d.traits = d.traits[:0]
	d.objects = d.objects[:0]
	d.nextID = 0
}

// DecodeBody reads a complete AMF3 body: named elements each followed by
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
	d.reset()
	elements := make([]amf.Element, 0)
	for len(i) > 0 {
		rest, el, err := d.decodeElement(i)
		if err != nil {
			break
		}
		rest, err = wire.TakeTag(rest, []byte{paddingByte})
		if err != nil {
			break
		}
		elements = append(elements, el)
		i = rest
	}
	d.log.Trace().Int("elements", len(elements)).Int("rest", len(i)).Msg("amf3 body decoded")
	return elements, i, nil
}

func (d *Decoder) decodeElement(i []byte) (rest []byte, el amf.Element, err error) {
	i, name, err := d.decodeString(i)
	if err != nil {
		return i, amf.Element{}, err
	}
	i, v, err := d.DecodeValue(i)
	if err != nil {
		return i, amf.Element{}, err
	}
	return i, amf.NewElement(name, v), nil
}

// DecodeValue reads a single AMF3 value, consulting and extending the
// pools. It does not reset state, so it can be called mid-stream by
// external decoders.
func (d *Decoder) DecodeValue(i []byte) (rest []byte, v *amf.Value, err error) {
	i, marker, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	switch marker {
	case undefinedMarker:
		return i, amf.NewUndefined(), nil
	case nullMarker:
		return i, amf.NewNull(), nil
	case falseMarker:
		return i, amf.NewBool(false), nil
	case trueMarker:
		return i, amf.NewBool(true), nil
	case integerMarker:
		i, n, err := readI29(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewInteger(n), nil
	case numberMarker:
		i, n, err := wire.TakeF64(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewNumber(n), nil
	case stringMarker:
		i, s, err := d.decodeString(i)
		if err != nil {
			return i, nil, err
		}
		return i, amf.NewString(s), nil
	case xmlMarker:
		return d.decodeXML(i, false)
	case dateMarker:
		return d.decodeDate(i)
	case arrayMarker:
		return d.decodeArray(i)
	case objectMarker:
		return d.decodeObject(i)
	case xmlStringMarker:
		return d.decodeXML(i, true)
	case byteArrayMarker:
		return d.decodeByteArray(i)
	case vectorIntMarker:
		return d.decodeVectorInt(i)
	case vectorUIntMarker:
		return d.decodeVectorUInt(i)
	case vectorDoubleMarker:
		return d.decodeVectorDouble(i)
	case vectorObjectMarker:
		return d.decodeVectorObject(i)
	case dictionaryMarker:
		return d.decodeDictionary(i)
	default:
		return i, nil, errors.Wrapf(amf.ErrUnknownMarker, "amf3 marker 0x%02x", marker)
	}
}

// decodeByteString reads a pool-cached byte string. Empty strings bypass
// the pool in both directions.
func (d *Decoder) decodeByteString(i []byte) (rest []byte, b []byte, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		if ln.index() >= len(d.strings) {
			return i, nil, errors.Wrapf(amf.ErrDanglingReference, "string slot %d of %d", ln.index(), len(d.strings))
		}
		return i, d.strings[ln.index()], nil
	}
	if ln.size() == 0 {
		return i, nil, nil
	}
	i, b, err = wire.Take(i, int(ln.size()))
	if err != nil {
		return i, nil, err
	}
	d.strings = append(d.strings, b)
	return i, b, nil
}

func (d *Decoder) decodeString(i []byte) (rest []byte, s string, err error) {
	i, b, err := d.decodeByteString(i)
	if err != nil {
		return i, "", err
	}
	if !utf8.Valid(b) {
		return i, "", errors.Wrap(amf.ErrInvalidUTF8, "string value")
	}
	return i, string(b), nil
}

// newComposite reserves an object-pool slot before the composite's body is
// read, so a child may legally reference its ancestor.
func (d *Decoder) newComposite(kind amf.Kind) *amf.Value {
	d.nextID++
	v := &amf.Value{Kind: kind, ID: amf.ObjectID(d.nextID)}
	d.objects = append(d.objects, v)
	return v
}

// poolRef resolves a reference word against the object pool. Repeat
// occurrences come back as ObjectReference nodes so decoded trees stay
// acyclic.
func (d *Decoder) poolRef(i []byte, index int) (rest []byte, v *amf.Value, err error) {
	if index >= len(d.objects) {
		return i, nil, errors.Wrapf(amf.ErrDanglingReference, "object slot %d of %d", index, len(d.objects))
	}
	return i, amf.NewObjectReference(d.objects[index].ID), nil
}

func (d *Decoder) decodeDate(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	v = d.newComposite(amf.KindDate)
	i, millis, err := wire.TakeF64(i)
	if err != nil {
		return i, nil, err
	}
	v.Number = millis
	return i, v, nil
}

func (d *Decoder) decodeXML(i []byte, isString bool) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	v = d.newComposite(amf.KindXML)
	i, b, err := wire.Take(i, int(ln.size()))
	if err != nil {
		return i, nil, err
	}
	if !utf8.Valid(b) {
		return i, nil, errors.Wrap(amf.ErrInvalidUTF8, "xml document")
	}
	v.Str = string(b)
	v.XMLString = isString
	return i, v, nil
}

func (d *Decoder) decodeByteArray(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	v = d.newComposite(amf.KindByteArray)
	i, b, err := wire.Take(i, int(ln.size()))
	if err != nil {
		return i, nil, err
	}
	v.Bytes = b
	return i, v, nil
}

func (d *Decoder) decodeArray(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	size := int(ln.size())
	if len(i) < size {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "array of %d elements, %d bytes left", size, len(i))
	}
	v = d.newComposite(amf.KindStrictArray)
	i, key, err := d.decodeByteString(i)
	if err != nil {
		return i, nil, err
	}
	if len(key) == 0 {
		v.Values = make([]*amf.Value, 0, size)
		for n := 0; n < size; n++ {
			var el *amf.Value
			i, el, err = d.DecodeValue(i)
			if err != nil {
				return i, nil, err
			}
			v.Values = append(v.Values, el)
		}
		return i, v, nil
	}

	// A non-empty first key makes this an ECMA array: associative part
	// terminated by an empty key, then the dense part.
	v.Kind = amf.KindECMAArray
	for len(key) != 0 {
		if !utf8.Valid(key) {
			return i, nil, errors.Wrap(amf.ErrInvalidUTF8, "array key")
		}
		name := string(key)
		var el *amf.Value
		i, el, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		v.Elements = append(v.Elements, amf.NewElement(name, el))
		i, key, err = d.decodeByteString(i)
		if err != nil {
			return i, nil, err
		}
	}
	for n := 0; n < size; n++ {
		var el *amf.Value
		i, el, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		v.Values = append(v.Values, el)
	}
	v.DeclaredLen = uint32(len(v.Elements))
	return i, v, nil
}

// decodeTrait reads a trait after the object's length word indicated an
// inline object. word is that length word shifted past the object
// reference bit.
func (d *Decoder) decodeTrait(i []byte, word uint32) (rest []byte, t *amf.Trait, err error) {
	if word&1 == 0 {
		index := int(word >> 1)
		if index >= len(d.traits) {
			return i, nil, errors.Wrapf(amf.ErrDanglingReference, "trait slot %d of %d", index, len(d.traits))
		}
		return i, d.traits[index], nil
	}
	word >>= 1
	i, name, err := d.decodeString(i)
	if err != nil {
		return i, nil, err
	}
	t = &amf.Trait{
		Name:     name,
		External: word&0x1 != 0,
		Dynamic:  word&0x2 != 0,
	}
	count := int(word >> 2)
	for n := 0; n < count; n++ {
		var prop string
		i, prop, err = d.decodeString(i)
		if err != nil {
			return i, nil, err
		}
		t.Properties = append(t.Properties, prop)
	}
	d.traits = append(d.traits, t)
	return i, t, nil
}

func (d *Decoder) decodeObject(i []byte) (rest []byte, v *amf.Value, err error) {
	i, word, err := readU29(i)
	if err != nil {
		return i, nil, err
	}
	if word&1 == 0 {
		return d.poolRef(i, int(word>>1))
	}

	v = d.newComposite(amf.KindObject)
	i, t, err := d.decodeTrait(i, word>>1)
	if err != nil {
		return i, nil, err
	}
	v.Trait = t

	if t.External {
		fn, ok := d.external[t.Name]
		if !ok {
			return i, nil, errors.Wrapf(amf.ErrUnknownExternalClass, "class %q", t.Name)
		}
		d.log.Trace().Str("class", t.Name).Msg("external decoder")
		i, external, err := fn(i, d)
		if err != nil {
			return i, nil, err
		}
		v.Kind = amf.KindCustom
		v.External = external
		return i, v, nil
	}

	// Sealed properties first, in declaration order.
	for _, name := range t.Properties {
		var el *amf.Value
		i, el, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		v.Elements = append(v.Elements, amf.NewElement(name, el))
	}

	if t.Dynamic {
		for {
			var key string
			i, key, err = d.decodeString(i)
			if err != nil {
				return i, nil, err
			}
			if key == "" {
				break
			}
			var el *amf.Value
			i, el, err = d.DecodeValue(i)
			if err != nil {
				return i, nil, err
			}
			v.Elements = append(v.Elements, amf.NewElement(key, el))
		}
	}
	return i, v, nil
}

func (d *Decoder) decodeVectorInt(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	size := int(ln.size())
	if len(i) < size*4 {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "int vector of %d, %d bytes left", size, len(i))
	}
	v = d.newComposite(amf.KindVectorInt)
	i, fixed, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	v.Fixed = fixed == 1
	v.Ints = make([]int32, 0, size)
	for n := 0; n < size; n++ {
		var el int32
		i, el, err = wire.TakeI32(i)
		if err != nil {
			return i, nil, err
		}
		v.Ints = append(v.Ints, el)
	}
	return i, v, nil
}

func (d *Decoder) decodeVectorUInt(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	size := int(ln.size())
	if len(i) < size*4 {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "uint vector of %d, %d bytes left", size, len(i))
	}
	v = d.newComposite(amf.KindVectorUInt)
	i, fixed, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	v.Fixed = fixed == 1
	v.Uints = make([]uint32, 0, size)
	for n := 0; n < size; n++ {
		var el uint32
		i, el, err = wire.TakeU32(i)
		if err != nil {
			return i, nil, err
		}
		v.Uints = append(v.Uints, el)
	}
	return i, v, nil
}

func (d *Decoder) decodeVectorDouble(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	size := int(ln.size())
	if len(i) < size*8 {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "double vector of %d, %d bytes left", size, len(i))
	}
	v = d.newComposite(amf.KindVectorDouble)
	i, fixed, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	v.Fixed = fixed == 1
	v.Doubles = make([]float64, 0, size)
	for n := 0; n < size; n++ {
		var el float64
		i, el, err = wire.TakeF64(i)
		if err != nil {
			return i, nil, err
		}
		v.Doubles = append(v.Doubles, el)
	}
	return i, v, nil
}

func (d *Decoder) decodeVectorObject(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	size := int(ln.size())
	if len(i) < size {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "object vector of %d, %d bytes left", size, len(i))
	}
	v = d.newComposite(amf.KindVectorObject)
	i, fixed, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	v.Fixed = fixed == 1
	i, v.TypeName, err = d.decodeString(i)
	if err != nil {
		return i, nil, err
	}
	v.Values = make([]*amf.Value, 0, size)
	for n := 0; n < size; n++ {
		var el *amf.Value
		i, el, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		v.Values = append(v.Values, el)
	}
	return i, v, nil
}

func (d *Decoder) decodeDictionary(i []byte) (rest []byte, v *amf.Value, err error) {
	i, ln, err := readLength(i)
	if err != nil {
		return i, nil, err
	}
	if ln.ref {
		return d.poolRef(i, ln.index())
	}
	size := int(ln.size())
	v = d.newComposite(amf.KindDictionary)
	i, weak, err := wire.TakeByte(i)
	if err != nil {
		return i, nil, err
	}
	if len(i) < size*2 {
		return i, nil, errors.Wrapf(amf.ErrOutOfRange, "dictionary of %d pairs, %d bytes left", size, len(i))
	}
	v.Weak = weak == 1
	v.Pairs = make([]amf.Pair, 0, size)
	for n := 0; n < size; n++ {
		var key, val *amf.Value
		i, key, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		i, val, err = d.DecodeValue(i)
		if err != nil {
			return i, nil, err
		}
		v.Pairs = append(v.Pairs, amf.Pair{Key: key, Value: val})
	}
	return i, v, nil
}

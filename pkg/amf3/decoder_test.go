package amf3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssungk/elso/pkg/amf"
)

// decodeOne decodes a single value and requires full consumption.
func decodeOne(t *testing.T, d *Decoder, input []byte) *amf.Value {
	t.Helper()
	rest, v, err := d.DecodeValue(input)
	require.NoError(t, err)
	require.Empty(t, rest)
	return v
}

func TestDecodeValue_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  *amf.Value
	}{
		{"undefined", []byte{0x00}, amf.NewUndefined()},
		{"null", []byte{0x01}, amf.NewNull()},
		{"false", []byte{0x02}, amf.NewBool(false)},
		{"true", []byte{0x03}, amf.NewBool(true)},
		{"integer zero", []byte{0x04, 0x00}, amf.NewInteger(0)},
		{"integer 127", []byte{0x04, 0x7F}, amf.NewInteger(127)},
		{"integer 128", []byte{0x04, 0x81, 0x00}, amf.NewInteger(128)},
		{"integer -1", []byte{0x04, 0xFF, 0xFF, 0xFF, 0xFF}, amf.NewInteger(-1)},
		{
			"number pi",
			[]byte{0x05, 0x40, 0x09, 0x21, 0xFB, 0x54, 0x44, 0x2D, 0x18},
			amf.NewNumber(3.141592653589793),
		},
		{
			"string hello",
			[]byte{0x06, 0x0B, 0x68, 0x65, 0x6C, 0x6C, 0x6F},
			amf.NewString("hello"),
		},
		{"empty string", []byte{0x06, 0x01}, amf.NewString("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := decodeOne(t, NewDecoder(), tt.input)
			assert.True(t, tt.want.Equal(v), "got %+v", v)
		})
	}
}

func TestDecodeValue_StringPool(t *testing.T) {
	d := NewDecoder()
	input := []byte{0x06, 0x0B, 0x68, 0x65, 0x6C, 0x6C, 0x6F, 0x06, 0x00}
	rest, first, err := d.DecodeValue(input)
	require.NoError(t, err)
	rest, second, err := d.DecodeValue(rest)
	require.NoError(t, err)
	require.Empty(t, rest)
	assert.Equal(t, "hello", first.Str)
	assert.Equal(t, "hello", second.Str)
}

func TestDecodeValue_StringRefDangling(t *testing.T) {
	_, _, err := NewDecoder().DecodeValue([]byte{0x06, 0x02})
	assert.ErrorIs(t, err, amf.ErrDanglingReference)
}

func TestDecodeValue_UnknownMarker(t *testing.T) {
	_, _, err := NewDecoder().DecodeValue([]byte{0x12})
	assert.ErrorIs(t, err, amf.ErrUnknownMarker)
}

func TestDecodeValue_Date(t *testing.T) {
	input := []byte{0x08, 0x01, 0x40, 0x8F, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00}
	v := decodeOne(t, NewDecoder(), input)
	assert.Equal(t, amf.KindDate, v.Kind)
	assert.Equal(t, 1000.0, v.Number)
	assert.Nil(t, v.TZ)
}

func TestDecodeValue_StrictArray(t *testing.T) {
	// [1, true] as a dense-only array
	input := []byte{0x09, 0x05, 0x01, 0x04, 0x01, 0x03}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindStrictArray, v.Kind)
	require.Len(t, v.Values, 2)
	assert.Equal(t, int32(1), v.Values[0].Int)
	assert.True(t, v.Values[1].Bool)
}

func TestDecodeValue_ECMAArray(t *testing.T) {
	// {"a": 1} plus one dense element
	input := []byte{
		0x09, 0x03, // array, dense length 1
		0x03, 0x61, // key "a"
		0x04, 0x01, // Integer(1)
		0x01,       // end of associative part
		0x04, 0x02, // dense: Integer(2)
	}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindECMAArray, v.Kind)
	require.Len(t, v.Elements, 1)
	assert.Equal(t, "a", v.Elements[0].Name)
	assert.Equal(t, int32(1), v.Elements[0].Value.Int)
	require.Len(t, v.Values, 1)
	assert.Equal(t, int32(2), v.Values[0].Int)
	assert.Equal(t, uint32(1), v.DeclaredLen)
}

func TestDecodeValue_ArrayBounds(t *testing.T) {
	// Declared 2^28-1 elements with two bytes of input
	input := []byte{0x09, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x01}
	_, _, err := NewDecoder().DecodeValue(input)
	assert.ErrorIs(t, err, amf.ErrOutOfRange)
}

func TestDecodeValue_ByteArray(t *testing.T) {
	input := []byte{0x0C, 0x07, 0x01, 0x02, 0x03}
	v := decodeOne(t, NewDecoder(), input)
	assert.Equal(t, amf.KindByteArray, v.Kind)
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes)
}

func TestDecodeValue_ByteArrayReference(t *testing.T) {
	d := NewDecoder()
	input := []byte{0x0C, 0x07, 0x01, 0x02, 0x03, 0x0C, 0x00}
	rest, first, err := d.DecodeValue(input)
	require.NoError(t, err)
	rest, second, err := d.DecodeValue(rest)
	require.NoError(t, err)
	require.Empty(t, rest)
	assert.Equal(t, amf.KindByteArray, first.Kind)
	require.Equal(t, amf.KindObjectReference, second.Kind)
	assert.Equal(t, first.ID, second.ID)
}

func TestDecodeValue_XML(t *testing.T) {
	input := []byte{0x0B, 0x09, 0x3C, 0x61, 0x2F, 0x3E} // "<a/>"
	v := decodeOne(t, NewDecoder(), input)
	assert.Equal(t, amf.KindXML, v.Kind)
	assert.Equal(t, "<a/>", v.Str)
	assert.True(t, v.XMLString)

	input[0] = 0x07
	v = decodeOne(t, NewDecoder(), input)
	assert.False(t, v.XMLString)
}

func TestDecodeValue_DynamicObject(t *testing.T) {
	// anonymous dynamic object {"a": true}
	input := []byte{
		0x0A, 0x0B, // object, inline, inline dynamic trait with no sealed props
		0x01,       // empty class name
		0x03, 0x61, // key "a"
		0x03, // true
		0x01, // end of dynamic members
	}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindObject, v.Kind)
	require.NotNil(t, v.Trait)
	assert.True(t, v.Trait.Dynamic)
	assert.Empty(t, v.Trait.Name)
	require.Len(t, v.Elements, 1)
	assert.Equal(t, "a", v.Elements[0].Name)
	assert.True(t, v.Elements[0].Value.Bool)
}

func TestDecodeValue_SealedObjectAndTraitReference(t *testing.T) {
	d := NewDecoder()
	input := []byte{
		// first object: class "T", one sealed prop "x", value Integer(1)
		0x0A, 0x13, 0x03, 0x54, 0x03, 0x78, 0x04, 0x01,
		// second object: trait reference 0, value Integer(2)
		0x0A, 0x01, 0x04, 0x02,
	}
	rest, first, err := d.DecodeValue(input)
	require.NoError(t, err)
	rest, second, err := d.DecodeValue(rest)
	require.NoError(t, err)
	require.Empty(t, rest)

	require.Equal(t, amf.KindObject, first.Kind)
	assert.Equal(t, "T", first.Trait.Name)
	assert.Equal(t, []string{"x"}, first.Trait.Properties)
	assert.Equal(t, int32(1), first.Elements[0].Value.Int)

	// The trait pool retains descriptors by identity of content.
	assert.True(t, first.Trait.Equal(second.Trait))
	assert.Equal(t, int32(2), second.Elements[0].Value.Int)
}

func TestDecodeValue_ObjectCycle(t *testing.T) {
	// An object whose sole sealed property "self" refers back to itself.
	input := []byte{
		0x0A, 0x13, // object, inline, trait: 1 sealed prop, sealed-only
		0x01,                         // anonymous
		0x09, 0x73, 0x65, 0x6C, 0x66, // property name "self"
		0x0A, 0x00, // object reference to slot 0
	}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindObject, v.Kind)
	require.Len(t, v.Elements, 1)
	self := v.Elements[0].Value
	require.Equal(t, amf.KindObjectReference, self.Kind)
	assert.Equal(t, v.ID, self.ID)
}

func TestDecodeValue_ObjectRefDangling(t *testing.T) {
	_, _, err := NewDecoder().DecodeValue([]byte{0x0A, 0x00})
	assert.ErrorIs(t, err, amf.ErrDanglingReference)
}

func TestDecodeValue_TraitRefDangling(t *testing.T) {
	_, _, err := NewDecoder().DecodeValue([]byte{0x0A, 0x01, 0x04, 0x01})
	assert.ErrorIs(t, err, amf.ErrDanglingReference)
}

func TestDecodeValue_UnknownExternalClass(t *testing.T) {
	// external trait named "test"
	input := []byte{0x0A, 0x07, 0x09, 0x74, 0x65, 0x73, 0x74}
	_, _, err := NewDecoder().DecodeValue(input)
	assert.ErrorIs(t, err, amf.ErrUnknownExternalClass)
}

func TestDecodeValue_ExternalDecoder(t *testing.T) {
	d := NewDecoder()
	d.RegisterExternalDecoder("test", func(i []byte, d *Decoder) ([]byte, []amf.Element, error) {
		rest, v, err := d.DecodeValue(i)
		if err != nil {
			return rest, nil, err
		}
		return rest, []amf.Element{amf.NewElement("payload", v)}, nil
	})
	input := []byte{0x0A, 0x07, 0x09, 0x74, 0x65, 0x73, 0x74, 0x04, 0x2A}
	v := decodeOne(t, d, input)
	require.Equal(t, amf.KindCustom, v.Kind)
	require.Len(t, v.External, 1)
	assert.Equal(t, "payload", v.External[0].Name)
	assert.Equal(t, int32(42), v.External[0].Value.Int)
	assert.True(t, v.Trait.External)
}

func TestDecodeValue_VectorInt(t *testing.T) {
	input := []byte{
		0x0D, 0x05, 0x01, // vector<int>, 2 elements, fixed
		0x00, 0x00, 0x00, 0x01,
		0xFF, 0xFF, 0xFF, 0xFF,
	}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindVectorInt, v.Kind)
	assert.True(t, v.Fixed)
	assert.Equal(t, []int32{1, -1}, v.Ints)
}

func TestDecodeValue_VectorBounds(t *testing.T) {
	for _, marker := range []byte{0x0D, 0x0E, 0x0F} {
		input := []byte{marker, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x01}
		_, _, err := NewDecoder().DecodeValue(input)
		assert.ErrorIs(t, err, amf.ErrOutOfRange, "marker 0x%02x", marker)
	}
}

func TestDecodeValue_VectorObject(t *testing.T) {
	input := []byte{
		0x10, 0x03, 0x00, // vector<object>, 1 element, not fixed
		0x03, 0x54, // type name "T"
		0x04, 0x07, // Integer(7)
	}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindVectorObject, v.Kind)
	assert.Equal(t, "T", v.TypeName)
	require.Len(t, v.Values, 1)
	assert.Equal(t, int32(7), v.Values[0].Int)
}

func TestDecodeValue_Dictionary(t *testing.T) {
	input := []byte{
		0x11, 0x03, 0x00, // dictionary, 1 pair, strong keys
		0x06, 0x03, 0x6B, // key String("k")
		0x04, 0x05, // value Integer(5)
	}
	v := decodeOne(t, NewDecoder(), input)
	require.Equal(t, amf.KindDictionary, v.Kind)
	assert.False(t, v.Weak)
	require.Len(t, v.Pairs, 1)
	assert.Equal(t, "k", v.Pairs[0].Key.Str)
	assert.Equal(t, int32(5), v.Pairs[0].Value.Int)
}

func TestDecodeValue_DictionaryBounds(t *testing.T) {
	input := []byte{0x11, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x01}
	_, _, err := NewDecoder().DecodeValue(input)
	assert.ErrorIs(t, err, amf.ErrOutOfRange)
}

func TestDecodeBody(t *testing.T) {
	// one element: "n" = Integer(1), then the element padding byte
	input := []byte{0x03, 0x6E, 0x04, 0x01, 0x00}
	elements, err := NewDecoder().DecodeBody(input)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "n", elements[0].Name)
	assert.Equal(t, int32(1), elements[0].Value.Int)
}

func TestDecodeBody_Empty(t *testing.T) {
	elements, err := NewDecoder().DecodeBody(nil)
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestDecodeBodyPartial_StopsAtGarbage(t *testing.T) {
	input := []byte{0x03, 0x6E, 0x04, 0x01, 0x00, 0xFF, 0xFF}
	elements, rest, err := NewDecoder().DecodeBodyPartial(input)
	require.NoError(t, err)
	assert.Len(t, elements, 1)
	assert.Equal(t, []byte{0xFF, 0xFF}, rest)
}

func TestDecodeBody_PoolsResetBetweenBodies(t *testing.T) {
	d := NewDecoder()
	body := []byte{0x03, 0x6E, 0x06, 0x03, 0x78, 0x00} // "n" = String("x")
	_, err := d.DecodeBody(body)
	require.NoError(t, err)

	// A string reference valid in the previous body must now dangle.
	stale := []byte{0x03, 0x6E, 0x06, 0x02, 0x00}
	elements, rest, err := d.DecodeBodyPartial(stale)
	require.NoError(t, err)
	assert.Empty(t, elements)
	assert.Equal(t, stale, rest)
}

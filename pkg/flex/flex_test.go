package flex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf3"
)

// codecPair builds an encoder and decoder with the flex codecs installed.
func codecPair() (*amf3.Encoder, *amf3.Decoder) {
	e := amf3.NewEncoder()
	d := amf3.NewDecoder()
	RegisterEncoders(e)
	RegisterDecoders(d)
	return e, d
}

// roundTrip encodes a Custom value and decodes it back.
func roundTrip(t *testing.T, v *amf.Value) *amf.Value {
	t.Helper()
	e, d := codecPair()
	buf := new(bytes.Buffer)
	require.NoError(t, e.WriteValue(buf, v))
	rest, back, err := d.DecodeValue(buf.Bytes())
	require.NoError(t, err)
	require.Empty(t, rest)
	return back
}

func externalTrait(name string) *amf.Trait {
	return &amf.Trait{Name: name, External: true}
}

func elementNames(elements []amf.Element) []string {
	names := make([]string, 0, len(elements))
	for _, el := range elements {
		names = append(names, el.Name)
	}
	return names
}

func TestAsyncMessageRoundTrip(t *testing.T) {
	v := amf.NewCustom([]amf.Element{
		amf.NewElement("body", amf.NewString("payload")),
		amf.NewElement("destination", amf.NewString("queue")),
		amf.NewElement("correlation_id", amf.NewString("c1")),
	}, nil, externalTrait(AsyncMessage))

	back := roundTrip(t, v)
	require.Equal(t, amf.KindCustom, back.Kind)
	assert.Equal(t, AsyncMessage, back.Trait.Name)
	assert.Equal(t, []string{"body", "destination", "correlation_id"}, elementNames(back.External))
	assert.Equal(t, "payload", back.External[0].Value.Str)
	assert.Equal(t, "queue", back.External[1].Value.Str)
	assert.Equal(t, "c1", back.External[2].Value.Str)
}

func TestAbstractMessageAllFields(t *testing.T) {
	fields := []string{"body", "client_id", "destination", "headers",
		"message_id", "timestamp", "ttl", "client_id_bytes", "message_id_bytes"}
	elements := make([]amf.Element, 0, len(fields))
	for n, f := range fields {
		elements = append(elements, amf.NewElement(f, amf.NewInteger(int32(n))))
	}
	v := amf.NewCustom(elements, nil, externalTrait(AbstractMessage))

	back := roundTrip(t, v)
	assert.Equal(t, fields, elementNames(back.External))
	for n, el := range back.External {
		assert.Equal(t, int32(n), el.Value.Int)
	}
}

func TestCommandMessageRoundTrip(t *testing.T) {
	v := amf.NewCustom([]amf.Element{
		amf.NewElement("message_id", amf.NewString("m1")),
		amf.NewElement("operation", amf.NewInteger(5)),
	}, nil, externalTrait(CommandMessage))

	back := roundTrip(t, v)
	assert.Equal(t, []string{"message_id", "operation"}, elementNames(back.External))
}

func TestAcknowledgeMessageUnknownChildren(t *testing.T) {
	v := amf.NewCustom([]amf.Element{
		amf.NewElement("children_acknowledge_0", amf.NewString("extra")),
		amf.NewElement("children_acknowledge_3", amf.NewInteger(3)),
	}, nil, externalTrait(AcknowledgeMessage))

	back := roundTrip(t, v)
	assert.Equal(t, []string{"children_acknowledge_0", "children_acknowledge_3"},
		elementNames(back.External))
	assert.Equal(t, "extra", back.External[0].Value.Str)
	assert.Equal(t, int32(3), back.External[1].Value.Int)
}

func TestAbstractMessageUnknownChildBeyondDefinedBytes(t *testing.T) {
	// Bit 14 lives in a third flag byte with no defined fields; the name
	// must survive a round-trip unchanged.
	v := amf.NewCustom([]amf.Element{
		amf.NewElement("children_14", amf.NewBool(true)),
	}, nil, externalTrait(AbstractMessage))

	back := roundTrip(t, v)
	assert.Equal(t, []string{"children_14"}, elementNames(back.External))
}

func TestErrorMessageUsesAcknowledgeLayout(t *testing.T) {
	v := amf.NewCustom([]amf.Element{
		amf.NewElement("correlation_id", amf.NewString("c9")),
	}, nil, externalTrait(ErrorMessage))

	back := roundTrip(t, v)
	assert.Equal(t, ErrorMessage, back.Trait.Name)
	assert.Equal(t, []string{"correlation_id"}, elementNames(back.External))
}

func TestArrayCollectionRoundTrip(t *testing.T) {
	data := amf.NewStrictArray([]*amf.Value{amf.NewInteger(1), amf.NewInteger(2)})
	v := amf.NewCustom([]amf.Element{amf.NewElement("data", data)}, nil, externalTrait(ArrayCollection))

	back := roundTrip(t, v)
	require.Len(t, back.External, 1)
	assert.Equal(t, "data", back.External[0].Name)
	assert.True(t, data.Equal(back.External[0].Value))
}

func TestObjectProxyRoundTrip(t *testing.T) {
	wrapped := amf.NewObject([]amf.Element{
		amf.NewElement("k", amf.NewString("v")),
	}, nil)
	v := amf.NewCustom([]amf.Element{amf.NewElement("object", wrapped)}, nil, externalTrait(ObjectProxy))

	back := roundTrip(t, v)
	require.Len(t, back.External, 1)
	assert.Equal(t, "object", back.External[0].Name)
	require.Equal(t, amf.KindObject, back.External[0].Value.Kind)
	assert.Equal(t, "v", back.External[0].Value.Elements[0].Value.Str)
}

func TestArrayCollectionEmpty(t *testing.T) {
	e, _ := codecPair()
	v := amf.NewCustom(nil, nil, externalTrait(ArrayCollection))
	buf := new(bytes.Buffer)
	assert.ErrorIs(t, e.WriteValue(buf, v), amf.ErrOutOfRange)
}

func TestWriteFlags_ContinuationBits(t *testing.T) {
	buf := new(bytes.Buffer)
	writeFlags(buf, []byte{0x01, 0x02, 0x04})
	assert.Equal(t, []byte{0x81, 0x82, 0x04}, buf.Bytes())
}

func TestReadFlags(t *testing.T) {
	rest, flags, err := readFlags([]byte{0x81, 0x82, 0x04, 0xAA})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0x82, 0x04}, flags)
	assert.Equal(t, []byte{0xAA}, rest)

	_, _, err = readFlags([]byte{0x81})
	assert.ErrorIs(t, err, amf.ErrUnexpectedEOF)
}

func TestChildIndex(t *testing.T) {
	n, ok := childIndex("children_12", "children_")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	// A longer prefix must not match the shorter one.
	_, ok = childIndex("children_async_5", "children_")
	assert.False(t, ok)

	_, ok = childIndex("body", "children_")
	assert.False(t, ok)
}

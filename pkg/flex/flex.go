// Package flex implements external codecs for the flex.messaging.io class
// family: the message hierarchy with its flag-vector layout, plus the
// collection and proxy wrappers. Registering them into an AMF3 codec lets
// LSO and packet bodies that carry Flex data round-trip.
package flex

import (
	"github.com/ssungk/elso/pkg/amf3"
)

// Class names the flex codecs are registered under.
const (
	AbstractMessage       = "flex.messaging.io.AbstractMessage"
	AsyncMessage          = "flex.messaging.io.AsyncMessage"
	AsyncMessageExt       = "flex.messaging.io.AsyncMessageExt"
	AcknowledgeMessage    = "flex.messaging.io.AcknowledgeMessage"
	AcknowledgeMessageExt = "flex.messaging.io.AcknowledgeMessageExt"
	CommandMessage        = "flex.messaging.io.CommandMessage"
	CommandMessageExt     = "flex.messaging.io.CommandMessageExt"
	ErrorMessage          = "flex.messaging.io.ErrorMessage"
	ArrayCollection       = "flex.messaging.io.ArrayCollection"
	ArrayList             = "flex.messaging.io.ArrayList"
	ObjectProxy           = "flex.messaging.io.ObjectProxy"
	ManagedObjectProxy    = "flex.messaging.io.ManagedObjectProxy"
	SerializationProxy    = "flex.messaging.io.SerializationProxy"
)

// nextFlag is the continuation bit of a flag byte; the other seven bits
// select fields.
const nextFlag = 0x80

// field binds a named message field to its flag bit.
type field struct {
	name string
	bit  byte
}

// Defined fields per flag byte. Set bits outside these (and every bit of
// later flag bytes) decode to children_<N> elements, N being the global
// data-bit position, so unknown data survives a round-trip.
var (
	abstractFields = [][]field{
		{
			{"body", 0x01},
			{"client_id", 0x02},
			{"destination", 0x04},
			{"headers", 0x08},
			{"message_id", 0x10},
			{"timestamp", 0x20},
			{"ttl", 0x40},
		},
		{
			{"client_id_bytes", 0x01},
			{"message_id_bytes", 0x02},
		},
	}

	asyncFields = [][]field{
		{
			{"correlation_id", 0x01},
			{"correlation_id_bytes", 0x02},
		},
	}

	acknowledgeFields = [][]field{
		{},
	}

	commandFields = [][]field{
		{
			{"operation", 0x01},
		},
	}
)

const (
	abstractChildPrefix    = "children_"
	asyncChildPrefix       = "children_async_"
	acknowledgeChildPrefix = "children_acknowledge_"
	commandChildPrefix     = "children_command_"
)

// DecoderRegistry is anything external decoders can be registered with:
// an AMF3 decoder, an AMF0 decoder (for escape-marker values) or an LSO
// reader, which registers with both of its decoders.
type DecoderRegistry interface {
	RegisterExternalDecoder(name string, fn amf3.ExternalDecoder)
}

// EncoderRegistry is the write-side counterpart of DecoderRegistry.
type EncoderRegistry interface {
	RegisterExternalEncoder(name string, fn amf3.ExternalEncoder)
}

// RegisterDecoders installs every flex decoder into d.
func RegisterDecoders(d DecoderRegistry) {
	d.RegisterExternalDecoder(AbstractMessage, DecodeAbstractMessage)
	d.RegisterExternalDecoder(AsyncMessage, DecodeAsyncMessage)
	d.RegisterExternalDecoder(AsyncMessageExt, DecodeAsyncMessage)
	d.RegisterExternalDecoder(AcknowledgeMessage, DecodeAcknowledgeMessage)
	d.RegisterExternalDecoder(AcknowledgeMessageExt, DecodeAcknowledgeMessage)
	d.RegisterExternalDecoder(CommandMessage, DecodeCommandMessage)
	d.RegisterExternalDecoder(CommandMessageExt, DecodeCommandMessage)
	d.RegisterExternalDecoder(ErrorMessage, DecodeAcknowledgeMessage)
	d.RegisterExternalDecoder(ArrayCollection, DecodeArrayCollection)
	d.RegisterExternalDecoder(ArrayList, DecodeArrayCollection)
	d.RegisterExternalDecoder(ObjectProxy, DecodeObjectProxy)
	d.RegisterExternalDecoder(ManagedObjectProxy, DecodeObjectProxy)
	d.RegisterExternalDecoder(SerializationProxy, DecodeObjectProxy)
}

// RegisterEncoders installs every flex encoder into e.
func RegisterEncoders(e EncoderRegistry) {
	e.RegisterExternalEncoder(AbstractMessage, EncodeAbstractMessage)
	e.RegisterExternalEncoder(AsyncMessage, EncodeAsyncMessage)
	e.RegisterExternalEncoder(AsyncMessageExt, EncodeAsyncMessage)
	e.RegisterExternalEncoder(AcknowledgeMessage, EncodeAcknowledgeMessage)
	e.RegisterExternalEncoder(AcknowledgeMessageExt, EncodeAcknowledgeMessage)
	e.RegisterExternalEncoder(CommandMessage, EncodeCommandMessage)
	e.RegisterExternalEncoder(CommandMessageExt, EncodeCommandMessage)
	e.RegisterExternalEncoder(ErrorMessage, EncodeAcknowledgeMessage)
	e.RegisterExternalEncoder(ArrayCollection, EncodeArrayCollection)
	e.RegisterExternalEncoder(ArrayList, EncodeArrayCollection)
	e.RegisterExternalEncoder(ObjectProxy, EncodeObjectProxy)
	e.RegisterExternalEncoder(ManagedObjectProxy, EncodeObjectProxy)
	e.RegisterExternalEncoder(SerializationProxy, EncodeObjectProxy)
}

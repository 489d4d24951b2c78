// Package amf3 implements the AMF3 reader and writer: the u29
// variable-length integer codec, the length-or-reference discriminator,
// the three per-body reference pools and the externalizable-object
// registry.
package amf3

// AMF3 type markers
const (
	undefinedMarker    = 0x00
	nullMarker         = 0x01
	falseMarker        = 0x02
	trueMarker         = 0x03
	integerMarker      = 0x04
	numberMarker       = 0x05
	stringMarker       = 0x06
	xmlMarker          = 0x07
	dateMarker         = 0x08
	arrayMarker        = 0x09
	objectMarker       = 0x0A
	xmlStringMarker    = 0x0B
	byteArrayMarker    = 0x0C
	vectorIntMarker    = 0x0D
	vectorUIntMarker   = 0x0E
	vectorDoubleMarker = 0x0F
	vectorObjectMarker = 0x10
	dictionaryMarker   = 0x11
)

// Body elements are separated from each other by one zero byte.
const paddingByte = 0x00

// Integer bounds for the 29-bit signed integer type. Values outside are
// encoded as Number.
const (
	IntegerMin = -0x10000000
	IntegerMax = 0x0FFFFFFF
)

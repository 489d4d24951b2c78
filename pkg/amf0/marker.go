// Package amf0 implements the AMF0 reader and writer. AMF0 has no
// reference pools; its only tie to AMF3 is the escape marker, which embeds
// a single AMF3 value decoded with fresh pools.
package amf0

// AMF0 type markers
const (
	numberMarker      = 0x00
	booleanMarker     = 0x01
	stringMarker      = 0x02
	objectMarker      = 0x03
	movieClipMarker   = 0x04 // reserved, never valid
	nullMarker        = 0x05
	undefinedMarker   = 0x06
	referenceMarker   = 0x07 // not supported by this codec
	ecmaArrayMarker   = 0x08
	objectEndMarker   = 0x09
	strictArrayMarker = 0x0A
	dateMarker        = 0x0B
	longStringMarker  = 0x0C
	unsupportedMarker = 0x0D
	recordSetMarker   = 0x0E // reserved, never valid
	xmlDocumentMarker = 0x0F
	typedObjectMarker = 0x10
	avmPlusMarker     = 0x11 // AMF3 escape
)

// Body elements are separated from each other by one zero byte.
const paddingByte = 0x00

// shortStringMax is the longest string the 16-bit string form can carry;
// longer strings use the long-string marker.
const shortStringMax = 0xFFFF

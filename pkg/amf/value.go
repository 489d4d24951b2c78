// Package amf defines the value model shared by the AMF0 and AMF3 codecs:
// the tagged Value type, named Elements, trait descriptors and the error
// taxonomy. Values are plain data; the codecs in pkg/amf0 and pkg/amf3 never
// mutate a Value after returning it.
package amf

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNumber is the AMF0 number and AMF3 double type (64-bit IEEE-754).
	KindNumber Kind = iota
	// KindBool covers the AMF0 boolean and the AMF3 true/false markers.
	KindBool
	// KindString covers AMF0 short/long strings and AMF3 strings.
	KindString
	// KindObject is an anonymous or typed object. A nil Trait means an
	// AMF0 anonymous object.
	KindObject
	// KindNull is the null type.
	KindNull
	// KindUndefined is the undefined type.
	KindUndefined
	// KindECMAArray is an AMF0 mixed array or an AMF3 array with an
	// associative section.
	KindECMAArray
	// KindStrictArray is an AMF0 strict array or an AMF3 dense-only array.
	KindStrictArray
	// KindDate is a timestamp in milliseconds since epoch. The offset is
	// only carried by AMF0; AMF3 dates are always UTC.
	KindDate
	// KindUnsupported is the AMF0 unsupported type.
	KindUnsupported
	// KindXML covers both AMF3 XML markers and the AMF0 XML document type.
	KindXML
	// KindAMF3 wraps a single AMF3 value embedded in an AMF0 stream via
	// the escape marker.
	KindAMF3
	// KindInteger is the AMF3 29-bit signed integer.
	KindInteger
	// KindByteArray is the AMF3 byte array type.
	KindByteArray
	// KindVectorInt is the AMF3 Vector.<int> type.
	KindVectorInt
	// KindVectorUInt is the AMF3 Vector.<uint> type.
	KindVectorUInt
	// KindVectorDouble is the AMF3 Vector.<Number> type.
	KindVectorDouble
	// KindVectorObject is the AMF3 Vector.<T> type.
	KindVectorObject
	// KindDictionary is the AMF3 dictionary type.
	KindDictionary
	// KindCustom is an externalizable object decoded by a registered
	// external codec.
	KindCustom
	// KindObjectReference marks the second and later occurrences of an
	// object in a decoded AMF3 stream. It points at the object carrying
	// the same ObjectID.
	KindObjectReference
)

var kindNames = map[Kind]string{
	KindNumber:          "Number",
	KindBool:            "Bool",
	KindString:          "String",
	KindObject:          "Object",
	KindNull:            "Null",
	KindUndefined:       "Undefined",
	KindECMAArray:       "ECMAArray",
	KindStrictArray:     "StrictArray",
	KindDate:            "Date",
	KindUnsupported:     "Unsupported",
	KindXML:             "XML",
	KindAMF3:            "AMF3",
	KindInteger:         "Integer",
	KindByteArray:       "ByteArray",
	KindVectorInt:       "VectorInt",
	KindVectorUInt:      "VectorUInt",
	KindVectorDouble:    "VectorDouble",
	KindVectorObject:    "VectorObject",
	KindDictionary:      "Dictionary",
	KindCustom:          "Custom",
	KindObjectReference: "ObjectReference",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// ObjectID is a locally unique identifier for a decoded AMF3 object.
// It ties KindObjectReference values back to the object they repeat.
type ObjectID int64

// InvalidObjectID marks an object whose identity can never be referenced
// (every AMF0 object, and objects built by hand). Multiple objects may
// share InvalidObjectID; writing a reference to it is an error.
const InvalidObjectID ObjectID = -1

// Pair is a dictionary entry. Keys are full values, not names.
type Pair struct {
	Key   *Value
	Value *Value
}

// Element is a named value. Bodies, object properties and the associative
// part of arrays are ordered sequences of elements.
type Element struct {
	Name  string
	Value *Value
}

// NewElement creates an Element.
func NewElement(name string, value *Value) Element {
	return Element{Name: name, Value: value}
}

// Value is a single decoded AMF value. Kind selects the variant; only the
// fields that variant uses are meaningful. Composite fields keep insertion
// order, which the encoders rely on for byte-exact round-trips.
type Value struct {
	Kind Kind

	// Number holds KindNumber, and the milliseconds of KindDate.
	Number float64

	// Bool holds KindBool.
	Bool bool

	// Str holds KindString and the document of KindXML.
	Str string

	// XMLString distinguishes the AMF3 XML-string marker from the XML
	// marker when Kind is KindXML.
	XMLString bool

	// Int holds KindInteger. Values outside [-2^28, 2^28-1] must be
	// encoded as KindNumber instead.
	Int int32

	// TZ is the AMF0 date offset in minutes; nil when absent (AMF3).
	TZ *uint16

	// Bytes holds KindByteArray.
	Bytes []byte

	// Values holds the elements of KindStrictArray and KindVectorObject,
	// and the dense section of KindECMAArray.
	Values []*Value

	// Elements holds the properties of KindObject, the associative
	// section of KindECMAArray, and the dynamic elements of KindCustom.
	Elements []Element

	// External holds the externalized payload of KindCustom.
	External []Element

	// DeclaredLen is the length field of an AMF0 mixed array. It is kept
	// verbatim and re-emitted as-is; it may differ from len(Elements).
	DeclaredLen uint32

	// Trait describes KindObject and KindCustom. nil means an AMF0
	// anonymous object.
	Trait *Trait

	// Ints, Uints and Doubles hold the homogeneous vector variants.
	Ints    []int32
	Uints   []uint32
	Doubles []float64

	// TypeName is the element type of KindVectorObject.
	TypeName string

	// Fixed is the fixed-length flag of the vector variants.
	Fixed bool

	// Pairs holds KindDictionary entries; Weak is its weak-keys flag.
	Pairs []Pair
	Weak  bool

	// Inner holds the wrapped value of KindAMF3.
	Inner *Value

	// ID is the identity of a decoded AMF3 composite (object, array,
	// date, XML, byte array, vector or dictionary), or the target of a
	// KindObjectReference.
	ID ObjectID
}

// NewNumber creates a Number value.
func NewNumber(n float64) *Value {
	return &Value{Kind: KindNumber, Number: n}
}

// NewBool creates a Bool value.
func NewBool(b bool) *Value {
	return &Value{Kind: KindBool, Bool: b}
}

// NewString creates a String value.
func NewString(s string) *Value {
	return &Value{Kind: KindString, Str: s}
}

// NewInteger creates an AMF3 Integer value.
func NewInteger(i int32) *Value {
	return &Value{Kind: KindInteger, Int: i}
}

// NewNull creates a Null value.
func NewNull() *Value {
	return &Value{Kind: KindNull}
}

// NewUndefined creates an Undefined value.
func NewUndefined() *Value {
	return &Value{Kind: KindUndefined}
}

// NewUnsupported creates an Unsupported value.
func NewUnsupported() *Value {
	return &Value{Kind: KindUnsupported}
}

// NewDate creates a Date value from milliseconds since epoch. tz is the
// AMF0 offset in minutes, nil for UTC/AMF3.
func NewDate(millis float64, tz *uint16) *Value {
	return &Value{Kind: KindDate, Number: millis, TZ: tz}
}

// NewXML creates an XML value. isString selects the AMF3 XML-string marker.
func NewXML(document string, isString bool) *Value {
	return &Value{Kind: KindXML, Str: document, XMLString: isString}
}

// NewByteArray creates a ByteArray value.
func NewByteArray(b []byte) *Value {
	return &Value{Kind: KindByteArray, Bytes: b}
}

// NewStrictArray creates a StrictArray value.
func NewStrictArray(values []*Value) *Value {
	return &Value{Kind: KindStrictArray, Values: values}
}

// NewECMAArray creates an ECMAArray value. declaredLen is re-emitted
// verbatim on AMF0 encode.
func NewECMAArray(dense []*Value, assoc []Element, declaredLen uint32) *Value {
	return &Value{Kind: KindECMAArray, Values: dense, Elements: assoc, DeclaredLen: declaredLen}
}

// NewObject creates an Object value. A nil trait means an anonymous
// AMF0-style object.
func NewObject(elements []Element, trait *Trait) *Value {
	return &Value{Kind: KindObject, Elements: elements, Trait: trait, ID: InvalidObjectID}
}

// NewVectorInt creates a Vector.<int> value.
func NewVectorInt(items []int32, fixed bool) *Value {
	return &Value{Kind: KindVectorInt, Ints: items, Fixed: fixed}
}

// NewVectorUInt creates a Vector.<uint> value.
func NewVectorUInt(items []uint32, fixed bool) *Value {
	return &Value{Kind: KindVectorUInt, Uints: items, Fixed: fixed}
}

// NewVectorDouble creates a Vector.<Number> value.
func NewVectorDouble(items []float64, fixed bool) *Value {
	return &Value{Kind: KindVectorDouble, Doubles: items, Fixed: fixed}
}

// NewVectorObject creates a Vector.<T> value. typeName names T.
func NewVectorObject(items []*Value, typeName string, fixed bool) *Value {
	return &Value{Kind: KindVectorObject, Values: items, TypeName: typeName, Fixed: fixed}
}

// NewDictionary creates a Dictionary value.
func NewDictionary(pairs []Pair, weakKeys bool) *Value {
	return &Value{Kind: KindDictionary, Pairs: pairs, Weak: weakKeys}
}

// NewCustom creates a Custom (externalizable) value.
func NewCustom(external, dynamic []Element, trait *Trait) *Value {
	return &Value{Kind: KindCustom, External: external, Elements: dynamic, Trait: trait}
}

// NewAMF3 wraps an AMF3 value for embedding in an AMF0 stream.
func NewAMF3(inner *Value) *Value {
	return &Value{Kind: KindAMF3, Inner: inner}
}

// NewObjectReference creates a reference to the object with the given id.
func NewObjectReference(id ObjectID) *Value {
	return &Value{Kind: KindObjectReference, ID: id}
}

package amf

import "bytes"

// Equal reports structural equality of two values. The AMF3 write-side
// object pool does not use it: repeats there are found by pointer identity
// and ObjectID, so equal but distinct values are written inline. Decoded
// trees are acyclic (cycles come back as KindObjectReference nodes), so
// the recursion terminates.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number == o.Number
	case KindBool:
		return v.Bool == o.Bool
	case KindString:
		return v.Str == o.Str
	case KindInteger:
		return v.Int == o.Int
	case KindNull, KindUndefined, KindUnsupported:
		return true
	case KindDate:
		if v.Number != o.Number {
			return false
		}
		if (v.TZ == nil) != (o.TZ == nil) {
			return false
		}
		return v.TZ == nil || *v.TZ == *o.TZ
	case KindXML:
		return v.Str == o.Str && v.XMLString == o.XMLString
	case KindByteArray:
		return bytes.Equal(v.Bytes, o.Bytes)
	case KindStrictArray:
		return equalValues(v.Values, o.Values)
	case KindECMAArray:
		return v.DeclaredLen == o.DeclaredLen &&
			equalValues(v.Values, o.Values) &&
			equalElements(v.Elements, o.Elements)
	case KindObject:
		return v.Trait.Equal(o.Trait) && equalElements(v.Elements, o.Elements)
	case KindVectorInt:
		if v.Fixed != o.Fixed || len(v.Ints) != len(o.Ints) {
			return false
		}
		for i, n := range v.Ints {
			if o.Ints[i] != n {
				return false
			}
		}
		return true
	case KindVectorUInt:
		if v.Fixed != o.Fixed || len(v.Uints) != len(o.Uints) {
			return false
		}
		for i, n := range v.Uints {
			if o.Uints[i] != n {
				return false
			}
		}
		return true
	case KindVectorDouble:
		if v.Fixed != o.Fixed || len(v.Doubles) != len(o.Doubles) {
			return false
		}
		for i, n := range v.Doubles {
			if o.Doubles[i] != n {
				return false
			}
		}
		return true
	case KindVectorObject:
		return v.Fixed == o.Fixed && v.TypeName == o.TypeName && equalValues(v.Values, o.Values)
	case KindDictionary:
		if v.Weak != o.Weak || len(v.Pairs) != len(o.Pairs) {
			return false
		}
		for i, p := range v.Pairs {
			if !p.Key.Equal(o.Pairs[i].Key) || !p.Value.Equal(o.Pairs[i].Value) {
				return false
			}
		}
		return true
	case KindCustom:
		return v.Trait.Equal(o.Trait) &&
			equalElements(v.External, o.External) &&
			equalElements(v.Elements, o.Elements)
	case KindAMF3:
		return v.Inner.Equal(o.Inner)
	case KindObjectReference:
		return v.ID == o.ID
	default:
		return false
	}
}

func equalValues(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if !v.Equal(b[i]) {
			return false
		}
	}
	return true
}

func equalElements(a, b []Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i, e := range a {
		if e.Name != b[i].Name || !e.Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

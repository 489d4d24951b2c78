package amf

// Trait is the shape of an AMF3 object: its class name, attributes and the
// ordered names of its sealed properties. Traits are cached per body in the
// trait pool and compared structurally, so all fields take part in Equal.
type Trait struct {
	// Name is the class name. Empty means anonymous.
	Name string

	// Dynamic marks objects that may carry properties beyond the sealed
	// ones, emitted as name/value pairs terminated by an empty name.
	Dynamic bool

	// External marks objects whose body is handled by a registered
	// external codec. External traits never carry sealed properties on
	// the wire.
	External bool

	// Properties are the sealed property names in declaration order.
	Properties []string
}

// NewTrait creates a sealed-only trait with the given class name.
func NewTrait(name string) *Trait {
	return &Trait{Name: name}
}

// Equal reports structural equality. The writer relies on it to detect a
// repeated trait and emit a trait reference instead of a definition.
func (t *Trait) Equal(o *Trait) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Name != o.Name || t.Dynamic != o.Dynamic || t.External != o.External {
		return false
	}
	if len(t.Properties) != len(o.Properties) {
		return false
	}
	for i, p := range t.Properties {
		if o.Properties[i] != p {
			return false
		}
	}
	return true
}

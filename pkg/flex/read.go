package flex

import (
	"fmt"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf3"
)

// readFlags consumes flag bytes until one without the continuation bit.
func readFlags(i []byte) (rest []byte, flags []byte, err error) {
	for {
		var b byte
		i, b, err = wire.TakeByte(i)
		if err != nil {
			return i, nil, err
		}
		flags = append(flags, b)
		if b&nextFlag == 0 {
			return i, flags, nil
		}
	}
}

// decodeFlagged reads one flag vector and the values it selects. Defined
// fields come first in bit order; set bits with no definition surface as
// <prefix><N> elements.
func decodeFlagged(i []byte, d *amf3.Decoder, defined [][]field, prefix string) (rest []byte, elements []amf.Element, err error) {
	i, flags, err := readFlags(i)
	if err != nil {
		return i, nil, err
	}
	for pos, flag := range flags {
		var fields []field
		if pos < len(defined) {
			fields = defined[pos]
		}
		var handled byte
		for _, f := range fields {
			handled |= f.bit
			if flag&f.bit == 0 {
				continue
			}
			var v *amf.Value
			i, v, err = d.DecodeValue(i)
			if err != nil {
				return i, nil, err
			}
			elements = append(elements, amf.NewElement(f.name, v))
		}
		for bit := 0; bit < 7; bit++ {
			mask := byte(1) << bit
			if handled&mask != 0 || flag&mask == 0 {
				continue
			}
			var v *amf.Value
			i, v, err = d.DecodeValue(i)
			if err != nil {
				return i, nil, err
			}
			elements = append(elements, amf.NewElement(fmt.Sprintf("%s%d", prefix, pos*7+bit), v))
		}
	}
	return i, elements, nil
}

// DecodeAbstractMessage decodes flex.messaging.io.AbstractMessage.
func DecodeAbstractMessage(i []byte, d *amf3.Decoder) (rest []byte, elements []amf.Element, err error) {
	return decodeFlagged(i, d, abstractFields, abstractChildPrefix)
}

// DecodeAsyncMessage decodes flex.messaging.io.AsyncMessage and its Ext
// variant: the abstract part followed by the async flag vector.
func DecodeAsyncMessage(i []byte, d *amf3.Decoder) (rest []byte, elements []amf.Element, err error) {
	i, elements, err = DecodeAbstractMessage(i, d)
	if err != nil {
		return i, nil, err
	}
	i, more, err := decodeFlagged(i, d, asyncFields, asyncChildPrefix)
	if err != nil {
		return i, nil, err
	}
	return i, append(elements, more...), nil
}

// DecodeAcknowledgeMessage decodes flex.messaging.io.AcknowledgeMessage,
// its Ext variant and ErrorMessage.
func DecodeAcknowledgeMessage(i []byte, d *amf3.Decoder) (rest []byte, elements []amf.Element, err error) {
	i, elements, err = DecodeAsyncMessage(i, d)
	if err != nil {
		return i, nil, err
	}
	i, more, err := decodeFlagged(i, d, acknowledgeFields, acknowledgeChildPrefix)
	if err != nil {
		return i, nil, err
	}
	return i, append(elements, more...), nil
}

// DecodeCommandMessage decodes flex.messaging.io.CommandMessage and its
// Ext variant.
func DecodeCommandMessage(i []byte, d *amf3.Decoder) (rest []byte, elements []amf.Element, err error) {
	i, elements, err = DecodeAsyncMessage(i, d)
	if err != nil {
		return i, nil, err
	}
	i, more, err := decodeFlagged(i, d, commandFields, commandChildPrefix)
	if err != nil {
		return i, nil, err
	}
	return i, append(elements, more...), nil
}

// DecodeArrayCollection decodes ArrayCollection and ArrayList: a single
// wrapped value surfaced as one element named data.
func DecodeArrayCollection(i []byte, d *amf3.Decoder) (rest []byte, elements []amf.Element, err error) {
	i, v, err := d.DecodeValue(i)
	if err != nil {
		return i, nil, err
	}
	return i, []amf.Element{amf.NewElement("data", v)}, nil
}

// DecodeObjectProxy decodes the proxy classes: a single wrapped value
// surfaced as one element named object.
func DecodeObjectProxy(i []byte, d *amf3.Decoder) (rest []byte, elements []amf.Element, err error) {
	i, v, err := d.DecodeValue(i)
	if err != nil {
		return i, nil, err
	}
	return i, []amf.Element{amf.NewElement("object", v)}, nil
}

package flex

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf3"
)

// writeFlags emits the flag vector with the continuation bit set on every
// byte but the last.
func writeFlags(buf *bytes.Buffer, flags []byte) {
	for n, flag := range flags {
		if n == len(flags)-1 {
			buf.WriteByte(flag &^ nextFlag)
		} else {
			buf.WriteByte(flag | nextFlag)
		}
	}
}

func findElement(elements []amf.Element, name string) *amf.Element {
	for n := range elements {
		if elements[n].Name == name {
			return &elements[n]
		}
	}
	return nil
}

// childIndex recovers N from a <prefix><N> element name. Names carrying a
// longer prefix (children_async_ under children_) fall out through the
// parse failure.
func childIndex(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// encodeFlagged writes one flag vector and its selected values, the exact
// inverse of decodeFlagged.
func encodeFlagged(buf *bytes.Buffer, elements []amf.Element, e *amf3.Encoder, defined [][]field, prefix string) error {
	maxPos := len(defined) - 1
	for _, el := range elements {
		if n, ok := childIndex(el.Name, prefix); ok && n/7 > maxPos {
			maxPos = n / 7
		}
	}

	flags := make([]byte, maxPos+1)
	var ordered []*amf.Value
	for pos := 0; pos <= maxPos; pos++ {
		var fields []field
		if pos < len(defined) {
			fields = defined[pos]
		}
		var handled byte
		for _, f := range fields {
			handled |= f.bit
			if el := findElement(elements, f.name); el != nil {
				flags[pos] |= f.bit
				ordered = append(ordered, el.Value)
			}
		}
		for bit := 0; bit < 7; bit++ {
			mask := byte(1) << bit
			if handled&mask != 0 {
				continue
			}
			if el := findElement(elements, fmt.Sprintf("%s%d", prefix, pos*7+bit)); el != nil {
				flags[pos] |= mask
				ordered = append(ordered, el.Value)
			}
		}
	}

	writeFlags(buf, flags)
	for _, v := range ordered {
		if err := e.WriteValue(buf, v); err != nil {
			return err
		}
	}
	return nil
}

// EncodeAbstractMessage encodes flex.messaging.io.AbstractMessage.
func EncodeAbstractMessage(elements []amf.Element, _ *amf.Trait, e *amf3.Encoder) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := encodeFlagged(buf, elements, e, abstractFields, abstractChildPrefix); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeAsyncMessage encodes flex.messaging.io.AsyncMessage and its Ext
// variant.
func EncodeAsyncMessage(elements []amf.Element, t *amf.Trait, e *amf3.Encoder) ([]byte, error) {
	payload, err := EncodeAbstractMessage(elements, t, e)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(payload)
	if err := encodeFlagged(buf, elements, e, asyncFields, asyncChildPrefix); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeAcknowledgeMessage encodes AcknowledgeMessage, its Ext variant
// and ErrorMessage.
func EncodeAcknowledgeMessage(elements []amf.Element, t *amf.Trait, e *amf3.Encoder) ([]byte, error) {
	payload, err := EncodeAsyncMessage(elements, t, e)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(payload)
	if err := encodeFlagged(buf, elements, e, acknowledgeFields, acknowledgeChildPrefix); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeCommandMessage encodes CommandMessage and its Ext variant.
func EncodeCommandMessage(elements []amf.Element, t *amf.Trait, e *amf3.Encoder) ([]byte, error) {
	payload, err := EncodeAsyncMessage(elements, t, e)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(payload)
	if err := encodeFlagged(buf, elements, e, commandFields, commandChildPrefix); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeArrayCollection encodes ArrayCollection and ArrayList: the single
// wrapped value.
func EncodeArrayCollection(elements []amf.Element, _ *amf.Trait, e *amf3.Encoder) ([]byte, error) {
	if len(elements) == 0 {
		return nil, errors.Wrap(amf.ErrOutOfRange, "array collection without a data element")
	}
	buf := new(bytes.Buffer)
	if err := e.WriteValue(buf, elements[0].Value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeObjectProxy encodes the proxy classes: the single wrapped value.
func EncodeObjectProxy(elements []amf.Element, _ *amf.Trait, e *amf3.Encoder) ([]byte, error) {
	if len(elements) == 0 {
		return nil, errors.Wrap(amf.ErrOutOfRange, "object proxy without a wrapped value")
	}
	buf := new(bytes.Buffer)
	if err := e.WriteValue(buf, elements[0].Value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

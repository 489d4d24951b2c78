package amf3

import "bytes"

// length is a decoded length-or-reference word: either an inline
// definition of the given size or a back-reference to a pool slot. The
// low bit of the underlying u29 discriminates.
type length struct {
	ref bool
	val uint32
}

func inlineLength(size uint32) length {
	return length{val: size}
}

func refLength(index int) length {
	return length{ref: true, val: uint32(index)}
}

// size is the element, byte or property count of an inline definition.
func (l length) size() uint32 {
	return l.val
}

// index is the pool slot of a reference.
func (l length) index() int {
	return int(l.val)
}

func readLength(i []byte) (rest []byte, l length, err error) {
	i, v, err := readU29(i)
	if err != nil {
		return i, length{}, err
	}
	if v&1 == 0 {
		return i, refLength(int(v >> 1)), nil
	}
	return i, inlineLength(v >> 1), nil
}

func (l length) append(buf *bytes.Buffer) error {
	if l.ref {
		return appendU29(buf, l.val<<1)
	}
	return appendU29(buf, l.val<<1|1)
}

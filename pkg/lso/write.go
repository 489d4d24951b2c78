package lso

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf0"
	"github.com/ssungk/elso/pkg/amf3"
)

// Writer encodes LSO files. It exposes its AMF encoders so external
// classes can be registered before the body is written.
type Writer struct {
	// Amf0 handles AMF0 bodies.
	Amf0 *amf0.Encoder

	// Amf3 handles AMF3 bodies.
	Amf3 *amf3.Encoder

	log zerolog.Logger
}

// NewWriter creates a Writer with fresh AMF encoders.
func NewWriter() *Writer {
	return &Writer{
		Amf0: amf0.NewEncoder(),
		Amf3: amf3.NewEncoder(),
		log:  zerolog.Nop(),
	}
}

// SetLogger installs a logger on the writer and both its encoders.
func (w *Writer) SetLogger(log zerolog.Logger) {
	w.log = log
	w.Amf0.SetLogger(log)
	w.Amf3.SetLogger(log)
}

// RegisterExternalEncoder registers an external class with both encoders.
func (w *Writer) RegisterExternalEncoder(name string, fn amf3.ExternalEncoder) {
	w.Amf0.RegisterExternalEncoder(name, fn)
	w.Amf3.RegisterExternalEncoder(name, fn)
}

// Encode writes the LSO to bytes. The header length field is computed
// from the encoded body; the length already present on l is ignored and
// l is left untouched.
func (w *Writer) Encode(l *Lso) ([]byte, error) {
	var body []byte
	var err error
	switch l.Header.Version {
	case amf.AMF0:
		body, err = w.Amf0.EncodeBody(l.Body)
	case amf.AMF3:
		body, err = w.Amf3.EncodeBody(l.Body)
	default:
		return nil, errors.Wrapf(amf.ErrInvalidVersion, "version %d", uint8(l.Header.Version))
	}
	if err != nil {
		return nil, err
	}

	name := l.Header.Name
	if len(name) > 0xFFFF {
		return nil, errors.Wrapf(amf.ErrOversizedField, "lso name of %d bytes", len(name))
	}
	length := uint32(len(body) + headerSuffixLength(name))

	buf := new(bytes.Buffer)
	buf.Write(headerVersion)
	wire.PutU32(buf, length)
	buf.Write(headerSignature)
	wire.PutU16(buf, uint16(len(name)))
	buf.WriteString(name)
	buf.Write([]byte{paddingByte, paddingByte, paddingByte})
	buf.WriteByte(byte(l.Header.Version))
	buf.Write(body)
	w.log.Trace().Str("name", name).Int("bytes", buf.Len()).Msg("lso encoded")
	return buf.Bytes(), nil
}

// Encode writes an LSO with a fresh Writer and no external classes.
func Encode(l *Lso) ([]byte, error) {
	return NewWriter().Encode(l)
}

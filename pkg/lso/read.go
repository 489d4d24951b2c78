package lso

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ssungk/elso/internal/wire"
	"github.com/ssungk/elso/pkg/amf"
	"github.com/ssungk/elso/pkg/amf0"
	"github.com/ssungk/elso/pkg/amf3"
)

// Reader decodes LSO files. It exposes its AMF decoders so external
// classes can be registered before the body is parsed.
type Reader struct {
	// Amf0 handles AMF0 bodies.
	Amf0 *amf0.Decoder

	// Amf3 handles AMF3 bodies.
	Amf3 *amf3.Decoder

	log zerolog.Logger
}

// NewReader creates a Reader with fresh AMF decoders.
func NewReader() *Reader {
	return &Reader{
		Amf0: amf0.NewDecoder(),
		Amf3: amf3.NewDecoder(),
		log:  zerolog.Nop(),
	}
}

// SetLogger installs a logger on the reader and both its decoders.
func (r *Reader) SetLogger(log zerolog.Logger) {
	r.log = log
	r.Amf0.SetLogger(log)
	r.Amf3.SetLogger(log)
}

// RegisterExternalDecoder registers an external class with both decoders,
// so the class resolves in AMF3 bodies and behind AMF0 escape markers
// alike.
func (r *Reader) RegisterExternalDecoder(name string, fn amf3.ExternalDecoder) {
	r.Amf0.RegisterExternalDecoder(name, fn)
	r.Amf3.RegisterExternalDecoder(name, fn)
}

func (r *Reader) decodeHeader(i []byte) (rest []byte, h Header, err error) {
	i, err = wire.TakeTag(i, headerVersion)
	if err != nil {
		return i, Header{}, err
	}
	i, length, err := wire.TakeU32(i)
	if err != nil {
		return i, Header{}, err
	}
	i, err = wire.TakeTag(i, headerSignature)
	if err != nil {
		return i, Header{}, err
	}
	i, name, err := amf0.DecodeString(i)
	if err != nil {
		return i, Header{}, err
	}
	i, err = wire.TakeTag(i, []byte{paddingByte, paddingByte, paddingByte})
	if err != nil {
		return i, Header{}, err
	}
	i, versionByte, err := wire.TakeByte(i)
	if err != nil {
		return i, Header{}, err
	}
	version, err := amf.ParseVersion(versionByte)
	if err != nil {
		return i, Header{}, err
	}
	return i, Header{Length: length, Name: name, Version: version}, nil
}

// DecodePartial reads an LSO from the front of the input and returns the
// unconsumed rest.
func (r *Reader) DecodePartial(i []byte) (*Lso, []byte, error) {
	i, h, err := r.decodeHeader(i)
	if err != nil {
		return nil, i, err
	}
	var body []amf.Element
	switch h.Version {
	case amf.AMF0:
		body, i, err = r.Amf0.DecodeBodyPartial(i)
	case amf.AMF3:
		body, i, err = r.Amf3.DecodeBodyPartial(i)
	}
	if err != nil {
		return nil, i, err
	}
	r.log.Trace().Str("name", h.Name).Stringer("version", h.Version).Int("elements", len(body)).Msg("lso decoded")
	return &Lso{Header: h, Body: body}, i, nil
}

// Decode reads an LSO and requires the input to hold nothing else.
func (r *Reader) Decode(i []byte) (*Lso, error) {
	l, rest, err := r.DecodePartial(i)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(amf.ErrTrailingBytes, "%d bytes after lso", len(rest))
	}
	return l, nil
}

// Decode reads an LSO with a fresh Reader and no external classes.
func Decode(i []byte) (*Lso, error) {
	return NewReader().Decode(i)
}

// DecodePartial reads an LSO with a fresh Reader and returns the
// unconsumed rest.
func DecodePartial(i []byte) (*Lso, []byte, error) {
	return NewReader().DecodePartial(i)
}

package amf

import "github.com/pkg/errors"

// Version is the AMF encoding version carried by LSO and packet headers.
type Version uint8

const (
	// AMF0 bodies use the AMF0 marker set.
	AMF0 Version = 0

	// AMF3 bodies use the AMF3 marker set and reference pools.
	AMF3 Version = 3
)

func (v Version) String() string {
	switch v {
	case AMF0:
		return "AMF0"
	case AMF3:
		return "AMF3"
	default:
		return "Unknown"
	}
}

// ParseVersion converts a header version byte. Anything other than 0 or 3
// is ErrInvalidVersion.
func ParseVersion(b byte) (Version, error) {
	switch b {
	case 0:
		return AMF0, nil
	case 3:
		return AMF3, nil
	default:
		return 0, errors.Wrapf(ErrInvalidVersion, "version byte 0x%02x", b)
	}
}

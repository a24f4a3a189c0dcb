// Package utf16 converts strings to UTF-16 encoded byte slices, as used for UTF-16 device information values.
package utf16

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// Encode converts s to UTF-16 without byte order mark, using the provided byte order. Characters outside the basic
// multilingual plane are encoded as surrogate pairs.
func Encode(s string, bo binary.ByteOrder) ([]byte, error) {
	endianness := unicode.LittleEndian
	if bo == binary.BigEndian {
		endianness = unicode.BigEndian
	}
	enc := unicode.UTF16(endianness, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to encode %q as UTF-16", s)
	}
	return out, nil
}

// EncodeTerminated is Encode followed by a 2-byte NUL terminator.
func EncodeTerminated(s string, bo binary.ByteOrder) ([]byte, error) {
	out, err := Encode(s, bo)
	if err != nil {
		return nil, err
	}
	return append(out, 0, 0), nil
}

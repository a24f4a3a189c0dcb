// Package binutil contains some helpful utilities for reading binary data from byte slices, such as SCSI responses
// and CD table of contents entries.
package binutil

import "encoding/binary"

// Duplicate creates a full copy of the input byte slice.
func Duplicate(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

// IsOnlyZeroes return true when the input data is all bytes of zero value and false if any of the bytes has a nonzero
// value.
func IsOnlyZeroes(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Zero sets all bytes of data to zero.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// TrimmedASCII returns the printable part of data as a string. Leading and trailing bytes outside of the printable
// ASCII range (0x21 through 0x7e) are stripped, which removes the space and NUL padding devices use in their
// identification strings. Bytes in between are kept as-is.
func TrimmedASCII(data []byte) string {
	first := 0
	for first < len(data) && !isPrintable(data[first]) {
		first++
	}
	last := len(data)
	for last > first && !isPrintable(data[last-1]) {
		last--
	}
	return string(data[first:last])
}

func isPrintable(b byte) bool {
	return b >= 0x21 && b <= 0x7e
}

// BinReader helps to read data from a byte slice using an offset and a data length (instead two offsets when using
// a slice expression). For example b[2:4] yields the same as Read(2, 2) using a BinReader over b. Also some convenient
// methods are provided to read integer values using a binary.ByteOrder from the slice directly.
//
// Note that methods that return a []byte may not necessarily copy the data, so modifying the returned slice may also
// affect the data in the BinReader.
//
// Methods will panic when any offset or length is outside of the bounds of the original data.
type BinReader struct {
	data []byte
	bo   binary.ByteOrder
}

// NewBinReader creates a BinReader over data using the specified binary.ByteOrder. The data slice is stored directly,
// no copy is made, so modifying the original slice will also affect the returned BinReader.
func NewBinReader(data []byte, bo binary.ByteOrder) *BinReader {
	return &BinReader{data: data, bo: bo}
}

// NewLittleEndianReader creates a BinReader over data using binary.LittleEndian. The data slice is stored directly,
// no copy is made, so modifying the original slice will also affect the returned BinReader.
func NewLittleEndianReader(data []byte) *BinReader {
	return NewBinReader(data, binary.LittleEndian)
}

// NewBigEndianReader creates a BinReader over data using binary.BigEndian, the byte order of all multi-byte SCSI
// fields. The data slice is stored directly, no copy is made.
func NewBigEndianReader(data []byte) *BinReader {
	return NewBinReader(data, binary.BigEndian)
}

// Read reads an amount of bytes as specified by length from the provided offset. The returned slice's length is the
// same as the specified length.
func (r *BinReader) Read(offset int, length int) []byte {
	return r.data[offset : offset+length]
}

// Byte returns the byte at the position indicated by the offset.
func (r *BinReader) Byte(offset int) byte {
	return r.Read(offset, 1)[0]
}

// Uint16 reads 2 bytes from the provided offset and parses them into a uint16 using the provided ByteOrder.
func (r *BinReader) Uint16(offset int) uint16 {
	return r.bo.Uint16(r.Read(offset, 2))
}

// Uint32 reads 4 bytes from the provided offset and parses them into a uint32 using the provided ByteOrder.
func (r *BinReader) Uint32(offset int) uint32 {
	return r.bo.Uint32(r.Read(offset, 4))
}

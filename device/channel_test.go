package device_test

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/scsi"
)

var errMedium = errors.New("input/output error")

// memoryChannel is a Channel over a byte slice. Reads starting in [badStart, badEnd) fail, reads before it stop at
// badStart.
type memoryChannel struct {
	data      []byte
	pos       int64
	size      uint64
	sizeCalls int

	badStart, badEnd int64
	readErr          error
	driftOnError     int64
	onError          func()

	reads    int
	failures int
	closed   bool
}

func newMemoryChannel(data []byte) *memoryChannel {
	return &memoryChannel{data: data, size: uint64(len(data)), readErr: errMedium}
}

func (c *memoryChannel) Read(p []byte) (int, error) {
	c.reads++
	if c.pos >= c.badStart && c.pos < c.badEnd {
		c.failures++
		c.pos += c.driftOnError
		if c.onError != nil {
			c.onError()
		}
		return 0, c.readErr
	}
	if c.pos >= int64(len(c.data)) {
		return 0, io.EOF
	}
	end := int64(len(c.data))
	if c.pos < c.badStart && c.badStart < end {
		end = c.badStart
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += int64(n)
	return n, nil
}

func (c *memoryChannel) Write(p []byte) (int, error) {
	if c.pos+int64(len(p)) > int64(len(c.data)) {
		return 0, errors.New("write beyond end of media")
	}
	n := copy(c.data[c.pos:], p)
	c.pos += int64(n)
	return n, nil
}

func (c *memoryChannel) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.pos = offset
	case io.SeekCurrent:
		c.pos += offset
	case io.SeekEnd:
		c.pos = int64(len(c.data)) + offset
	}
	return c.pos, nil
}

func (c *memoryChannel) Close() error {
	c.closed = true
	return nil
}

func (c *memoryChannel) Size() (uint64, error) {
	c.sizeCalls++
	return c.size, nil
}

type sectorSizedChannel struct {
	*memoryChannel
	sectorSize  uint32
	sectorCalls int
}

func (c *sectorSizedChannel) SectorSize() (uint32, error) {
	c.sectorCalls++
	return c.sectorSize, nil
}

// opticalChannel is a CD-ROM drive holding a single session data disc of 1000 sectors.
type opticalChannel struct {
	*memoryChannel
	host     string
	commands int
}

func (c *opticalChannel) ProbeHost() (string, error) {
	return c.host, nil
}

func (c *opticalChannel) Command(cdb []byte, response []byte, sense []byte) error {
	c.commands++
	switch cdb[0] {
	case scsi.OpInquiry:
		if cdb[1]&scsi.InquiryEVPD != 0 {
			copy(response, []byte{0x05, 0x80, 0x00, 0x06, 'K', 'Z', '8', '1', ' ', ' '})
			return nil
		}
		data := make([]byte, 36)
		data[0] = scsi.DeviceTypeCDROM
		data[1] = 0x80
		data[4] = 31
		copy(data[8:16], "TSSTcorp")
		copy(data[16:32], "CDDVDW SH-224DB ")
		copy(response, data)
	case scsi.OpReadTOC:
		toc := []byte{0, 0, 1, 1}
		toc = append(toc, 1, 0x14, 0, 0xa0, 0, 0, 0, 0, 1, 0, 0)
		toc = append(toc, 1, 0x14, 0, 0xa1, 0, 0, 0, 0, 1, 0, 0)
		toc = append(toc, 1, 0x14, 0, 0xa2, 0, 0, 0, 0, 0, 15, 25) // 1150 frames, sector 1000
		toc = append(toc, 1, 0x14, 0, 0x01, 0, 0, 0, 0, 0, 2, 0)
		binary.BigEndian.PutUint16(toc[0:2], uint16(len(toc)-2))
		copy(response, toc)
	case scsi.OpReadTrackInformation:
		copy(response, []byte{0x00, 0x22, 1, 1, 0, 0x04, 0x01})
	case scsi.OpReadDiscInformation:
		copy(response, []byte{0x00, 0x20, 0x0e, 0x01, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00})
	default:
		return errors.Errorf("unsupported command 0x%02x", cdb[0])
	}
	return nil
}

// ataChannel is a fixed disk on an AHCI controller that only reports ATA identity data.
type ataChannel struct {
	*memoryChannel
}

func (c *ataChannel) ProbeHost() (string, error) {
	return "ahci", nil
}

func (c *ataChannel) ATAIdentity() ([]byte, error) {
	data := make([]byte, 512)
	copy(data[20:40], ataWords("WD-WCC4N1234567"))
	copy(data[54:94], ataWords("WDC WD10EFRX-68FYTN0"))
	return data, nil
}

// ataWords stores s the way ATA identity strings are stored: space padded, with the bytes of each word swapped.
func ataWords(s string) []byte {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, ' ')
	}
	for i := 0; i < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
	return b
}

func filled(size int, value byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = value
	}
	return data
}

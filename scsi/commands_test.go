package scsi_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gosmdev/scsi"
)

type fakeCommander struct {
	cdbs      [][]byte
	responses [][]byte
	err       error
}

func (f *fakeCommander) Command(cdb []byte, response []byte, sense []byte) error {
	f.cdbs = append(f.cdbs, append([]byte(nil), cdb...))
	if f.err != nil {
		return f.err
	}
	if len(f.responses) > 0 {
		copy(response, f.responses[0])
		f.responses = f.responses[1:]
	}
	return nil
}

func TestInquiryCDB(t *testing.T) {
	cdb := scsi.InquiryCDB(false, 0, 96)
	assert.Equal(t, scsi.CDB6{0x12, 0, 0, 0, 96, 0}, cdb)

	cdb = scsi.InquiryCDB(true, scsi.PageUnitSerialNumber, 0x1234)
	assert.Equal(t, scsi.CDB6{0x12, 0x01, 0x80, 0x12, 0x34, 0}, cdb)
}

func TestReadTOCCDB(t *testing.T) {
	cdb := scsi.ReadTOCCDB(scsi.TOCFormatRawTOC, 1024)
	assert.Equal(t, scsi.CDB10{0x43, 0, 0x02, 0, 0, 0, 0, 0x04, 0x00, 0}, cdb)
}

func TestReadTrackInformationCDB(t *testing.T) {
	cdb := scsi.ReadTrackInformationCDB(0x01020304, 64)
	assert.Equal(t, scsi.CDB10{0x52, 0, 0x01, 0x02, 0x03, 0x04, 0, 0, 64, 0}, cdb)
}

func TestInquiry(t *testing.T) {
	data := make([]byte, 36)
	data[0] = 0x05
	data[1] = 0x80
	data[4] = 31
	copy(data[8:16], "HL-DT-ST")
	copy(data[16:32], "DVDRAM GH24NSD1 ")
	dev := &fakeCommander{responses: [][]byte{data}}

	buf := make([]byte, 64)
	n, err := scsi.Inquiry(dev, false, 0, buf)
	require.Nilf(t, err, "inquiry failed: %v", err)
	assert.Equal(t, 36, n)
	assert.Equal(t, []byte{0x12, 0, 0, 0, 64, 0}, dev.cdbs[0])

	inq, err := scsi.ParseInquiry(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, byte(scsi.DeviceTypeCDROM), inq.DeviceType)
	assert.True(t, inq.Removable)
	assert.Equal(t, "HL-DT-ST", inq.Vendor)
	assert.Equal(t, "DVDRAM GH24NSD1", inq.Model)
}

func TestInquiry_UnitSerialNumber(t *testing.T) {
	data := []byte{0x00, 0x80, 0x00, 0x08, ' ', 'S', 'N', '1', '2', '3', '4', ' '}
	dev := &fakeCommander{responses: [][]byte{data}}

	buf := make([]byte, 64)
	n, err := scsi.Inquiry(dev, true, scsi.PageUnitSerialNumber, buf)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "SN1234", scsi.ParseUnitSerialNumber(buf[:n]))
}

func TestInquiry_BufferTooSmall(t *testing.T) {
	dev := &fakeCommander{}
	_, err := scsi.Inquiry(dev, false, 0, make([]byte, 4))
	assert.True(t, errors.Is(err, scsi.ErrResponseTooSmall))
	assert.Empty(t, dev.cdbs)
}

func TestReadTOC_DeclaredLengthIncludesHeader(t *testing.T) {
	dev := &fakeCommander{responses: [][]byte{{0x00, 0x0e, 1, 1}}}
	n, err := scsi.ReadTOC(dev, scsi.TOCFormatRawTOC, make([]byte, 32))
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestReadTOC_DeclaredLengthExceedsBuffer(t *testing.T) {
	dev := &fakeCommander{responses: [][]byte{{0x04, 0x00, 1, 1}}}
	_, err := scsi.ReadTOC(dev, scsi.TOCFormatRawTOC, make([]byte, 32))
	require.Error(t, err)
	assert.True(t, errors.Is(err, scsi.ErrResponseTooLarge))

	var lengthErr *scsi.ResponseLengthError
	require.True(t, errors.As(err, &lengthErr))
	assert.Equal(t, 1026, lengthErr.Declared)
	assert.Equal(t, 32, lengthErr.Available)
}

func TestReadTrackInformation_CommandFailure(t *testing.T) {
	failure := errors.New("ioctl failed")
	dev := &fakeCommander{err: failure}
	_, err := scsi.ReadTrackInformation(dev, 0, make([]byte, 64))
	assert.True(t, errors.Is(err, failure))
	assert.True(t, errors.Is(err, scsi.ErrCommandFailed))
	assert.False(t, errors.Is(err, scsi.ErrResponseTooLarge))
}

func TestReadDiscInformation(t *testing.T) {
	data := []byte{0x00, 0x20, 0x0e, 0x01, 0x02, 0x01, 0x03, 0x00, 0x00, 0x00}
	dev := &fakeCommander{responses: [][]byte{data}}
	buf := make([]byte, 34)
	n, err := scsi.ReadDiscInformation(dev, buf)
	require.NoError(t, err)
	assert.Equal(t, 34, n)

	info, err := scsi.ParseDiscInformation(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, uint8(1), info.FirstTrack)
	assert.Equal(t, uint16(2), info.NumberOfSessions)
	assert.Equal(t, uint8(3), info.LastSessionStatus)
	assert.Equal(t, uint8(2), info.DiscStatus)
}

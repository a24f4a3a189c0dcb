package devfile

import (
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/binutil"
	"github.com/t9t/gosmdev/optical"
	"github.com/t9t/gosmdev/scsi"
	"golang.org/x/sys/unix"
)

const (
	sgIO              = 0x2285
	sgDxferFromDev    = -3
	sgInfoOKMask      = 0x1
	scsiStatusGood    = 0x00
	scsiProbeHost     = 0x5385
	hdioGetIdentity   = 0x030d
	cdromReadTOCHdr   = 0x5305
	cdromReadTOCEntry = 0x5306

	probeHostSize         = 256
	ataIdentitySize       = 512
	regularFileSectorSize = 512
)

// sgIOHeader is struct sg_io_hdr of <scsi/sg.h>.
type sgIOHeader struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         *byte
	cmdp           *byte
	sbp            *byte
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// cdromTOCEntry is struct cdrom_tocentry of <linux/cdrom.h>: track, adr and ctrl nibbles, format, a 4-byte address
// union and the data mode, padded to 12 bytes.
type cdromTOCEntry [12]byte

func (d *File) ioctl(request uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), request, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

// Size returns the size of the media in bytes.
func (d *File) Size() (uint64, error) {
	size, err := d.statSize()
	if err != nil || size > 0 {
		return size, err
	}
	if err := d.ioctl(unix.BLKGETSIZE64, unsafe.Pointer(&size)); err != nil {
		return 0, errors.Wrapf(err, "unable to query %s for BLKGETSIZE64", d.f.Name())
	}
	return size, nil
}

// SectorSize returns the logical sector size of a block device. Regular files are assumed to hold 512-byte sectors.
func (d *File) SectorSize() (uint32, error) {
	var size int32
	if err := d.ioctl(unix.BLKSSZGET, unsafe.Pointer(&size)); err != nil {
		if st, serr := d.f.Stat(); serr == nil && st.Mode().IsRegular() {
			return regularFileSectorSize, nil
		}
		return 0, errors.Wrapf(err, "unable to query %s for BLKSSZGET", d.f.Name())
	}
	return uint32(size), nil
}

// Command sends a SCSI command that transfers data from the device using SG_IO.
func (d *File) Command(cdb []byte, response []byte, sense []byte) error {
	if len(cdb) == 0 || len(cdb) > 16 {
		return errors.Errorf("invalid CDB size %d", len(cdb))
	}
	if len(sense) > 0xff {
		sense = sense[:0xff]
	}
	hdr := sgIOHeader{
		interfaceID:    'S',
		dxferDirection: sgDxferFromDev,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		dxferLen:       uint32(len(response)),
		cmdp:           &cdb[0],
		timeout:        uint32(scsi.CommandTimeout.Milliseconds()),
	}
	if len(response) > 0 {
		hdr.dxferp = &response[0]
	}
	if len(sense) > 0 {
		hdr.sbp = &sense[0]
	}
	if err := d.ioctl(sgIO, unsafe.Pointer(&hdr)); err != nil {
		return errors.Wrap(err, "SG_IO failed")
	}
	if hdr.info&sgInfoOKMask != 0 || hdr.status != scsiStatusGood {
		return errors.Errorf("SCSI status 0x%02x, host status 0x%04x, driver status 0x%04x", hdr.status,
			hdr.hostStatus, hdr.driverStatus)
	}
	return nil
}

// ProbeHost returns the description of the SCSI host adapter the device is attached to.
func (d *File) ProbeHost() (string, error) {
	buf := make([]byte, probeHostSize)
	binary.NativeEndian.PutUint32(buf, uint32(len(buf)))
	if err := d.ioctl(scsiProbeHost, unsafe.Pointer(&buf[0])); err != nil {
		return "", errors.Wrap(err, "SCSI_IOCTL_PROBE_HOST failed")
	}
	for i, b := range buf {
		if b == 0 {
			buf = buf[:i]
			break
		}
	}
	return binutil.TrimmedASCII(buf), nil
}

// ATAIdentity returns the IDENTIFY DEVICE data of an ATA device.
func (d *File) ATAIdentity() ([]byte, error) {
	buf := make([]byte, ataIdentitySize)
	if err := d.ioctl(hdioGetIdentity, unsafe.Pointer(&buf[0])); err != nil {
		return nil, errors.Wrap(err, "HDIO_GET_IDENTITY failed")
	}
	return buf, nil
}

// ReadTOCHeader returns the first and last track number of the disc in a CD-ROM drive.
func (d *File) ReadTOCHeader() (uint8, uint8, error) {
	var hdr [2]uint8
	if err := d.ioctl(cdromReadTOCHdr, unsafe.Pointer(&hdr)); err != nil {
		return 0, 0, errors.Wrap(err, "CDROMREADTOCHDR failed")
	}
	return hdr[0], hdr[1], nil
}

// ReadTOCEntry returns the table of contents entry of track, requesting logical block addressing.
func (d *File) ReadTOCEntry(track uint8) (optical.TOCEntry, error) {
	var raw cdromTOCEntry
	raw[0] = track
	raw[2] = optical.AddressLBA
	if err := d.ioctl(cdromReadTOCEntry, unsafe.Pointer(&raw)); err != nil {
		return optical.TOCEntry{}, errors.Wrapf(err, "CDROMREADTOCENTRY of track %d failed", track)
	}
	entry := optical.TOCEntry{
		Track:   raw[0],
		Control: tocEntryControl(raw[1], binary.NativeEndian),
		Format:  raw[2],
	}
	switch entry.Format {
	case optical.AddressLBA:
		entry.LBA = binutil.NewBinReader(raw[:], binary.NativeEndian).Uint32(4)
	case optical.AddressMSF:
		entry.Minute, entry.Second, entry.Frame = raw[4], raw[5], raw[6]
	}
	return entry, nil
}

// tocEntryControl returns cdte_ctrl from the byte holding the cdte_adr:4 and cdte_ctrl:4 bitfields. GCC allocates
// bitfields from the least significant bit on little-endian targets and from the most significant bit on big-endian
// ones, so ctrl is the high nibble on the former and the low nibble on the latter.
func tocEntryControl(b byte, bo binary.ByteOrder) uint8 {
	if bo.Uint16([]byte{0x01, 0x00}) == 0x0001 {
		return b >> 4
	}
	return b & 0x0f
}

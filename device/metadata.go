package device

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/binutil"
	"github.com/t9t/gosmdev/media"
	"github.com/t9t/gosmdev/optical"
	"github.com/t9t/gosmdev/scsi"
	"github.com/t9t/gosmdev/utf16"
)

// DefaultBytesPerSector is assumed for devices that cannot report their sector size.
const DefaultBytesPerSector = 512

const (
	inquiryResponseSize   = 255
	ataIdentitySize       = 512
	discInformationSize   = 34
	ataSerialNumberOffset = 20
	ataSerialNumberSize   = 20
	ataModelOffset        = 54
	ataModelSize          = 40
)

// Identifiers of the information values.
const (
	InformationModel        = "model"
	InformationVendor       = "vendor"
	InformationSerialNumber = "serial_number"
)

// MediaSize returns the size of the media in bytes. The size is determined once and cached, as the size of a device
// does not change while it is open.
func (h *Handle) MediaSize() (uint64, error) {
	if h.channel == nil {
		return 0, ErrClosed
	}
	if !h.mediaSizeSet {
		size, err := h.channel.Size()
		if err != nil {
			return 0, errors.Wrap(err, "unable to determine media size")
		}
		h.mediaSize = size
		h.mediaSizeSet = true
	}
	return h.mediaSize, nil
}

// BytesPerSector returns the number of bytes per sector of the media. The value is determined once and cached.
// DefaultBytesPerSector is returned for devices that cannot report it.
func (h *Handle) BytesPerSector() (uint32, error) {
	if h.channel == nil {
		return 0, ErrClosed
	}
	if !h.bytesPerSectorSet {
		h.bytesPerSector = DefaultBytesPerSector
		if sizer, ok := h.channel.(SectorSizer); ok {
			size, err := sizer.SectorSize()
			if err != nil {
				return 0, errors.Wrap(err, "unable to determine bytes per sector")
			}
			h.bytesPerSector = size
		}
		h.bytesPerSectorSet = true
	}
	return h.bytesPerSector, nil
}

// MediaType classifies the media based on the SCSI device type and removable bit.
func (h *Handle) MediaType() (media.MediaType, error) {
	if err := h.determineMediaInformation(); err != nil {
		return 0, err
	}
	switch {
	case h.deviceType == scsi.DeviceTypeCDROM:
		return media.MediaTypeOptical, nil
	case h.removable:
		return media.MediaTypeRemovable, nil
	}
	return media.MediaTypeFixed, nil
}

// BusType returns the bus the device is attached to.
func (h *Handle) BusType() (media.BusType, error) {
	if err := h.determineMediaInformation(); err != nil {
		return media.BusTypeUnknown, err
	}
	return h.busType, nil
}

// InformationValue returns the identification string of the device for one of InformationModel,
// InformationVendor or InformationSerialNumber. ErrValueMissing is returned when the device did not report it.
func (h *Handle) InformationValue(identifier string) (string, error) {
	if err := h.determineMediaInformation(); err != nil {
		return "", err
	}
	var value string
	switch identifier {
	case InformationModel:
		value = h.model
	case InformationVendor:
		value = h.vendor
	case InformationSerialNumber:
		value = h.serialNumber
	default:
		return "", errors.Wrapf(ErrInvalidArgument, "unsupported information value %q", identifier)
	}
	if value == "" {
		return "", errors.Wrapf(ErrValueMissing, "%s", identifier)
	}
	return value, nil
}

// UTF16InformationValue is InformationValue encoded as NUL-terminated little-endian UTF-16.
func (h *Handle) UTF16InformationValue(identifier string) ([]byte, error) {
	value, err := h.InformationValue(identifier)
	if err != nil {
		return nil, err
	}
	return utf16.EncodeTerminated(value, binary.LittleEndian)
}

// DiscInformation issues READ DISC INFORMATION to the device.
func (h *Handle) DiscInformation() (scsi.DiscInformation, error) {
	if h.channel == nil {
		return scsi.DiscInformation{}, ErrClosed
	}
	commander, ok := h.channel.(scsi.Commander)
	if !ok {
		return scsi.DiscInformation{}, errors.Wrap(ErrNotSupported, "device does not accept SCSI commands")
	}
	buf := make([]byte, discInformationSize)
	n, err := scsi.ReadDiscInformation(commander, buf)
	if err != nil {
		return scsi.DiscInformation{}, err
	}
	return scsi.ParseDiscInformation(buf[:n])
}

// determineMediaInformation probes the device once for its bus, identification and, for optical discs, its table of
// contents. Capabilities the channel lacks or that fail are skipped; only a closed handle is an error.
func (h *Handle) determineMediaInformation() error {
	if h.channel == nil {
		return ErrClosed
	}
	if h.mediaInformationSet {
		return nil
	}
	h.mediaInformationSet = true

	if prober, ok := h.channel.(HostProber); ok {
		host, err := prober.ProbeHost()
		if err != nil {
			h.log.V(1).Info("Unable to probe SCSI host", "error", err.Error())
		} else {
			h.busType = scsi.BusTypeFromProbeHost(host)
			h.log.V(1).Info("Probed SCSI host", "host", host, "bus", h.busType.String())
		}
	}
	if commander, ok := h.channel.(scsi.Commander); ok {
		h.inquire(commander)
	}
	if ata, ok := h.channel.(ATAIdentifier); ok && h.busType == media.BusTypeATA {
		h.identifyATA(ata)
	}
	if h.deviceType == scsi.DeviceTypeCDROM {
		h.readTableOfContents()
	}
	return nil
}

func (h *Handle) inquire(commander scsi.Commander) {
	buf := make([]byte, inquiryResponseSize)
	n, err := scsi.Inquiry(commander, false, 0, buf)
	if err != nil {
		h.log.V(1).Info("Unable to inquire device", "error", err.Error())
		return
	}
	inq, err := scsi.ParseInquiry(buf[:n])
	if err != nil {
		h.log.V(1).Info("Unable to parse inquiry data", "error", err.Error())
		return
	}
	h.deviceType = inq.DeviceType
	h.removable = inq.Removable
	h.vendor = inq.Vendor
	h.model = inq.Model
	h.log.V(1).Info("Inquired device", "type", inq.DeviceType, "removable", inq.Removable, "vendor", inq.Vendor,
		"model", inq.Model)

	binutil.Zero(buf)
	n, err = scsi.Inquiry(commander, true, scsi.PageUnitSerialNumber, buf)
	if err != nil {
		h.log.V(1).Info("Unable to read unit serial number", "error", err.Error())
		return
	}
	h.serialNumber = scsi.ParseUnitSerialNumber(buf[:n])
}

// identifyATA takes the model and serial number from ATA identity data. The data consists of little-endian 16-bit
// words, except for the strings, which are stored with the bytes of each word swapped.
func (h *Handle) identifyATA(ata ATAIdentifier) {
	data, err := ata.ATAIdentity()
	if err != nil {
		h.log.V(1).Info("Unable to identify ATA device", "error", err.Error())
		return
	}
	if len(data) < ataIdentitySize {
		h.log.V(1).Info("Ignoring short ATA identity data", "size", len(data))
		return
	}
	r := binutil.NewLittleEndianReader(data)
	if h.serialNumber == "" {
		h.serialNumber = ataString(r.Read(ataSerialNumberOffset, ataSerialNumberSize))
	}
	if h.model == "" {
		h.model = ataString(r.Read(ataModelOffset, ataModelSize))
	}
	// Word 0 bit 7 marks removable media.
	if r.Uint16(0)&0x0080 != 0 {
		h.removable = true
	}
}

func ataString(data []byte) string {
	swapped := binutil.Duplicate(data)
	for i := 0; i+1 < len(swapped); i += 2 {
		swapped[i], swapped[i+1] = swapped[i+1], swapped[i]
	}
	return binutil.TrimmedASCII(swapped)
}

// readTableOfContents replaces the tracks, sessions and lead-outs by those of the disc. An unreadable table of
// contents leaves all three empty.
func (h *Handle) readTableOfContents() {
	h.tracks, h.sessions, h.leadOuts = nil, nil, nil
	layout, err := optical.ReadTableOfContents(h.channel, h.log)
	if err != nil {
		h.log.Info("Unable to read table of contents", "error", err.Error())
		return
	}
	h.tracks = layout.Tracks
	h.sessions = layout.Sessions
	h.leadOuts = layout.LeadOuts
}

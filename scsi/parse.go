package scsi

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/binutil"
	"github.com/t9t/gosmdev/media"
)

// InquiryData holds the fields of standard inquiry data used to describe a device. Fields the device did not return
// are left empty.
type InquiryData struct {
	DeviceType byte
	Removable  bool
	Vendor     string
	Model      string
}

// ParseInquiry parses the valid part of a standard INQUIRY response. At least 5 bytes are needed for the device type
// and removable bit, 16 for the vendor and 32 for the model.
func ParseInquiry(data []byte) (InquiryData, error) {
	if len(data) < 5 {
		return InquiryData{}, errors.Errorf("inquiry data should be at least 5 bytes but is %d", len(data))
	}
	r := binutil.NewBigEndianReader(data)
	ret := InquiryData{
		DeviceType: r.Byte(0) & 0x1f,
		Removable:  r.Byte(1)&0x80 != 0,
	}
	if len(data) >= 16 {
		ret.Vendor = binutil.TrimmedASCII(r.Read(8, 8))
	}
	if len(data) >= 32 {
		ret.Model = binutil.TrimmedASCII(r.Read(16, 16))
	}
	return ret, nil
}

// ParseUnitSerialNumber returns the serial number of a unit serial number vital product data page (0x80).
func ParseUnitSerialNumber(data []byte) string {
	if len(data) <= 4 {
		return ""
	}
	return binutil.TrimmedASCII(data[4:])
}

// TrackInformation holds the fields of a READ TRACK INFORMATION response used to classify a track.
type TrackInformation struct {
	SessionNumber uint8
	TrackNumber   uint8
	TrackMode     uint8  // Control nibble: bit 2 set for data tracks
	DataMode      uint8  // 1 for mode 1, 2 for mode 2
	StartAddress  uint32 // Logical block address of the track start, 0 when not returned
	TrackSize     uint32 // Number of blocks in the track, 0 when not returned
}

// ParseTrackInformation parses the first 7 bytes of track information, and the track start and size when at least
// 28 bytes are available. Only the least significant bytes of the session and track numbers are used, which suffices
// for CD media.
func ParseTrackInformation(data []byte) (TrackInformation, error) {
	if len(data) < 7 {
		return TrackInformation{}, errors.Errorf("track information should be at least 7 bytes but is %d", len(data))
	}
	r := binutil.NewBigEndianReader(data)
	ret := TrackInformation{
		SessionNumber: r.Byte(2),
		TrackNumber:   r.Byte(3),
		TrackMode:     r.Byte(5) & 0x0f,
		DataMode:      r.Byte(6) & 0x0f,
	}
	if len(data) >= 28 {
		ret.StartAddress = r.Uint32(8)
		ret.TrackSize = r.Uint32(24)
	}
	return ret, nil
}

// Type classifies the track. Audio tracks have the data bit of the track mode cleared; uninterrupted data tracks
// are mode 1 or mode 2 with 2048 bytes per sector. Anything else is unknown.
func (i TrackInformation) Type() media.TrackType {
	if i.TrackMode&0x04 == 0 {
		return media.TrackTypeAudio
	}
	if i.TrackMode&0x08 != 0 {
		return media.TrackTypeUnknown
	}
	switch i.DataMode {
	case 1:
		return media.TrackTypeMode1_2048
	case 2:
		return media.TrackTypeMode2_2048
	}
	return media.TrackTypeUnknown
}

// DiscInformation holds the fields of standard disc information.
type DiscInformation struct {
	Erasable          bool
	LastSessionStatus uint8 // 0 empty, 1 incomplete, 2 reserved/damaged, 3 complete
	DiscStatus        uint8 // 0 empty, 1 incomplete, 2 finalized, 3 other
	FirstTrack        uint8
	NumberOfSessions  uint16
}

// ParseDiscInformation parses standard disc information of at least 10 bytes.
func ParseDiscInformation(data []byte) (DiscInformation, error) {
	if len(data) < 10 {
		return DiscInformation{}, errors.Errorf("disc information should be at least 10 bytes but is %d", len(data))
	}
	r := binutil.NewBigEndianReader(data)
	status := r.Byte(2)
	return DiscInformation{
		Erasable:          status&0x10 != 0,
		LastSessionStatus: (status >> 2) & 0x03,
		DiscStatus:        status & 0x03,
		FirstTrack:        r.Byte(3),
		NumberOfSessions:  uint16(r.Byte(9))<<8 | uint16(r.Byte(4)),
	}, nil
}

// BusTypeFromProbeHost derives the bus type from the host adapter description a SCSI host driver reports, for
// example "ahci" or "SCSI emulation for USB Mass Storage devices".
func BusTypeFromProbeHost(host string) media.BusType {
	if len(host) >= 4 {
		switch host[:4] {
		case "ahci", "pata", "sata":
			return media.BusTypeATA
		case "usb-":
			return media.BusTypeUSB
		}
	}
	switch {
	case host == "SBP-2 IEEE-1394":
		return media.BusTypeFireWire
	case host == "SCSI emulation for USB Mass Storage devices":
		return media.BusTypeUSB
	case strings.HasPrefix(host, "scsi"):
		return media.BusTypeSCSI
	}
	return media.BusTypeUnknown
}

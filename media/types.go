package media

// MediaType classifies the media in a device.
type MediaType uint8

// Known values for MediaType.
const (
	MediaTypeRemovable MediaType = 0x00
	MediaTypeFixed     MediaType = 0x01
	MediaTypeOptical   MediaType = 0x03
	MediaTypeMemory    MediaType = 0x10
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeRemovable:
		return "removable"
	case MediaTypeFixed:
		return "fixed"
	case MediaTypeOptical:
		return "optical"
	case MediaTypeMemory:
		return "memory"
	}
	return "unknown"
}

// BusType identifies the bus a device is attached to.
type BusType uint8

// Known values for BusType.
const (
	BusTypeUnknown  BusType = 0
	BusTypeATA      BusType = 'a'
	BusTypeFireWire BusType = 'f'
	BusTypeSCSI     BusType = 's'
	BusTypeUSB      BusType = 'u'
)

func (t BusType) String() string {
	switch t {
	case BusTypeATA:
		return "ATA"
	case BusTypeFireWire:
		return "FireWire (IEEE1394)"
	case BusTypeSCSI:
		return "SCSI"
	case BusTypeUSB:
		return "USB"
	}
	return "unknown"
}

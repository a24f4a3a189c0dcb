/*
	Package media describes the layout of storage media: contiguous runs of sectors (sessions, lead-outs), tracks with
	their sector formats, and the media and bus type classifications of a device.
*/
package media

import (
	"fmt"

	"github.com/pkg/errors"
)

const maxInt64 = uint64(^uint64(0) >> 1)

// ErrValueExceedsMaximum is returned when a sector value does not fit in a signed 64-bit integer.
var ErrValueExceedsMaximum = errors.New("value exceeds maximum")

// A SectorRange is a contiguous run of NumberOfSectors sectors starting at StartSector. Sessions and lead-outs are
// described by a SectorRange.
type SectorRange struct {
	StartSector     uint64
	NumberOfSectors uint64
}

// NewSectorRange creates a SectorRange. Both values must fit in a signed 64-bit integer, as must their sum.
func NewSectorRange(startSector uint64, numberOfSectors uint64) (SectorRange, error) {
	if startSector > maxInt64 {
		return SectorRange{}, errors.Wrapf(ErrValueExceedsMaximum, "invalid start sector %d", startSector)
	}
	if numberOfSectors > maxInt64 {
		return SectorRange{}, errors.Wrapf(ErrValueExceedsMaximum, "invalid number of sectors %d", numberOfSectors)
	}
	if startSector > maxInt64-numberOfSectors {
		return SectorRange{}, errors.Wrapf(ErrValueExceedsMaximum, "invalid end sector for %d + %d", startSector,
			numberOfSectors)
	}
	return SectorRange{StartSector: startSector, NumberOfSectors: numberOfSectors}, nil
}

// EndSector returns the sector directly after the range.
func (r SectorRange) EndSector() uint64 {
	return r.StartSector + r.NumberOfSectors
}

// Contains checks if sector lies within the range.
func (r SectorRange) Contains(sector uint64) bool {
	return sector >= r.StartSector && sector < r.EndSector()
}

func (r SectorRange) String() string {
	return fmt.Sprintf("%d-%d (%d sectors)", r.StartSector, r.EndSector(), r.NumberOfSectors)
}

// TrackType identifies the sector format of a track.
type TrackType uint8

// Known values for TrackType.
const (
	TrackTypeUnknown TrackType = iota
	TrackTypeAudio
	TrackTypeCDG
	TrackTypeMode1_2048
	TrackTypeMode1_2352
	TrackTypeMode2_2048
	TrackTypeMode2_2324
	TrackTypeMode2_2336
	TrackTypeMode2_2352
	TrackTypeCDI_2336
	TrackTypeCDI_2352
)

var trackTypeNames = map[TrackType]string{
	TrackTypeUnknown:    "unknown",
	TrackTypeAudio:      "audio",
	TrackTypeCDG:        "CD+G",
	TrackTypeMode1_2048: "MODE1/2048",
	TrackTypeMode1_2352: "MODE1/2352",
	TrackTypeMode2_2048: "MODE2/2048",
	TrackTypeMode2_2324: "MODE2/2324",
	TrackTypeMode2_2336: "MODE2/2336",
	TrackTypeMode2_2352: "MODE2/2352",
	TrackTypeCDI_2336:   "CDI/2336",
	TrackTypeCDI_2352:   "CDI/2352",
}

// Valid checks if t is one of the known track types.
func (t TrackType) Valid() bool {
	_, ok := trackTypeNames[t]
	return ok
}

func (t TrackType) String() string {
	if n, ok := trackTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TrackType(%d)", uint8(t))
}

// BytesPerSector returns the sector size implied by the track type. An unknown track type has no sector size and
// yields 0.
func (t TrackType) BytesPerSector() uint32 {
	switch t {
	case TrackTypeMode1_2048, TrackTypeMode2_2048:
		return 2048
	case TrackTypeMode2_2324:
		return 2324
	case TrackTypeMode2_2336, TrackTypeCDI_2336:
		return 2336
	case TrackTypeAudio, TrackTypeMode1_2352, TrackTypeMode2_2352, TrackTypeCDI_2352:
		return 2352
	case TrackTypeCDG:
		return 2448
	}
	return 0
}

// A Track is a run of sectors sharing a single sector format. The bytes per sector of a track always follow from its
// Type.
type Track struct {
	SectorRange
	Type TrackType
}

// NewTrack creates a Track, validating the sector range and the track type.
func NewTrack(startSector uint64, numberOfSectors uint64, trackType TrackType) (Track, error) {
	if !trackType.Valid() {
		return Track{}, errors.Errorf("unsupported track type %d", uint8(trackType))
	}
	r, err := NewSectorRange(startSector, numberOfSectors)
	if err != nil {
		return Track{}, err
	}
	return Track{SectorRange: r, Type: trackType}, nil
}

// BytesPerSector returns the number of bytes per sector of the track.
func (t Track) BytesPerSector() uint32 {
	return t.Type.BytesPerSector()
}

func (t Track) String() string {
	return fmt.Sprintf("%s %s", t.SectorRange, t.Type)
}

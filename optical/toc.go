/*
	Package optical reconstructs the layout of an optical disc (sessions, tracks and lead-outs) from its table of
	contents.

	Two strategies are available. The raw table of contents is read using SCSI commands when the device implements
	scsi.Commander. Only when those commands cannot be issued, the per-track table of contents entries of a TOCReader
	are used. Data that is read but turns out to be inconsistent is never retried using the other strategy.

	A Layout is only returned when reconstruction succeeded completely; there is no partial result.
*/
package optical

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/media"
	"github.com/t9t/gosmdev/scsi"
)

// ErrInconsistent is returned when the table of contents violates the ordering or numbering rules of a disc.
var ErrInconsistent = errors.New("inconsistent table of contents")

// ErrNoTableOfContents is returned when the device offers no way to read a table of contents, or when reading it
// failed.
var ErrNoTableOfContents = errors.New("no table of contents available")

// Layout is the reconstructed layout of an optical disc.
type Layout struct {
	Sessions []media.SectorRange
	Tracks   []media.Track
	LeadOuts []media.SectorRange
}

// Addressing formats of a TOCEntry.
const (
	AddressLBA = 0x01
	AddressMSF = 0x02
)

// LeadOutTrack is the track number that addresses the lead-out in a TOCReader.
const LeadOutTrack = 0xaa

// controlDataTrack is set in the control nibble of data tracks.
const controlDataTrack = 0x04

// A TOCEntry describes the start of a single track.
type TOCEntry struct {
	Track   uint8
	Control uint8 // Control nibble of the sub-channel Q
	Format  uint8 // AddressLBA or AddressMSF
	LBA     uint32
	Minute  uint8
	Second  uint8
	Frame   uint8
}

// Offset returns the start sector of the entry.
func (e TOCEntry) Offset() (uint64, error) {
	switch e.Format {
	case AddressLBA:
		return uint64(e.LBA), nil
	case AddressMSF:
		return MSFToLBA(e.Minute, e.Second, e.Frame)
	}
	return 0, errors.Wrapf(ErrInconsistent, "unsupported address format 0x%02x of track %d", e.Format, e.Track)
}

// TrackType classifies the track as audio or data. The entry does not tell the data mode, which is assumed to be
// mode 1.
func (e TOCEntry) TrackType() media.TrackType {
	if e.Control&controlDataTrack == 0 {
		return media.TrackTypeAudio
	}
	return media.TrackTypeMode1_2048
}

// A TOCReader reads the table of contents one track at a time, as offered by an operating system's CD-ROM driver.
type TOCReader interface {
	// ReadTOCHeader returns the first and last track number on the disc.
	ReadTOCHeader() (first uint8, last uint8, err error)
	// ReadTOCEntry returns the entry of a single track or of LeadOutTrack.
	ReadTOCEntry(track uint8) (TOCEntry, error)
}

// ReadTableOfContents reconstructs the disc layout of dev, which should implement scsi.Commander, TOCReader or both.
func ReadTableOfContents(dev interface{}, log logr.Logger) (*Layout, error) {
	if commander, ok := dev.(scsi.Commander); ok {
		layout, err := readRawTOC(commander, log)
		if err == nil {
			return layout, nil
		}
		if !commandFailed(err) {
			return nil, err
		}
		log.V(1).Info("Unable to read raw table of contents", "error", err.Error())
	}
	if reader, ok := dev.(TOCReader); ok {
		return readTOCEntries(reader, log)
	}
	return nil, ErrNoTableOfContents
}

func commandFailed(err error) bool {
	return errors.Is(err, scsi.ErrCommandFailed) || errors.Is(err, scsi.ErrResponseTooLarge)
}

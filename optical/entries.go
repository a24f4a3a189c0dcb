package optical

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/media"
)

// Sectors taken by the lead-out and lead-in areas between two sessions. The per-track entries do not describe
// session boundaries, so these are deducted from the last track of a session. The values hold for CD-ROM media and
// have been found empirically.
// TODO: verify the lead-in deductions against multi-session DVD media, they were only observed on CD-ROM.
const (
	FirstSessionGap = 11400
	SessionGap      = 6900
)

func readTOCEntries(r TOCReader, log logr.Logger) (*Layout, error) {
	first, last, err := r.ReadTOCHeader()
	if err != nil {
		return nil, errors.Wrapf(ErrNoTableOfContents, "unable to read TOC header: %v", err)
	}
	if first == 0 || last < first {
		return nil, errors.Wrapf(ErrInconsistent, "invalid track numbers %d through %d", first, last)
	}
	log.V(1).Info("Read TOC header", "first", first, "last", last)

	s := &entryScanner{}
	for track := int(first); track <= int(last); track++ {
		entry, err := r.ReadTOCEntry(uint8(track))
		if err != nil {
			return nil, errors.Wrapf(ErrNoTableOfContents, "unable to read TOC entry of track %d: %v", track, err)
		}
		offset, err := entry.Offset()
		if err != nil {
			return nil, err
		}
		trackType := entry.TrackType()
		log.V(2).Info("TOC entry", "track", track, "sector", offset, "type", trackType.String())
		if track > int(first) {
			if err := s.closeTrack(offset, trackType); err != nil {
				return nil, err
			}
		}
		s.trackStart = offset
		s.trackType = trackType
	}

	entry, err := r.ReadTOCEntry(LeadOutTrack)
	if err != nil {
		return nil, errors.Wrapf(ErrNoTableOfContents, "unable to read TOC entry of lead-out: %v", err)
	}
	leadOut, err := entry.Offset()
	if err != nil {
		return nil, err
	}
	log.V(2).Info("TOC entry", "track", "lead-out", "sector", leadOut)
	if err := s.closeDisc(leadOut); err != nil {
		return nil, err
	}
	return &s.layout, nil
}

type entryScanner struct {
	layout       Layout
	trackStart   uint64
	trackType    media.TrackType
	sessionStart uint64
}

// closeTrack ends the current track where the next one, of type next, starts at offset. A data track, or a change
// of track type, is taken to end a session.
func (s *entryScanner) closeTrack(offset uint64, next media.TrackType) error {
	if offset < s.trackStart || offset < s.sessionStart {
		return errors.Wrapf(ErrInconsistent, "track at %d starts before the previous one", offset)
	}
	size := offset - s.trackStart
	endsSession := s.trackType == media.TrackTypeMode1_2048 || s.trackType != next
	if endsSession {
		gap := uint64(SessionGap)
		if len(s.layout.Sessions) == 0 {
			gap = FirstSessionGap
		}
		if size < gap {
			return errors.Wrapf(ErrInconsistent, "track at %d of %d sectors is smaller than the session gap of %d",
				s.trackStart, size, gap)
		}
		size -= gap
	}
	if err := s.appendTrack(size); err != nil {
		return err
	}
	if endsSession {
		return s.appendSession(offset)
	}
	return nil
}

// closeDisc ends the last track and session at the lead-out.
func (s *entryScanner) closeDisc(leadOut uint64) error {
	if leadOut < s.trackStart || leadOut < s.sessionStart {
		return errors.Wrapf(ErrInconsistent, "lead-out at %d lies before the last track", leadOut)
	}
	if err := s.appendTrack(leadOut - s.trackStart); err != nil {
		return err
	}
	return s.appendSession(leadOut)
}

func (s *entryScanner) appendTrack(size uint64) error {
	track, err := media.NewTrack(s.trackStart, size, s.trackType)
	if err != nil {
		return err
	}
	s.layout.Tracks = append(s.layout.Tracks, track)
	return nil
}

func (s *entryScanner) appendSession(end uint64) error {
	r, err := media.NewSectorRange(s.sessionStart, end-s.sessionStart)
	if err != nil {
		return err
	}
	s.layout.Sessions = append(s.layout.Sessions, r)
	s.sessionStart = end
	return nil
}

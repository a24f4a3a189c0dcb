package optical

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/media"
	"github.com/t9t/gosmdev/scsi"
)

const (
	rawTOCHeaderSize     = 4
	rawTOCEntrySize      = 11
	initialRawTOCSize    = 1024
	trackInformationSize = 64
)

// Point codes of raw table of contents entries. Points 0x01 through 0x63 are track numbers.
const (
	pointLastTrack        = 0x63
	pointFirstTrackNumber = 0xa0 // Track number in PMIN
	pointLastTrackNumber  = 0xa1 // Track number in PMIN
	pointLeadOut          = 0xa2
	pointNextSession      = 0xb0
)

func readRawTOC(dev scsi.Commander, log logr.Logger) (*Layout, error) {
	data, err := readRawTOCData(dev)
	if err != nil {
		return nil, err
	}
	if len(data) < rawTOCHeaderSize {
		return nil, errors.Wrapf(ErrInconsistent, "raw table of contents of %d bytes has no header", len(data))
	}

	s := &rawScanner{dev: dev, log: log, declaredSessions: int(data[3])}
	log.V(1).Info("Read raw table of contents", "size", len(data), "sessions", s.declaredSessions)
	for offset := rawTOCHeaderSize; offset+rawTOCEntrySize <= len(data); offset += rawTOCEntrySize {
		if err := s.scan(data[offset : offset+rawTOCEntrySize]); err != nil {
			return nil, err
		}
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return &s.layout, nil
}

// readRawTOCData reads the raw table of contents, retrying once with a larger buffer when the device declares more
// data than fits the initial one.
func readRawTOCData(dev scsi.Commander) ([]byte, error) {
	buf := make([]byte, initialRawTOCSize)
	n, err := scsi.ReadTOC(dev, scsi.TOCFormatRawTOC, buf)
	var lengthErr *scsi.ResponseLengthError
	if errors.As(err, &lengthErr) {
		buf = make([]byte, lengthErr.Declared)
		n, err = scsi.ReadTOC(dev, scsi.TOCFormatRawTOC, buf)
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// rawScanner walks the entries of a raw table of contents in order. A track is pending from its start entry until
// the start of the next track or the end of its session is known.
type rawScanner struct {
	dev              scsi.Commander
	log              logr.Logger
	layout           Layout
	declaredSessions int

	lastTrack   uint8
	leadOut     uint64
	haveLeadOut bool

	pending        bool
	pendingStart   uint64
	pendingTrack   uint8
	pendingSession uint8

	sessionStart uint64
}

func (s *rawScanner) scan(entry []byte) error {
	session, point := entry[0], entry[3]
	switch {
	case point >= 0x01 && point <= pointLastTrack:
		start, err := MSFToLBA(entry[8], entry[9], entry[10])
		if err != nil {
			return err
		}
		s.log.V(2).Info("Track start", "session", session, "track", point, "sector", start)
		if s.pending {
			if err := s.closeTrack(start); err != nil {
				return err
			}
		}
		if int(point) != len(s.layout.Tracks)+1 {
			return errors.Wrapf(ErrInconsistent, "track %d follows track %d", point, len(s.layout.Tracks))
		}
		if n := len(s.layout.Tracks); n > 0 && start < s.layout.Tracks[n-1].EndSector() {
			return errors.Wrapf(ErrInconsistent, "track %d starts at %d before the end of track %d", point, start, n)
		}
		s.pending = true
		s.pendingStart = start
		s.pendingTrack = point
		s.pendingSession = session

	case point == pointFirstTrackNumber:
		s.log.V(2).Info("First track", "session", session, "track", entry[8])

	case point == pointLastTrackNumber:
		s.lastTrack = entry[8]
		s.log.V(2).Info("Last track", "session", session, "track", s.lastTrack)

	case point == pointLeadOut:
		leadOut, err := MSFToLBA(entry[8], entry[9], entry[10])
		if err != nil {
			return err
		}
		s.leadOut = leadOut
		s.haveLeadOut = true
		s.log.V(2).Info("Lead-out", "session", session, "sector", leadOut)

	case point == pointNextSession:
		next := AbsoluteMSFToLBA(entry[4], entry[5], entry[6])
		s.log.V(2).Info("Next session", "session", session, "sector", next)
		return s.closeSession(session, next)

	default:
		s.log.V(2).Info("Ignoring table of contents entry", "session", session, "point", point)
	}
	return nil
}

// closeSession ends the current session at next, the start of the next session. A lead-out lying within the
// session is recorded as well.
func (s *rawScanner) closeSession(session uint8, next uint64) error {
	if s.pending {
		if err := s.closeLastTrack(); err != nil {
			return err
		}
	}
	number := len(s.layout.Sessions) + 1
	if int(session) != number {
		return errors.Wrapf(ErrInconsistent, "session %d follows session %d", session, number-1)
	}
	if next <= s.sessionStart {
		return errors.Wrapf(ErrInconsistent, "next session at %d does not follow session %d at %d", next, session,
			s.sessionStart)
	}

	var leadOutSize uint64
	if s.haveLeadOut && s.leadOut >= s.sessionStart && s.leadOut < next {
		leadOutSize = next - s.leadOut
		r, err := media.NewSectorRange(s.leadOut, leadOutSize)
		if err != nil {
			return err
		}
		s.layout.LeadOuts = append(s.layout.LeadOuts, r)
	}
	size := next - s.sessionStart
	if number == s.declaredSessions {
		size -= leadOutSize
	}
	r, err := media.NewSectorRange(s.sessionStart, size)
	if err != nil {
		return err
	}
	s.layout.Sessions = append(s.layout.Sessions, r)
	s.sessionStart = next
	return nil
}

// closeLastTrack ends the pending track at the lead-out of its session.
func (s *rawScanner) closeLastTrack() error {
	if !s.haveLeadOut {
		return errors.Wrapf(ErrInconsistent, "no lead-out for track %d", s.pendingTrack)
	}
	if s.lastTrack != 0 && s.pendingTrack != s.lastTrack {
		return errors.Wrapf(ErrInconsistent, "session ends at track %d instead of %d", s.pendingTrack, s.lastTrack)
	}
	return s.closeTrack(s.leadOut)
}

// closeTrack ends the pending track at end, and determines its type using READ TRACK INFORMATION.
func (s *rawScanner) closeTrack(end uint64) error {
	if end < s.pendingStart {
		return errors.Wrapf(ErrInconsistent, "track %d ends at %d before its start at %d", s.pendingTrack, end,
			s.pendingStart)
	}
	if s.pendingStart > 0xffffffff {
		return errors.Wrapf(ErrInconsistent, "track %d starts beyond the addressable range", s.pendingTrack)
	}
	buf := make([]byte, trackInformationSize)
	n, err := scsi.ReadTrackInformation(s.dev, uint32(s.pendingStart), buf)
	if err != nil {
		return err
	}
	info, err := scsi.ParseTrackInformation(buf[:n])
	if err != nil {
		return errors.Wrapf(ErrInconsistent, "track %d: %v", s.pendingTrack, err)
	}
	if info.SessionNumber != s.pendingSession || info.TrackNumber != s.pendingTrack {
		return errors.Wrapf(ErrInconsistent, "track information of session %d track %d describes session %d track %d",
			s.pendingSession, s.pendingTrack, info.SessionNumber, info.TrackNumber)
	}

	track, err := media.NewTrack(s.pendingStart, end-s.pendingStart, info.Type())
	if err != nil {
		return err
	}
	s.log.V(1).Info("Track", "number", s.pendingTrack, "range", track.SectorRange.String(),
		"type", track.Type.String())
	s.layout.Tracks = append(s.layout.Tracks, track)
	s.pending = false
	return nil
}

// finish closes the last track, and the last session when it was not ended by a next session entry, which is the
// case for finalized discs.
func (s *rawScanner) finish() error {
	if s.pending {
		if err := s.closeLastTrack(); err != nil {
			return err
		}
	}
	if len(s.layout.Sessions) < s.declaredSessions && s.haveLeadOut && s.leadOut > s.sessionStart {
		r, err := media.NewSectorRange(s.sessionStart, s.leadOut-s.sessionStart)
		if err != nil {
			return err
		}
		s.layout.Sessions = append(s.layout.Sessions, r)
	}
	if len(s.layout.Sessions) != s.declaredSessions {
		return errors.Wrapf(ErrInconsistent, "found %d sessions but %d are declared", len(s.layout.Sessions),
			s.declaredSessions)
	}
	return nil
}

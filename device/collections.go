package device

import (
	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/fragment"
	"github.com/t9t/gosmdev/media"
)

// NumberOfSessions returns the number of sessions of an optical disc, 0 for other media.
func (h *Handle) NumberOfSessions() (int, error) {
	if err := h.determineMediaInformation(); err != nil {
		return 0, err
	}
	return len(h.sessions), nil
}

// Session returns session i of an optical disc, in sectors.
func (h *Handle) Session(i int) (media.SectorRange, error) {
	if err := h.determineMediaInformation(); err != nil {
		return media.SectorRange{}, err
	}
	if i < 0 || i >= len(h.sessions) {
		return media.SectorRange{}, errors.Wrapf(ErrIndexOutOfRange, "session %d of %d", i, len(h.sessions))
	}
	return h.sessions[i], nil
}

// NumberOfTracks returns the number of tracks of an optical disc, 0 for other media.
func (h *Handle) NumberOfTracks() (int, error) {
	if err := h.determineMediaInformation(); err != nil {
		return 0, err
	}
	return len(h.tracks), nil
}

// Track returns track i of an optical disc.
func (h *Handle) Track(i int) (media.Track, error) {
	if err := h.determineMediaInformation(); err != nil {
		return media.Track{}, err
	}
	if i < 0 || i >= len(h.tracks) {
		return media.Track{}, errors.Wrapf(ErrIndexOutOfRange, "track %d of %d", i, len(h.tracks))
	}
	return h.tracks[i], nil
}

// NumberOfLeadOuts returns the number of lead-outs of an optical disc, 0 for other media.
func (h *Handle) NumberOfLeadOuts() (int, error) {
	if err := h.determineMediaInformation(); err != nil {
		return 0, err
	}
	return len(h.leadOuts), nil
}

// LeadOut returns lead-out i of an optical disc, in sectors.
func (h *Handle) LeadOut(i int) (media.SectorRange, error) {
	if err := h.determineMediaInformation(); err != nil {
		return media.SectorRange{}, err
	}
	if i < 0 || i >= len(h.leadOuts) {
		return media.SectorRange{}, errors.Wrapf(ErrIndexOutOfRange, "lead-out %d of %d", i, len(h.leadOuts))
	}
	return h.leadOuts[i], nil
}

// NumberOfErrors returns the number of byte ranges that could not be read since the handle was opened.
func (h *Handle) NumberOfErrors() int {
	return h.errorRanges.Len()
}

// Error returns unreadable byte range i. Adjacent ranges are merged, so ranges are ordered and never touch.
func (h *Handle) Error(i int) (fragment.Fragment, error) {
	f, ok := h.errorRanges.Get(i)
	if !ok {
		return fragment.Fragment{}, errors.Wrapf(ErrIndexOutOfRange, "error %d of %d", i, h.errorRanges.Len())
	}
	return f, nil
}

// Errors returns all unreadable byte ranges.
func (h *Handle) Errors() []fragment.Fragment {
	return h.errorRanges.Fragments()
}

package optical_test

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gosmdev/media"
	"github.com/t9t/gosmdev/optical"
	"github.com/t9t/gosmdev/scsi"
)

type scsiDrive struct {
	toc       []byte
	tocErr    error
	tracks    map[uint32][]byte
	tocReads  int
	infoReads int
}

func (d *scsiDrive) Command(cdb []byte, response []byte, sense []byte) error {
	switch cdb[0] {
	case scsi.OpReadTOC:
		d.tocReads++
		if d.tocErr != nil {
			return d.tocErr
		}
		copy(response, d.toc)
	case scsi.OpReadTrackInformation:
		d.infoReads++
		lba := binary.BigEndian.Uint32(cdb[2:6])
		info, ok := d.tracks[lba]
		if !ok {
			return errors.Errorf("no track at %d", lba)
		}
		copy(response, info)
	default:
		return errors.Errorf("unsupported command 0x%02x", cdb[0])
	}
	return nil
}

type entryDrive struct {
	first, last uint8
	entries     map[uint8]optical.TOCEntry
	calls       int
}

func (d *entryDrive) ReadTOCHeader() (uint8, uint8, error) {
	d.calls++
	return d.first, d.last, nil
}

func (d *entryDrive) ReadTOCEntry(track uint8) (optical.TOCEntry, error) {
	d.calls++
	e, ok := d.entries[track]
	if !ok {
		return optical.TOCEntry{}, errors.Errorf("no entry for track %d", track)
	}
	return e, nil
}

type combinedDrive struct {
	*scsiDrive
	*entryDrive
}

func msf(frames uint64) []byte {
	return []byte{byte(frames / (60 * 75)), byte(frames / 75 % 60), byte(frames % 75)}
}

// rawEntry builds a raw TOC entry with the pointer address of an LBA (offset by 2 seconds) and the absolute address
// of abs.
func rawEntry(session byte, point byte, abs uint64, lba uint64) []byte {
	e := make([]byte, 11)
	e[0] = session
	e[1] = 0x14
	e[3] = point
	copy(e[4:7], msf(abs))
	copy(e[8:11], msf(lba+150))
	return e
}

func pointEntry(session byte, point byte, value byte) []byte {
	e := make([]byte, 11)
	e[0] = session
	e[3] = point
	e[8] = value
	return e
}

func rawTOC(sessions byte, entries ...[]byte) []byte {
	toc := []byte{0, 0, 1, sessions}
	for _, e := range entries {
		toc = append(toc, e...)
	}
	binary.BigEndian.PutUint16(toc[0:2], uint16(len(toc)-2))
	return toc
}

func trackInfo(session, track, trackMode, dataMode byte) []byte {
	info := make([]byte, 36)
	info[1] = 0x22
	info[2] = session
	info[3] = track
	info[5] = trackMode
	info[6] = dataMode
	return info
}

// twoSessionDrive has tracks 1-3 in session 1 and track 4 in session 2. Session 1 has its lead-out at 30000, and
// session 2 starts at 41400.
func twoSessionDrive(appendable bool) *scsiDrive {
	entries := [][]byte{
		pointEntry(1, 0xa0, 1),
		pointEntry(1, 0xa1, 3),
		rawEntry(1, 0xa2, 0, 30000),
		rawEntry(1, 0x01, 0, 0),
		rawEntry(1, 0x02, 0, 10000),
		rawEntry(1, 0x03, 0, 20000),
		rawEntry(1, 0xb0, 41400, 0),
		pointEntry(2, 0xa0, 4),
		pointEntry(2, 0xa1, 4),
		rawEntry(2, 0xa2, 0, 60000),
		rawEntry(2, 0x04, 0, 41400),
	}
	if appendable {
		entries = append(entries, rawEntry(2, 0xb0, 71400, 0))
	}
	return &scsiDrive{
		toc: rawTOC(2, entries...),
		tracks: map[uint32][]byte{
			0:     trackInfo(1, 1, 0x04, 0x01),
			10000: trackInfo(1, 2, 0x00, 0x0f),
			20000: trackInfo(1, 3, 0x00, 0x0f),
			41400: trackInfo(2, 4, 0x04, 0x02),
		},
	}
}

func TestMSFToLBA(t *testing.T) {
	lba, err := optical.MSFToLBA(0, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), lba)

	lba, err = optical.MSFToLBA(6, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(30000), lba)

	_, err = optical.MSFToLBA(0, 1, 74)
	assert.True(t, errors.Is(err, optical.ErrInconsistent))

	assert.Equal(t, uint64(41400), optical.AbsoluteMSFToLBA(9, 12, 0))
}

func TestMSFToLBA_Monotonic(t *testing.T) {
	var previous uint64
	for m := uint8(0); m < 80; m += 7 {
		for s := uint8(2); s < 60; s += 11 {
			for f := uint8(0); f < 75; f += 13 {
				lba, err := optical.MSFToLBA(m, s, f)
				require.NoError(t, err)
				if m > 0 || s > 2 || f > 0 {
					assert.Greater(t, lba, previous)
				}
				previous = lba
			}
		}
	}
}

func TestReadTableOfContents_RawFinalized(t *testing.T) {
	drive := twoSessionDrive(false)
	layout, err := optical.ReadTableOfContents(drive, logr.Discard())
	require.Nilf(t, err, "unable to read table of contents: %v", err)

	assert.Equal(t, []media.Track{
		{SectorRange: media.SectorRange{StartSector: 0, NumberOfSectors: 10000}, Type: media.TrackTypeMode1_2048},
		{SectorRange: media.SectorRange{StartSector: 10000, NumberOfSectors: 10000}, Type: media.TrackTypeAudio},
		{SectorRange: media.SectorRange{StartSector: 20000, NumberOfSectors: 10000}, Type: media.TrackTypeAudio},
		{SectorRange: media.SectorRange{StartSector: 41400, NumberOfSectors: 18600}, Type: media.TrackTypeMode2_2048},
	}, layout.Tracks)
	assert.Equal(t, []media.SectorRange{
		{StartSector: 0, NumberOfSectors: 41400},
		{StartSector: 41400, NumberOfSectors: 18600},
	}, layout.Sessions)
	assert.Equal(t, []media.SectorRange{{StartSector: 30000, NumberOfSectors: 11400}}, layout.LeadOuts)
	assert.Equal(t, 4, drive.infoReads)

	assertTiled(t, layout, 60000)
}

func TestReadTableOfContents_RawAppendable(t *testing.T) {
	layout, err := optical.ReadTableOfContents(twoSessionDrive(true), logr.Discard())
	require.NoError(t, err)

	require.Len(t, layout.Tracks, 4)
	assert.Equal(t, []media.SectorRange{
		{StartSector: 0, NumberOfSectors: 41400},
		{StartSector: 41400, NumberOfSectors: 18600},
	}, layout.Sessions)
	assert.Equal(t, []media.SectorRange{
		{StartSector: 30000, NumberOfSectors: 11400},
		{StartSector: 60000, NumberOfSectors: 11400},
	}, layout.LeadOuts)

	assertTiled(t, layout, 71400)
}

func TestReadTableOfContents_RawLargeTOC(t *testing.T) {
	drive := twoSessionDrive(false)
	toc := drive.toc[4:]
	for i := 0; i < 100; i++ {
		toc = append(toc, pointEntry(2, 0xc0, 0)...)
	}
	drive.toc = rawTOC(2, toc)

	layout, err := optical.ReadTableOfContents(drive, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, drive.tocReads)
	assert.Len(t, layout.Tracks, 4)
	assert.Len(t, layout.Sessions, 2)
}

func TestReadTableOfContents_RawInconsistentDoesNotFallBack(t *testing.T) {
	raw := twoSessionDrive(false)
	raw.toc = rawTOC(1,
		pointEntry(1, 0xa0, 1),
		pointEntry(1, 0xa1, 3),
		rawEntry(1, 0xa2, 0, 30000),
		rawEntry(1, 0x01, 0, 0),
		rawEntry(1, 0x03, 0, 20000),
	)
	entries := &entryDrive{first: 1, last: 1, entries: map[uint8]optical.TOCEntry{
		1:    {Track: 1, Control: 0x04, Format: optical.AddressLBA, LBA: 0},
		0xaa: {Track: 0xaa, Format: optical.AddressLBA, LBA: 30000},
	}}

	layout, err := optical.ReadTableOfContents(combinedDrive{raw, entries}, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrInconsistent), "expected inconsistent table of contents, got %v", err)
	assert.Nil(t, layout)
	assert.Equal(t, 0, entries.calls)
}

func TestReadTableOfContents_RawSessionCountMismatch(t *testing.T) {
	drive := twoSessionDrive(false)
	drive.toc[3] = 3

	_, err := optical.ReadTableOfContents(drive, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrInconsistent))
}

func TestReadTableOfContents_RawTrackInformationMismatch(t *testing.T) {
	drive := twoSessionDrive(false)
	drive.tracks[10000] = trackInfo(1, 5, 0x00, 0x0f)

	_, err := optical.ReadTableOfContents(drive, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrInconsistent))
}

func TestReadTableOfContents_RawOrderingViolations(t *testing.T) {
	tests := []struct {
		name string
		toc  []byte
	}{
		{
			name: "session number skipped",
			toc: rawTOC(2,
				pointEntry(1, 0xa0, 1),
				pointEntry(1, 0xa1, 3),
				rawEntry(1, 0xa2, 0, 30000),
				rawEntry(1, 0x01, 0, 0),
				rawEntry(1, 0x02, 0, 10000),
				rawEntry(1, 0x03, 0, 20000),
				rawEntry(3, 0xb0, 41400, 0),
			),
		},
		{
			name: "track starts before previous track",
			toc: rawTOC(1,
				pointEntry(1, 0xa0, 1),
				pointEntry(1, 0xa1, 2),
				rawEntry(1, 0xa2, 0, 30000),
				rawEntry(1, 0x01, 0, 10000),
				rawEntry(1, 0x02, 0, 5000),
			),
		},
		{
			name: "session ends before last track",
			toc: rawTOC(2,
				pointEntry(1, 0xa0, 1),
				pointEntry(1, 0xa1, 3),
				rawEntry(1, 0xa2, 0, 30000),
				rawEntry(1, 0x01, 0, 0),
				rawEntry(1, 0x02, 0, 10000),
				rawEntry(1, 0xb0, 41400, 0),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drive := twoSessionDrive(false)
			drive.toc = tt.toc

			layout, err := optical.ReadTableOfContents(drive, logr.Discard())
			assert.True(t, errors.Is(err, optical.ErrInconsistent), "expected inconsistent table of contents, got %v",
				err)
			assert.Nil(t, layout)
		})
	}
}

func TestReadTableOfContents_RawIgnoresPointZero(t *testing.T) {
	drive := twoSessionDrive(false)
	toc := append([]byte{}, drive.toc[:4]...)
	toc = append(toc, pointEntry(1, 0x00, 0)...)
	toc = append(toc, drive.toc[4:]...)
	binary.BigEndian.PutUint16(toc[0:2], uint16(len(toc)-2))
	drive.toc = toc

	layout, err := optical.ReadTableOfContents(drive, logr.Discard())
	require.Nilf(t, err, "unable to read table of contents: %v", err)
	assert.Len(t, layout.Tracks, 4)
	assert.Len(t, layout.Sessions, 2)
}

func TestReadTableOfContents_FallsBackWhenCommandFails(t *testing.T) {
	raw := &scsiDrive{tocErr: errors.New("invalid command operation code")}
	entries := &entryDrive{first: 1, last: 2, entries: map[uint8]optical.TOCEntry{
		1:    {Track: 1, Control: 0x04, Format: optical.AddressLBA, LBA: 0},
		2:    {Track: 2, Control: 0x04, Format: optical.AddressMSF, Minute: 6, Second: 42},
		0xaa: {Track: 0xaa, Control: 0x04, Format: optical.AddressLBA, LBA: 50000},
	}}

	layout, err := optical.ReadTableOfContents(combinedDrive{raw, entries}, logr.Discard())
	require.Nilf(t, err, "unable to read table of contents: %v", err)
	assert.Equal(t, 1, raw.tocReads)

	assert.Equal(t, []media.Track{
		{SectorRange: media.SectorRange{StartSector: 0, NumberOfSectors: 18600}, Type: media.TrackTypeMode1_2048},
		{SectorRange: media.SectorRange{StartSector: 30000, NumberOfSectors: 20000}, Type: media.TrackTypeMode1_2048},
	}, layout.Tracks)
	assert.Equal(t, []media.SectorRange{
		{StartSector: 0, NumberOfSectors: 30000},
		{StartSector: 30000, NumberOfSectors: 20000},
	}, layout.Sessions)
	assert.Empty(t, layout.LeadOuts)
}

func TestReadTableOfContents_EntriesMixedMode(t *testing.T) {
	entries := &entryDrive{first: 1, last: 3, entries: map[uint8]optical.TOCEntry{
		1:    {Track: 1, Control: 0x04, Format: optical.AddressLBA, LBA: 0},
		2:    {Track: 2, Control: 0x00, Format: optical.AddressLBA, LBA: 20000},
		3:    {Track: 3, Control: 0x00, Format: optical.AddressLBA, LBA: 30000},
		0xaa: {Track: 0xaa, Format: optical.AddressLBA, LBA: 40000},
	}}

	layout, err := optical.ReadTableOfContents(entries, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, []media.Track{
		{SectorRange: media.SectorRange{StartSector: 0, NumberOfSectors: 8600}, Type: media.TrackTypeMode1_2048},
		{SectorRange: media.SectorRange{StartSector: 20000, NumberOfSectors: 10000}, Type: media.TrackTypeAudio},
		{SectorRange: media.SectorRange{StartSector: 30000, NumberOfSectors: 10000}, Type: media.TrackTypeAudio},
	}, layout.Tracks)
	assert.Equal(t, []media.SectorRange{
		{StartSector: 0, NumberOfSectors: 20000},
		{StartSector: 20000, NumberOfSectors: 20000},
	}, layout.Sessions)
}

func TestReadTableOfContents_EntriesGapTooSmall(t *testing.T) {
	entries := &entryDrive{first: 1, last: 2, entries: map[uint8]optical.TOCEntry{
		1:    {Track: 1, Control: 0x04, Format: optical.AddressLBA, LBA: 0},
		2:    {Track: 2, Control: 0x04, Format: optical.AddressLBA, LBA: optical.FirstSessionGap - 1},
		0xaa: {Track: 0xaa, Format: optical.AddressLBA, LBA: 40000},
	}}

	_, err := optical.ReadTableOfContents(entries, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrInconsistent))
}

func TestReadTableOfContents_EntryUnavailable(t *testing.T) {
	entries := &entryDrive{first: 1, last: 1, entries: map[uint8]optical.TOCEntry{
		1: {Track: 1, Control: 0x04, Format: optical.AddressLBA, LBA: 0},
	}}

	_, err := optical.ReadTableOfContents(entries, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrNoTableOfContents))
}

func TestReadTableOfContents_Unsupported(t *testing.T) {
	_, err := optical.ReadTableOfContents(struct{}{}, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrNoTableOfContents))

	_, err = optical.ReadTableOfContents(&scsiDrive{tocErr: errors.New("not a CD-ROM")}, logr.Discard())
	assert.True(t, errors.Is(err, optical.ErrNoTableOfContents))
}

// assertTiled checks that tracks and lead-outs together cover [0, end) without gaps or overlaps.
func assertTiled(t *testing.T, layout *optical.Layout, end uint64) {
	var ranges []media.SectorRange
	for _, track := range layout.Tracks {
		ranges = append(ranges, track.SectorRange)
	}
	ranges = append(ranges, layout.LeadOuts...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].StartSector < ranges[j].StartSector })

	var next uint64
	for _, r := range ranges {
		assert.Equalf(t, next, r.StartSector, "range %v does not follow %d", r, next)
		next = r.EndSector()
	}
	assert.Equal(t, end, next)
}

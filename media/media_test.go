package media_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gosmdev/media"
)

func TestNewSectorRange(t *testing.T) {
	r, err := media.NewSectorRange(150, 300)
	require.Nilf(t, err, "unable to create sector range: %v", err)

	assert.Equal(t, uint64(450), r.EndSector())
	assert.True(t, r.Contains(150))
	assert.True(t, r.Contains(449))
	assert.False(t, r.Contains(450))
	assert.False(t, r.Contains(149))
}

func TestNewSectorRange_ExceedsMaximum(t *testing.T) {
	_, err := media.NewSectorRange(math.MaxInt64+1, 1)
	assert.True(t, errors.Is(err, media.ErrValueExceedsMaximum))

	_, err = media.NewSectorRange(0, math.MaxInt64+1)
	assert.True(t, errors.Is(err, media.ErrValueExceedsMaximum))

	_, err = media.NewSectorRange(math.MaxInt64, 1)
	assert.True(t, errors.Is(err, media.ErrValueExceedsMaximum))
}

func TestTrackBytesPerSector(t *testing.T) {
	expected := map[media.TrackType]uint32{
		media.TrackTypeUnknown:    0,
		media.TrackTypeAudio:      2352,
		media.TrackTypeCDG:        2448,
		media.TrackTypeMode1_2048: 2048,
		media.TrackTypeMode1_2352: 2352,
		media.TrackTypeMode2_2048: 2048,
		media.TrackTypeMode2_2324: 2324,
		media.TrackTypeMode2_2336: 2336,
		media.TrackTypeMode2_2352: 2352,
		media.TrackTypeCDI_2336:   2336,
		media.TrackTypeCDI_2352:   2352,
	}
	for trackType, bytesPerSector := range expected {
		track, err := media.NewTrack(0, 10, trackType)
		require.Nilf(t, err, "unable to create %v track: %v", trackType, err)
		assert.Equalf(t, bytesPerSector, track.BytesPerSector(), "bytes per sector of %v", trackType)
	}
}

func TestNewTrack_UnsupportedType(t *testing.T) {
	_, err := media.NewTrack(0, 10, media.TrackType(42))
	assert.Error(t, err)
}

func TestTrackString(t *testing.T) {
	track, err := media.NewTrack(0, 1000, media.TrackTypeMode1_2048)
	require.NoError(t, err)
	assert.Equal(t, "0-1000 (1000 sectors) MODE1/2048", track.String())
}

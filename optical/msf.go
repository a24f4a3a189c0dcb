package optical

import "github.com/pkg/errors"

// CD addressing constants.
const (
	FramesPerSecond  = 75
	SecondsPerMinute = 60

	// The user area starts 2 seconds (150 frames) into the disc, so MSF 00:02:00 is logical block 0.
	userAreaFrames = 2 * FramesPerSecond
)

// AbsoluteMSFToLBA converts a minute:second:frame address to a frame count from the very start of the disc.
func AbsoluteMSFToLBA(minute, second, frame uint8) uint64 {
	return (uint64(minute)*SecondsPerMinute+uint64(second))*FramesPerSecond + uint64(frame)
}

// MSFToLBA converts a minute:second:frame address to a logical block address. Addresses before 00:02:00 do not map
// to a logical block and result in ErrInconsistent.
func MSFToLBA(minute, second, frame uint8) (uint64, error) {
	abs := AbsoluteMSFToLBA(minute, second, frame)
	if abs < userAreaFrames {
		return 0, errors.Wrapf(ErrInconsistent, "MSF %02d:%02d:%02d lies before the user area", minute, second,
			frame)
	}
	return abs - userAreaFrames, nil
}

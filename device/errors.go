package device

import "github.com/pkg/errors"

var (
	ErrClosed            = errors.New("device handle is not open")
	ErrAlreadyOpen       = errors.New("device handle is already open")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrOffsetOutOfBounds = errors.New("offset beyond end of media")
	ErrNotSupported      = errors.New("not supported by device")
	ErrValueMissing      = errors.New("information value not available")
	ErrAborted           = errors.New("read aborted")
)

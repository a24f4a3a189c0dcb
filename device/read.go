package device

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/binutil"
)

// Read reads up to len(p) bytes from the current offset. A read never crosses the end of the media; reading at or
// beyond the end results in ErrOffsetOutOfBounds. When the media size is unknown, io.EOF is returned once the device
// returns no more data.
//
// Failed reads are retried up to NumberOfErrorRetries times per error granularity unit. When the retries are
// exhausted the unreadable data is zero-filled, recorded as an error range and skipped, so Read returns the requested
// number of bytes unless the read was aborted or hit a non-retriable error. The offset advances by the number of
// bytes returned.
func (h *Handle) Read(p []byte) (int, error) {
	if h.channel == nil {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	size, err := h.MediaSize()
	if err != nil {
		return 0, err
	}
	if size > 0 {
		if h.offset < 0 || uint64(h.offset) >= size {
			return 0, errors.Wrapf(ErrOffsetOutOfBounds, "offset %d, media size %d", h.offset, size)
		}
		if remaining := size - uint64(h.offset); uint64(len(p)) > remaining {
			p = p[:remaining]
		}
	}

	n, err := h.readBuffer(p)
	h.offset += int64(n)
	if err != nil {
		return n, err
	}
	if n == 0 {
		if h.abort.Load() {
			return 0, ErrAborted
		}
		return 0, io.EOF
	}
	return n, nil
}

// readBuffer fills p from the channel, which is positioned at h.offset.
func (h *Handle) readBuffer(p []byte) (int, error) {
	granularity := int(h.config.ErrorGranularity)
	if granularity <= 0 {
		granularity = len(p)
	}
	retryLimit := int(h.config.ErrorRetries)

	bufferOffset := 0
	retries := 0
	for bufferOffset < len(p) {
		if h.abort.Load() {
			h.log.V(1).Info("Read aborted", "offset", h.offset+int64(bufferOffset))
			break
		}
		if retries > retryLimit {
			next, err := h.skipUnreadable(p, bufferOffset, granularity)
			if err != nil {
				return bufferOffset, err
			}
			bufferOffset = next
			retries = 0
			continue
		}

		before := bufferOffset
		n, err := h.channel.Read(p[bufferOffset:])
		if n > 0 {
			bufferOffset += n
		}
		if err != nil && err != io.EOF {
			if isFatal(err) {
				return bufferOffset, errors.Wrapf(err, "unable to read from device at offset %d",
					h.offset+int64(bufferOffset))
			}
			h.log.V(1).Info("Read failed", "offset", h.offset+int64(bufferOffset), "attempt", retries+1,
				"error", err.Error())
			if n == 0 {
				skipped, err := h.absorbDrift(p, bufferOffset)
				if err != nil {
					return bufferOffset, err
				}
				bufferOffset += skipped
			}
		} else if n == 0 {
			break
		}

		if bufferOffset/granularity > before/granularity {
			retries = 0
		} else if err != nil && err != io.EOF {
			retries++
		}
	}
	return bufferOffset, nil
}

// absorbDrift handles a device that moved its position ahead during a failed read. The bytes it moved past are
// zeroed and counted as read. The number of such bytes is returned.
func (h *Handle) absorbDrift(p []byte, bufferOffset int) (int, error) {
	expected := h.offset + int64(bufferOffset)
	pos, err := h.channel.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.Wrap(err, "unable to determine device position after read error")
	}
	if pos < expected {
		return 0, errors.Errorf("device position %d lies before the expected position %d after read error", pos,
			expected)
	}
	drift := pos - expected
	if remaining := int64(len(p) - bufferOffset); drift > remaining {
		// Only the rest of the buffer is counted as read, the channel is moved back to match.
		if _, err := h.channel.Seek(remaining-drift, io.SeekCurrent); err != nil {
			return 0, errors.Wrapf(err, "unable to move device back %d bytes after read error", drift-remaining)
		}
		drift = remaining
	}
	if drift > 0 {
		h.log.V(1).Info("Device skipped data during read error", "offset", expected, "size", drift)
		binutil.Zero(p[bufferOffset : bufferOffset+int(drift)])
	}
	return int(drift), nil
}

// skipUnreadable zero-fills the unreadable part of the granularity unit containing bufferOffset, records it as an
// error range and moves the channel past it. It returns the buffer offset directly after the unit.
func (h *Handle) skipUnreadable(p []byte, bufferOffset int, granularity int) (int, error) {
	unitStart := (bufferOffset / granularity) * granularity
	unitEnd := unitStart + granularity
	if unitEnd > len(p) {
		unitEnd = len(p)
	}
	start := bufferOffset
	if h.config.ErrorFlags&ErrorFlagZeroOnError != 0 {
		start = unitStart
	}
	binutil.Zero(p[start:unitEnd])

	offset := h.offset + int64(start)
	size := int64(unitEnd - start)
	h.log.Info("Unable to read data, zero-filled", "offset", offset, "size", size)
	if err := h.errorRanges.Append(offset, size); err != nil {
		return bufferOffset, errors.Wrap(err, "unable to record read error")
	}
	if _, err := h.channel.Seek(int64(unitEnd-bufferOffset), io.SeekCurrent); err != nil {
		return bufferOffset, errors.Wrapf(err, "unable to skip %d unreadable bytes", unitEnd-bufferOffset)
	}
	return unitEnd, nil
}

// Write writes p at the current offset. Write errors are not retried.
func (h *Handle) Write(p []byte) (int, error) {
	if h.channel == nil {
		return 0, ErrClosed
	}
	n, err := h.channel.Write(p)
	if n > 0 {
		h.offset += int64(n)
	}
	if err != nil {
		return n, errors.Wrapf(err, "unable to write to device at offset %d", h.offset)
	}
	return n, nil
}

// Seek sets the offset for the next Read or Write. io.SeekEnd is relative to the media size.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h.channel == nil {
		return 0, ErrClosed
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = h.offset + offset
	case io.SeekEnd:
		size, err := h.MediaSize()
		if err != nil {
			return h.offset, err
		}
		if size > math.MaxInt64 {
			return h.offset, errors.Wrapf(ErrInvalidArgument, "media size %d exceeds maximum", size)
		}
		target = int64(size) + offset
	default:
		return h.offset, errors.Wrapf(ErrInvalidArgument, "unsupported whence %d", whence)
	}
	if target < 0 {
		return h.offset, errors.Wrapf(ErrInvalidArgument, "negative offset %d", target)
	}
	pos, err := h.channel.Seek(target, io.SeekStart)
	if err != nil {
		return h.offset, errors.Wrapf(err, "unable to seek device to offset %d", target)
	}
	h.offset = pos
	return pos, nil
}

// Offset returns the current offset.
func (h *Handle) Offset() int64 {
	return h.offset
}

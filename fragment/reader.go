package fragment

import (
	"io"

	"github.com/pkg/errors"
)

// Reader reads the fragments of src one after another, as if they were a single contiguous stream. It is used to
// extract a session or track from a device.
type Reader struct {
	src       io.ReadSeeker
	fragments []Fragment
	idx       int
	remaining int64
}

// NewReader creates a Reader over the fragments of src. The fragments are read in the order given.
func NewReader(src io.ReadSeeker, fragments []Fragment) *Reader {
	return &Reader{src: src, fragments: fragments, idx: -1, remaining: 0}
}

func (r *Reader) Read(p []byte) (n int, err error) {
	if r.idx >= len(r.fragments) {
		return 0, io.EOF
	}

	if len(p) == 0 {
		return 0, nil
	}

	for r.remaining == 0 {
		r.idx++
		if r.idx >= len(r.fragments) {
			return 0, io.EOF
		}
		next := r.fragments[r.idx]
		r.remaining = next.Length
		seeked, err := r.src.Seek(next.Offset, io.SeekStart)
		if err != nil {
			return 0, errors.Wrapf(err, "unable to seek to next offset %d", next.Offset)
		}
		if seeked != next.Offset {
			return 0, errors.Errorf("wanted to seek to %d but reached %d", next.Offset, seeked)
		}
	}

	target := p
	if int64(len(p)) > r.remaining {
		target = p[:r.remaining]
	}

	n, err = io.ReadFull(r.src, target)
	r.remaining -= int64(n)
	return n, err
}

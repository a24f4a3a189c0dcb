/*
	Package fragment describes regions of a device as (offset, length) pairs.

	A List keeps such regions ordered and merged, which is how unreadable regions of a device are recorded during a
	fault-tolerant read. A Reader stitches regions of an io.ReadSeeker together into one stream.
*/
package fragment

import (
	"sort"

	"github.com/pkg/errors"
)

// Fragment is a contiguous region of Length bytes starting at Offset.
type Fragment struct {
	Offset int64
	Length int64
}

// End returns the offset directly after the fragment.
func (f Fragment) End() int64 {
	return f.Offset + f.Length
}

// List is an ordered collection of non-overlapping fragments. Fragments that overlap or touch are merged on
// insertion, so a region is never present twice. The zero value is an empty list ready for use.
type List struct {
	fragments []Fragment
}

// Append adds the region [offset, offset+length) to the list, merging it with any fragment it overlaps or is adjacent
// to.
func (l *List) Append(offset int64, length int64) error {
	if offset < 0 {
		return errors.Errorf("invalid fragment offset %d", offset)
	}
	if length <= 0 {
		return errors.Errorf("invalid fragment length %d", length)
	}
	if offset > maxInt64-length {
		return errors.Errorf("fragment at offset %d with length %d exceeds maximum", offset, length)
	}
	merged := Fragment{Offset: offset, Length: length}

	// first fragment that ends at or after the new start; everything before it stays untouched
	first := sort.Search(len(l.fragments), func(i int) bool {
		return l.fragments[i].End() >= merged.Offset
	})
	last := first
	for last < len(l.fragments) && l.fragments[last].Offset <= merged.End() {
		f := l.fragments[last]
		end := merged.End()
		if f.Offset < merged.Offset {
			merged.Offset = f.Offset
		}
		if f.End() > end {
			end = f.End()
		}
		merged.Length = end - merged.Offset
		last++
	}

	tail := append([]Fragment{merged}, l.fragments[last:]...)
	l.fragments = append(l.fragments[:first], tail...)
	return nil
}

// Len returns the number of fragments in the list.
func (l *List) Len() int {
	return len(l.fragments)
}

// Get returns the fragment at index i. The boolean is false when i is out of range.
func (l *List) Get(i int) (Fragment, bool) {
	if i < 0 || i >= len(l.fragments) {
		return Fragment{}, false
	}
	return l.fragments[i], true
}

// Fragments returns a copy of all fragments in the list.
func (l *List) Fragments() []Fragment {
	ret := make([]Fragment, len(l.fragments))
	copy(ret, l.fragments)
	return ret
}

// Clear removes all fragments.
func (l *List) Clear() {
	l.fragments = nil
}

const maxInt64 = int64(^uint64(0) >> 1)

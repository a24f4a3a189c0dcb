//go:build !linux

package devfile

// Size returns the size of the media in bytes. Only the size of regular files is known; for devices it is 0.
func (d *File) Size() (uint64, error) {
	return d.statSize()
}

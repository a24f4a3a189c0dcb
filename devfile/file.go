/*
	Package devfile opens storage media devices, such as /dev/sda or /dev/sr0, as a channel for device.Handle.

	On Linux a File also issues SCSI commands (SG_IO), probes the SCSI host, reads ATA identity data and reads the CD-ROM
	table of contents using ioctls. Those requests fail on regular files and on devices that do not support them;
	callers treat such failures as an unsupported capability. Elsewhere a File only reads and writes.
*/
package devfile

import (
	"os"

	"github.com/pkg/errors"
)

// File is a device opened for raw access.
type File struct {
	f *os.File
}

// Open opens the device at path, read-only unless writable is set.
func Open(path string, writable bool) (*File, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open device %s", path)
	}
	return &File{f: f}, nil
}

// Name returns the path the device was opened with.
func (d *File) Name() string {
	return d.f.Name()
}

func (d *File) Read(p []byte) (int, error) {
	return d.f.Read(p)
}

func (d *File) Write(p []byte) (int, error) {
	return d.f.Write(p)
}

func (d *File) Seek(offset int64, whence int) (int64, error) {
	return d.f.Seek(offset, whence)
}

func (d *File) Close() error {
	return d.f.Close()
}

// statSize returns the size of a regular file. Devices report a size of 0.
func (d *File) statSize() (uint64, error) {
	st, err := d.f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "unable to stat %s", d.f.Name())
	}
	if !st.Mode().IsRegular() {
		return 0, nil
	}
	return uint64(st.Size()), nil
}

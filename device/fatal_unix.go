//go:build unix

package device

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// isFatal checks if a read error means the device can no longer be read at all, so retrying is pointless.
func isFatal(err error) bool {
	for _, errno := range []unix.Errno{unix.ESPIPE, unix.EPERM, unix.ENXIO, unix.ENODEV} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return errors.Is(err, os.ErrClosed)
}

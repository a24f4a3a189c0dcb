//go:build !unix

package device

import (
	"os"

	"github.com/pkg/errors"
)

func isFatal(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrClosed)
}

//go:build !linux

package serialtransport

import (
	"os"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

// configureRaw is only implemented for Linux's termios ioctl layout; on
// other platforms Open fails with ErrNotSupported rather than silently
// running a serial port without raw-mode configuration.
func configureRaw(f *os.File, baudRate, timeoutMS int) error {
	return errors.New(errors.ErrNotSupported, "serial transport raw-mode configuration is only implemented on linux")
}

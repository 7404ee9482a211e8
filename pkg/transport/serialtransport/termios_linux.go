//go:build linux

package serialtransport

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// configureRaw puts f into 8N1 raw mode at baudRate via termios ioctls,
// with VMIN=0 and VTIME scaled from timeoutMS so Read returns as soon as
// a byte arrives or the deciseconds-granularity timeout elapses,
// whichever first (POSIX termios timing, see termios(3)).
func configureRaw(f *os.File, baudRate, timeoutMS int) error {
	speed, ok := baudRates[baudRate]
	if !ok {
		return errors.Newf(errors.ErrInvalidParam, "unsupported baud rate %d", baudRate)
	}

	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return errors.Wrap(errors.ErrTransport, "failed to read termios", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD

	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = uint8(clampDeciseconds(timeoutMS))

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return errors.Wrap(errors.ErrTransport, "failed to apply termios", err)
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, setSpeed(t, speed)); err != nil {
		return errors.Wrap(errors.ErrTransport, "failed to set baud rate", err)
	}
	return nil
}

func setSpeed(t *unix.Termios, speed uint32) *unix.Termios {
	t.Ispeed = speed
	t.Ospeed = speed
	return t
}

// clampDeciseconds converts a millisecond timeout to termios VTIME units
// (deciseconds), clamped to the single-byte range termios.Cc permits.
func clampDeciseconds(timeoutMS int) int {
	d := timeoutMS / 100
	if d < 1 {
		return 1
	}
	if d > 255 {
		return 255
	}
	return d
}

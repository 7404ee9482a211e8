// Package serialtransport implements master.Transport over a termios-
// configured serial device, the concrete RTU/ASCII transport the
// abstract Transport interface is written against.
package serialtransport

import (
	"context"
	"os"
	"time"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

// Transport is a raw-mode serial port master.Transport. DelayChars
// sleeps for n character-times at the configured baud rate, standing in
// for the inter-frame gap RTU/ASCII timing requires between round-trips.
type Transport struct {
	file      *os.File
	baudRate  int
	timeoutMS int
}

// Open opens port (e.g. "/dev/ttyUSB0") in raw mode at baudRate, with
// VTIME configured so Recv returns within roughly timeoutMS.
func Open(port string, baudRate, timeoutMS int) (*Transport, error) {
	f, err := os.OpenFile(port, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, "failed to open serial device", err)
	}
	if err := configureRaw(f, baudRate, timeoutMS); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Transport{file: f, baudRate: baudRate, timeoutMS: timeoutMS}, nil
}

// Send writes buf to the serial device.
func (t *Transport) Send(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := t.file.Write(buf)
	if err != nil {
		return n, errors.Wrap(errors.ErrTransport, "serial write failed", err)
	}
	return n, nil
}

// Recv reads whatever the termios VTIME/VMIN settings deliver within one
// read() call. A read that returns zero bytes is the termios
// inter-character timeout firing, which the Master treats as Timeout.
func (t *Transport) Recv(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := t.file.Read(buf)
	if err != nil {
		return n, errors.Wrap(errors.ErrTransport, "serial read failed", err)
	}
	return n, nil
}

// DelayChars sleeps for n character-times at the configured baud rate
// (10 bits/character: 1 start + 8 data + 1 stop, the common 8N1 framing).
func (t *Transport) DelayChars(ctx context.Context, n int) error {
	if n <= 0 {
		return ctx.Err()
	}
	charTime := time.Second * 10 / time.Duration(t.baudRate)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(charTime * time.Duration(n)):
		return nil
	}
}

// Close closes the serial device.
func (t *Transport) Close() error {
	return t.file.Close()
}

// Package tcptransport implements master.Transport over a TCP connection
// to a Modbus TCP slave (or gateway), the concrete counterpart to the
// MBAP framing variant.
package tcptransport

import (
	"context"
	"net"
	"time"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

// Transport is a net.Conn-backed master.Transport. DelayChars is a no-op:
// TCP mode charges zero gap cost (cost.NewParams defaults GapChars to 0
// for cost.ModeTCP), so the master never calls it in practice, but the
// method still honors ctx cancellation if it ever is.
type Transport struct {
	conn      net.Conn
	timeoutMS int
}

// Dial opens a TCP connection to addr ("host:port") with the given
// per-round-trip timeout.
func Dial(ctx context.Context, addr string, timeoutMS int) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, "dial failed", err)
	}
	return &Transport{conn: conn, timeoutMS: timeoutMS}, nil
}

// Send writes buf to the connection, applying the configured timeout as
// a write deadline.
func (t *Transport) Send(ctx context.Context, buf []byte) (int, error) {
	if err := t.setDeadline(ctx); err != nil {
		return 0, err
	}
	n, err := t.conn.Write(buf)
	if err != nil {
		return n, errors.Wrap(errors.ErrTransport, "tcp write failed", err)
	}
	return n, nil
}

// Recv reads one frame's worth of bytes into buf, applying the
// configured timeout as a read deadline. A deadline expiry surfaces as
// ErrTimeout, matching the abstract Transport contract.
func (t *Transport) Recv(ctx context.Context, buf []byte) (int, error) {
	if err := t.setDeadline(ctx); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, errors.New(errors.ErrTimeout, "tcp read deadline exceeded")
		}
		return n, errors.Wrap(errors.ErrTransport, "tcp read failed", err)
	}
	return n, nil
}

// DelayChars is a no-op for TCP; Modbus TCP carries no serial-line
// inter-frame spacing requirement.
func (t *Transport) DelayChars(ctx context.Context, n int) error {
	return ctx.Err()
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func (t *Transport) setDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(time.Duration(t.timeoutMS) * time.Millisecond)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return t.conn.SetDeadline(deadline)
}

package master

import (
	"context"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

// fakeTransport is an in-memory Transport that replays a queue of canned
// response frames, one per Send call, and records every frame it was
// asked to send. It is the dittofs-style analogue of testing an RPC
// dispatcher without a real socket.
type fakeTransport struct {
	responses [][]byte
	sent      [][]byte
	sendErr   error
	recvErr   error
	delayErr  error
	callIndex int
}

func (f *fakeTransport) Send(ctx context.Context, buf []byte) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	cp := append([]byte(nil), buf...)
	f.sent = append(f.sent, cp)
	return len(buf), nil
}

func (f *fakeTransport) Recv(ctx context.Context, buf []byte) (int, error) {
	if f.recvErr != nil {
		return 0, f.recvErr
	}
	if f.callIndex >= len(f.responses) {
		return 0, errors.New(errors.ErrTimeout, "no more canned responses")
	}
	resp := f.responses[f.callIndex]
	f.callIndex++
	n := copy(buf, resp)
	return n, nil
}

func (f *fakeTransport) DelayChars(ctx context.Context, n int) error {
	return f.delayErr
}

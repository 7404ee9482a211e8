package tcptransport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndRecvRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 8)
		n, _ := conn.Read(buf)
		_, _ = conn.Write(buf[:n])
	}()

	tr, err := Dial(context.Background(), ln.Addr().String(), 1000)
	require.NoError(t, err)
	defer tr.Close()

	n, err := tr.Send(context.Background(), []byte{0x01, 0x03, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 8)
	n, err = tr.Recv(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00}, buf[:n])

	<-done
}

func TestDelayCharsIsNoopUnlessCancelled(t *testing.T) {
	tr := &Transport{timeoutMS: 100}
	require.NoError(t, tr.DelayChars(context.Background(), 4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tr.DelayChars(ctx, 4))
}

func TestDialFailsOnUnreachableAddress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := Dial(ctx, "127.0.0.1:1", 100)
	require.Error(t, err)
}

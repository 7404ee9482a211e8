package master

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/frame"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/optimize"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaster(t *testing.T, ft *fakeTransport) *Master {
	t.Helper()
	return New(Config{
		Mode:         cost.ModeRTU,
		MaxPDUChars:  253,
		GapChars:     4,
		LatencyChars: 2,
		TimeoutMS:    1000,
		Transport:    ft,
	})
}

func mustEncodeRTU(t *testing.T, slaveID, fc uint8, pdu []byte) []byte {
	t.Helper()
	encoded, err := frame.EncodeRTU(nil, slaveID, fc, pdu)
	require.NoError(t, err)
	return encoded
}

func TestReadSingleParsesRegisters(t *testing.T) {
	respPDU := []byte{0x04, 0x00, 0x0A, 0x01, 0x02}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x03, respPDU)}}
	m := newTestMaster(t, ft)

	result, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{10, 258}, result.Registers)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.TotalRoundTrips)
	assert.Equal(t, uint64(1), stats.TotalResponses)
}

func TestReadSingleRejectsNonReadFC(t *testing.T) {
	ft := &fakeTransport{}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCWriteSingleCoil, 0, 1)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFC, errors.Code(err))
}

func TestReadSingleDetectsMismatchedSlave(t *testing.T) {
	respPDU := []byte{0x02, 0x00, 0x0A}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 9, 0x03, respPDU)}}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestReadSingleSurfacesException(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x83, []byte{0x02})}}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.Error(t, err)
	assert.Equal(t, errors.ErrExceptionResponse, errors.Code(err))

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.TotalRoundTrips)
	assert.Equal(t, uint64(0), stats.TotalResponses)
}

func TestReadSingleSurfacesTimeout(t *testing.T) {
	ft := &fakeTransport{responses: nil}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.Error(t, err)
	assert.Equal(t, errors.ErrTimeout, errors.Code(err))
}

func TestWriteSingleCoilValidatesEcho(t *testing.T) {
	respPDU := []byte{0x00, 0x0A, 0xFF, 0x00}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x05, respPDU)}}
	m := newTestMaster(t, ft)

	err := m.WriteSingleCoil(context.Background(), 1, 10, true)
	require.NoError(t, err)
}

func TestWriteSingleCoilRejectsEchoMismatch(t *testing.T) {
	respPDU := []byte{0x00, 0x0A, 0x00, 0x00}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x05, respPDU)}}
	m := newTestMaster(t, ft)

	err := m.WriteSingleCoil(context.Background(), 1, 10, true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestWriteSingleRegisterValidatesEcho(t *testing.T) {
	respPDU := []byte{0x00, 0x01, 0x00, 0x03}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x06, respPDU)}}
	m := newTestMaster(t, ft)

	err := m.WriteSingleRegister(context.Background(), 1, 1, 3)
	require.NoError(t, err)
}

func TestWriteMultipleRegistersValidatesEcho(t *testing.T) {
	respPDU := []byte{0x00, 0x64, 0x00, 0x03}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x10, respPDU)}}
	m := newTestMaster(t, ft)

	err := m.WriteMultipleRegisters(context.Background(), 1, 100, []uint16{1, 2, 3})
	require.NoError(t, err)
}

func TestWriteMultipleRegistersRejectsOversizedQuantity(t *testing.T) {
	ft := &fakeTransport{}
	m := newTestMaster(t, ft)

	values := make([]uint16, 200)
	err := m.WriteMultipleRegisters(context.Background(), 1, 0, values)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidQuantity, errors.Code(err))
}

func TestOnRoundTripHookIsInvoked(t *testing.T) {
	respPDU := []byte{0x02, 0x00, 0x0A}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x03, respPDU)}}

	var calls int
	var lastPlan optimize.RequestPlan
	var lastErr error
	m := New(Config{
		Mode: cost.ModeRTU, MaxPDUChars: 253, GapChars: 4, LatencyChars: 2,
		Transport: ft,
		OnRoundTrip: func(plan optimize.RequestPlan, d time.Duration, err error) {
			calls++
			lastPlan = plan
			lastErr = err
		},
	})

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint8(1), lastPlan.SlaveID)
	assert.NoError(t, lastErr)
}

func TestSetParamsUpdatesGapAndTimeout(t *testing.T) {
	ft := &fakeTransport{}
	m := newTestMaster(t, ft)

	m.SetParams(9, 2500)

	assert.Equal(t, 9, m.cfg.GapChars)
	assert.Equal(t, 2500, m.cfg.TimeoutMS)
}

func TestNewMasterStartsIdle(t *testing.T) {
	m := newTestMaster(t, &fakeTransport{})
	assert.Equal(t, StateIdle, m.State())
}

func TestReadSingleEndsInStateParsed(t *testing.T) {
	respPDU := []byte{0x02, 0x00, 0x0A}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x03, respPDU)}}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, StateParsed, m.State())
}

func TestReadSingleExceptionEndsInStateException(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x83, []byte{0x02})}}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.Error(t, err)
	assert.Equal(t, StateException, m.State())
}

func TestReadSingleTimeoutEndsInStateError(t *testing.T) {
	ft := &fakeTransport{responses: nil}
	m := newTestMaster(t, ft)

	_, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.Error(t, err)
	assert.Equal(t, StateError, m.State())
}

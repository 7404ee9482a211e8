package master

import (
	"context"
	"testing"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadOptimizedDrivesOneRoundTripPerPlan exercises the full
// optimizer-to-orchestrator pipeline against spec.md §8f's address list,
// verifying two round-trips are issued (one per packed plan) and the
// concatenated registers demultiplex back to their original addresses.
func TestReadOptimizedDrivesOneRoundTripPerPlan(t *testing.T) {
	firstResp := []byte{0x06, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03}  // regs 100,101,102 = 1,2,3
	secondResp := []byte{0x06, 0x00, 0x0A, 0x00, 0x0B, 0x00, 0x0C} // regs 115,116,117 = 10,11,12

	ft := &fakeTransport{responses: [][]byte{
		mustEncodeRTU(t, 1, 0x03, firstResp),
		mustEncodeRTU(t, 1, 0x03, secondResp),
	}}
	m := newTestMaster(t, ft)

	result, err := m.ReadOptimized(context.Background(), 1, policy.FCReadHoldingRegisters,
		[]uint16{100, 101, 102, 115, 116, 117})
	require.NoError(t, err)
	require.Len(t, result.Registers, 6)

	v, ok := result.Uint16At(100)
	require.True(t, ok)
	assert.Equal(t, uint16(1), v)

	v, ok = result.Uint16At(117)
	require.True(t, ok)
	assert.Equal(t, uint16(12), v)

	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.TotalRoundTrips)
	assert.Equal(t, uint64(2), stats.TotalResponses)
	assert.Equal(t, uint64(1), stats.OptimizedReads)
	assert.Equal(t, uint64(4), stats.BlocksMerged) // 6 addresses -> 2 plans
	assert.Equal(t, uint64(0), stats.RoundsSaved)  // already 2 blocks before merge, none merged
}

// TestReadOptimizedAbortsOnFirstFailingPlan verifies the orchestrator
// halts the whole optimized read, without attempting later plans, the
// moment one plan's round-trip fails.
func TestReadOptimizedAbortsOnFirstFailingPlan(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		mustEncodeRTU(t, 1, 0x83, []byte{0x04}), // exception: slave device failure
	}}
	m := newTestMaster(t, ft)

	_, err := m.ReadOptimized(context.Background(), 1, policy.FCReadHoldingRegisters,
		[]uint16{100, 101, 102, 115, 116, 117})
	require.Error(t, err)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.TotalRoundTrips)
	assert.Len(t, ft.sent, 1)
}

// TestReadOptimizedMergesSmallGapIntoSingleRoundTrip covers a gap cheap
// enough to merge (2 registers, cost=4 < overhead=17): the two separate
// blocks the address folder produces collapse into one plan, and
// RoundsSaved reflects a genuine merge (2 blocks -> 1 plan).
func TestReadOptimizedMergesSmallGapIntoSingleRoundTrip(t *testing.T) {
	resp := []byte{0x08, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}
	ft := &fakeTransport{responses: [][]byte{mustEncodeRTU(t, 1, 0x03, resp)}}
	m := newTestMaster(t, ft)

	result, err := m.ReadOptimized(context.Background(), 1, policy.FCReadHoldingRegisters, []uint16{100, 101, 104, 105})
	require.NoError(t, err)
	assert.Len(t, result.Registers, 4)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.TotalRoundTrips)
	assert.Equal(t, uint64(2), stats.BlocksMerged) // 4 addresses -> 1 plan
	assert.Equal(t, uint64(1), stats.RoundsSaved)  // 2 blocks folded -> 1 plan
}

func TestTCPModeUsesMBAPFraming(t *testing.T) {
	respPDU := []byte{0x02, 0x00, 0x0A}
	tcpFrame := append([]byte{0x00, 0x00, 0x00, 0x00, 0x00, byte(2 + len(respPDU)), 0x01}, append([]byte{0x03}, respPDU...)...)
	ft := &fakeTransport{responses: [][]byte{tcpFrame}}

	m := New(Config{Mode: cost.ModeTCP, MaxPDUChars: 253, GapChars: 0, LatencyChars: 1, Transport: ft})

	result, err := m.ReadSingle(context.Background(), 1, policy.FCReadHoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{10}, result.Registers)

	require.Len(t, ft.sent, 1)
	assert.Equal(t, byte(0x00), ft.sent[0][2]) // protocol id high byte
	assert.Equal(t, byte(0x00), ft.sent[0][3]) // protocol id low byte
}

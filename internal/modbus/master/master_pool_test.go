package master

import (
	"context"
	"testing"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadOptimizedInPoolModeMatchesHeapMode re-runs spec.md §8f's worked
// example with Config.PoolMode set to pool.ModePool and capacities sized
// exactly to the two plans it produces, confirming pool-backed allocation
// produces the same demultiplexed result as the default heap mode.
func TestReadOptimizedInPoolModeMatchesHeapMode(t *testing.T) {
	firstResp := []byte{0x06, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
	secondResp := []byte{0x06, 0x00, 0x0A, 0x00, 0x0B, 0x00, 0x0C}

	ft := &fakeTransport{responses: [][]byte{
		mustEncodeRTU(t, 1, 0x03, firstResp),
		mustEncodeRTU(t, 1, 0x03, secondResp),
	}}
	m := New(Config{
		Mode: cost.ModeRTU, MaxPDUChars: 253, GapChars: 4, LatencyChars: 2, TimeoutMS: 1000,
		Transport:         ft,
		PoolMode:          pool.ModePool,
		BlockPoolCapacity: 2,
		BinPoolCapacity:   2,
		PlanPoolCapacity:  2,
	})

	result, err := m.ReadOptimized(context.Background(), 1, policy.FCReadHoldingRegisters,
		[]uint16{100, 101, 102, 115, 116, 117})
	require.NoError(t, err)

	v, ok := result.Uint16At(100)
	require.True(t, ok)
	assert.Equal(t, uint16(1), v)

	v, ok = result.Uint16At(117)
	require.True(t, ok)
	assert.Equal(t, uint16(12), v)
}

// TestReadOptimizedPoolModeRejectsOversizedRun confirms an undersized
// block pool surfaces ErrTooManyBlocks rather than silently growing past
// its configured ceiling.
func TestReadOptimizedPoolModeRejectsOversizedRun(t *testing.T) {
	ft := &fakeTransport{}
	m := New(Config{
		Mode: cost.ModeRTU, MaxPDUChars: 253, GapChars: 4, LatencyChars: 2, TimeoutMS: 1000,
		Transport:         ft,
		PoolMode:          pool.ModePool,
		BlockPoolCapacity: 1,
		BinPoolCapacity:   2,
		PlanPoolCapacity:  2,
	})

	_, err := m.ReadOptimized(context.Background(), 1, policy.FCReadHoldingRegisters,
		[]uint16{100, 101, 102, 115, 116, 117})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTooManyBlocks, errors.Code(err))
}

// TestReadOptimizedPoolModeRejectsTooManyPlans confirms an undersized
// plan pool surfaces ErrTooManyPlans when the packed plan count exceeds
// it, even though the block and bin pools have room to spare.
func TestReadOptimizedPoolModeRejectsTooManyPlans(t *testing.T) {
	ft := &fakeTransport{}
	m := New(Config{
		Mode: cost.ModeRTU, MaxPDUChars: 253, GapChars: 4, LatencyChars: 2, TimeoutMS: 1000,
		Transport:         ft,
		PoolMode:          pool.ModePool,
		BlockPoolCapacity: 2,
		BinPoolCapacity:   2,
		PlanPoolCapacity:  1,
	})

	_, err := m.ReadOptimized(context.Background(), 1, policy.FCReadHoldingRegisters,
		[]uint16{100, 101, 102, 115, 116, 117})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTooManyPlans, errors.Code(err))
}

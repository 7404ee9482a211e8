package metrics

import (
	"testing"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/master"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserveAccumulatesDeltas(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Observe(master.Stats{TotalRoundTrips: 2, TotalResponses: 2, BytesSent: 16})
	c.Observe(master.Stats{TotalRoundTrips: 5, TotalResponses: 4, BytesSent: 40})

	assert.InDelta(t, 5, testutil.ToFloat64(c.roundTrips), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(c.responses), 0)
	assert.InDelta(t, 40, testutil.ToFloat64(c.bytesSent), 0)
}

func TestNewCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)
}

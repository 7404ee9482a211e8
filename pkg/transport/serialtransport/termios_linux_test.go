//go:build linux

package serialtransport

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampDeciseconds(t *testing.T) {
	assert.Equal(t, 1, clampDeciseconds(0))
	assert.Equal(t, 1, clampDeciseconds(50))
	assert.Equal(t, 10, clampDeciseconds(1000))
	assert.Equal(t, 255, clampDeciseconds(100000))
}

func TestConfigureRawRejectsUnsupportedBaudRate(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = configureRaw(w, 4321, 1000)
	assert.Error(t, err)
}

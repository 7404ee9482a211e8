package policy

import (
	"testing"

	modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownFunctionCodes(t *testing.T) {
	cases := []struct {
		fc       FunctionCode
		merge    bool
		read     bool
		maxQty   int
		unitKind UnitKind
	}{
		{FCReadCoils, true, true, 2000, UnitBit},
		{FCReadDiscreteInputs, true, true, 2000, UnitBit},
		{FCReadHoldingRegisters, true, true, 125, UnitRegister},
		{FCReadInputRegisters, true, true, 125, UnitRegister},
		{FCWriteSingleCoil, false, false, 1, UnitRegister},
		{FCWriteSingleRegister, false, false, 1, UnitRegister},
		{FCWriteMultipleCoils, false, false, 1968, UnitBit},
		{FCWriteMultipleRegisters, false, false, 123, UnitRegister},
	}
	for _, c := range cases {
		e, err := Lookup(c.fc)
		require.NoError(t, err)
		assert.Equal(t, c.merge, e.SupportsMerge)
		assert.Equal(t, c.read, e.IsRead)
		assert.Equal(t, c.maxQty, e.MaxQuantity)
		assert.Equal(t, c.unitKind, e.UnitKind)
	}
}

func TestLookupUnsupportedFC(t *testing.T) {
	_, err := Lookup(FunctionCode(0x17))
	require.Error(t, err)
	assert.Equal(t, modbuserrors.ErrInvalidFC, modbuserrors.Code(err))
}

func TestLookupStripsExceptionBit(t *testing.T) {
	e, err := Lookup(FCReadHoldingRegisters.Exception())
	require.NoError(t, err)
	assert.Equal(t, FCReadHoldingRegisters, e.FunctionCode)
}

func TestIsExceptionAndBase(t *testing.T) {
	exc := FCReadHoldingRegisters.Exception()
	assert.True(t, exc.IsException())
	assert.Equal(t, FCReadHoldingRegisters, exc.Base())
	assert.False(t, FCReadHoldingRegisters.IsException())
}

func TestSupportsMergeAndMaxQuantityWrappers(t *testing.T) {
	assert.True(t, SupportsMerge(FCReadCoils))
	assert.False(t, SupportsMerge(FCWriteSingleCoil))
	assert.False(t, SupportsMerge(FunctionCode(0x99)))

	assert.Equal(t, 125, MaxQuantity(FCReadHoldingRegisters))
	assert.Equal(t, 0, MaxQuantity(FunctionCode(0x99)))
}

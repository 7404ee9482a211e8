package frame

import (
	"testing"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecDispatchesByVariant(t *testing.T) {
	c := NewCodec()
	pdu := []byte{0x00, 0x6B, 0x00, 0x03}

	for _, v := range []Variant{VariantRTU, VariantASCII, VariantTCP} {
		encoded, err := c.Encode(v, nil, 0x11, 0x03, pdu, 0x1234)
		require.NoError(t, err)

		decoded, err := c.Decode(v, encoded)
		require.NoError(t, err)
		assert.Equal(t, uint8(0x11), decoded.SlaveID)
		assert.Equal(t, uint8(0x03), decoded.FunctionCode)
		assert.Equal(t, pdu, decoded.PDU)
	}
}

func TestCodecDisabledVariantReturnsNotSupported(t *testing.T) {
	c := NewCodec()
	c.Disable(VariantASCII)

	_, err := c.Encode(VariantASCII, nil, 1, 0x03, []byte{0x00}, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotSupported, errors.Code(err))

	_, err = c.Decode(VariantASCII, []byte(":010300000002FA\r\n"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotSupported, errors.Code(err))
}

func TestCodecUnknownVariantReturnsNotSupported(t *testing.T) {
	c := NewCodec()
	unknown := Variant(99)

	_, err := c.Encode(unknown, nil, 1, 0x03, nil, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotSupported, errors.Code(err))

	_, err = c.Decode(unknown, []byte{0x01, 0x02, 0x03, 0x04})
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotSupported, errors.Code(err))
}

func TestCodecTCPTransactionIDRoundTrips(t *testing.T) {
	c := NewCodec()
	encoded, err := c.Encode(VariantTCP, nil, 1, 0x03, []byte{0x00, 0x00, 0x00, 0x02}, 0xBEEF)
	require.NoError(t, err)

	decoded, err := c.Decode(VariantTCP, encoded)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), decoded.TransactionID)
}

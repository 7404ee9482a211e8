package frame

import (
	"testing"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRTURejectsBroadcastSlave(t *testing.T) {
	_, err := EncodeRTU(nil, 0, 0x03, []byte{0x00, 0x00, 0x00, 0x01})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidParam, errors.Code(err))
}

func TestEncodeRTUAppendsCRCTrailer(t *testing.T) {
	pdu := []byte{0x00, 0x6B, 0x00, 0x03}
	got, err := EncodeRTU(nil, 0x11, 0x03, pdu)
	require.NoError(t, err)
	require.Len(t, got, 8)
	assert.Equal(t, byte(0x11), got[0])
	assert.Equal(t, byte(0x03), got[1])
	assert.Equal(t, pdu, got[2:6])
}

func TestEncodeRTUReusesBufferCapacity(t *testing.T) {
	buf := make([]byte, 0, 64)
	got, err := EncodeRTU(buf, 0x11, 0x03, []byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, cap(buf), cap(got))
}

func TestDecodeRTURoundTrips(t *testing.T) {
	pdu := []byte{0x02, 0xCD, 0x6B}
	encoded, err := EncodeRTU(nil, 0x11, 0x01, pdu)
	require.NoError(t, err)

	decoded, err := DecodeRTU(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x11), decoded.SlaveID)
	assert.Equal(t, uint8(0x01), decoded.FunctionCode)
	assert.Equal(t, pdu, decoded.PDU)
}

func TestDecodeRTURejectsTooShortFrame(t *testing.T) {
	_, err := DecodeRTU([]byte{0x11, 0x03})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestDecodeRTURejectsBadCRC(t *testing.T) {
	encoded, err := EncodeRTU(nil, 0x11, 0x03, []byte{0x00, 0x00})
	require.NoError(t, err)
	encoded[len(encoded)-1] ^= 0xFF

	_, err = DecodeRTU(encoded)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCRCMismatch, errors.Code(err))
}

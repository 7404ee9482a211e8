package frame

import (
	"testing"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeASCIIMatchesWorkedExample(t *testing.T) {
	pdu := []byte{0x00, 0x00, 0x00, 0x02}
	got, err := EncodeASCII(nil, 1, 0x03, pdu)
	require.NoError(t, err)

	require.Len(t, got, 17)
	assert.Equal(t, ":010300000002FA\r\n", string(got))
}

func TestDecodeASCIIRecoversWorkedExample(t *testing.T) {
	decoded, err := DecodeASCII([]byte(":010300000002FA\r\n"))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), decoded.SlaveID)
	assert.Equal(t, uint8(0x03), decoded.FunctionCode)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x02}, decoded.PDU)
}

func TestDecodeASCIIAcceptsLowercaseHex(t *testing.T) {
	decoded, err := DecodeASCII([]byte(":010300000002fa\r\n"))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), decoded.SlaveID)
}

func TestEncodeASCIIRejectsBroadcastSlave(t *testing.T) {
	_, err := EncodeASCII(nil, 0, 0x03, []byte{0x00})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidParam, errors.Code(err))
}

func TestDecodeASCIIRejectsMissingStartByte(t *testing.T) {
	_, err := DecodeASCII([]byte("010300000002FA\r\n\r"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestDecodeASCIIRejectsMissingTerminator(t *testing.T) {
	_, err := DecodeASCII([]byte(":010300000002FAxx"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestDecodeASCIIRejectsTooShort(t *testing.T) {
	_, err := DecodeASCII([]byte(":01\r\n"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestDecodeASCIIRejectsOddHexDigitCount(t *testing.T) {
	_, err := DecodeASCII([]byte(":0103000000002FA\r\n"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestDecodeASCIIRejectsNonHexCharacters(t *testing.T) {
	_, err := DecodeASCII([]byte(":ZZ0300000002FA\r\n"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidFrame, errors.Code(err))
}

func TestDecodeASCIIRejectsBadLRC(t *testing.T) {
	_, err := DecodeASCII([]byte(":010300000002FB\r\n"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrLRCMismatch, errors.Code(err))
}

func TestASCIIRoundTripsAcrossPDULengths(t *testing.T) {
	for n := 0; n <= 200; n += 17 {
		pdu := make([]byte, n)
		for i := range pdu {
			pdu[i] = byte(i)
		}
		encoded, err := EncodeASCII(nil, 7, 0x10, pdu)
		require.NoError(t, err)

		decoded, err := DecodeASCII(encoded)
		require.NoError(t, err)
		assert.Equal(t, uint8(7), decoded.SlaveID)
		assert.Equal(t, uint8(0x10), decoded.FunctionCode)
		assert.Equal(t, pdu, decoded.PDU)
	}
}

package frame

import (
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/checksum"
	modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

// minRTUFrameLen is the shortest legal RTU frame: slave + fc + crc_lo + crc_hi.
const minRTUFrameLen = 4

// EncodeRTU writes [slave][fc][pdu...][crc_lo][crc_hi] into buf (reusing
// its backing array if it has capacity) and returns the full frame.
func EncodeRTU(buf []byte, slaveID, functionCode uint8, pdu []byte) ([]byte, error) {
	if slaveID == 0 {
		return nil, modbuserrors.New(modbuserrors.ErrInvalidParam, "slave id must be non-zero")
	}
	need := 2 + len(pdu) + 2
	if cap(buf) < need {
		buf = make([]byte, 0, need)
	} else {
		buf = buf[:0]
	}
	buf = append(buf, slaveID, functionCode)
	buf = append(buf, pdu...)
	buf = checksum.AppendCRC(buf, buf)
	return buf, nil
}

// DecodeRTU parses an RTU frame, verifying its CRC16 trailer.
func DecodeRTU(frame []byte) (Decoded, error) {
	if len(frame) < minRTUFrameLen {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrInvalidFrame, "rtu frame too short: %d bytes", len(frame))
	}
	if !checksum.VerifyCRC(frame) {
		return Decoded{}, modbuserrors.New(modbuserrors.ErrCRCMismatch, "rtu crc verification failed")
	}
	pdu := append([]byte(nil), frame[2:len(frame)-2]...)
	return Decoded{
		SlaveID:      frame[0],
		FunctionCode: frame[1],
		PDU:          pdu,
	}, nil
}

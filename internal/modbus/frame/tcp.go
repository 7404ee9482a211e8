package frame

import (
	"encoding/binary"

	modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

const (
	mbapProtocolID = 0x0000
	// minTCPFrameLen is the shortest legal MBAP frame: 7-byte header + fc.
	minTCPFrameLen = 8
)

// EncodeTCP writes the MBAP-framed message
// [tx_hi][tx_lo][0x00][0x00][len_hi][len_lo][unit][fc][pdu...] into buf.
func EncodeTCP(buf []byte, transactionID uint16, unitID, functionCode uint8, pdu []byte) ([]byte, error) {
	length := 2 + len(pdu) // unit id + fc + pdu
	if length > 0xFFFF {
		return nil, modbuserrors.Newf(modbuserrors.ErrInvalidParam, "tcp pdu too large: length field %d overflows uint16", length)
	}

	need := 7 + 1 + len(pdu)
	if cap(buf) < need {
		buf = make([]byte, 0, need)
	} else {
		buf = buf[:0]
	}

	var header [6]byte
	binary.BigEndian.PutUint16(header[0:2], transactionID)
	binary.BigEndian.PutUint16(header[2:4], mbapProtocolID)
	binary.BigEndian.PutUint16(header[4:6], uint16(length))

	buf = append(buf, header[:]...)
	buf = append(buf, unitID, functionCode)
	buf = append(buf, pdu...)
	return buf, nil
}

// DecodeTCP parses an MBAP-framed message, validating the protocol id and
// the length field against the frame's actual size.
func DecodeTCP(frame []byte) (Decoded, error) {
	if len(frame) < minTCPFrameLen {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrInvalidFrame, "tcp frame too short: %d bytes", len(frame))
	}

	transactionID := binary.BigEndian.Uint16(frame[0:2])
	protocolID := binary.BigEndian.Uint16(frame[2:4])
	if protocolID != mbapProtocolID {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrInvalidFrame, "tcp protocol id %d is not 0", protocolID)
	}

	length := binary.BigEndian.Uint16(frame[4:6])
	if int(length) != len(frame)-6 {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrInvalidFrame, "tcp length field %d does not match frame size %d", length, len(frame)-6)
	}
	if length < 2 {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrInvalidFrame, "tcp length field %d too short for unit+fc", length)
	}

	unitID := frame[6]
	functionCode := frame[7]
	pdu := append([]byte(nil), frame[8:]...)

	return Decoded{
		SlaveID:       unitID,
		FunctionCode:  functionCode,
		PDU:           pdu,
		TransactionID: transactionID,
	}, nil
}

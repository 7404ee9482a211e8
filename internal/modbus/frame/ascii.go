package frame

import (
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/checksum"
	modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

const (
	asciiStart = ':'
	asciiCR    = '\r'
	asciiLF    = '\n'
	// minASCIIFrameLen is ":" + slave(2) + fc(2) + lrc(2) + CR + LF.
	minASCIIFrameLen = 9
)

var hexDigits = "0123456789ABCDEF"

func appendHexByte(buf []byte, b byte) []byte {
	return append(buf, hexDigits[b>>4], hexDigits[b&0x0F])
}

// EncodeASCII writes the ':'-prefixed, hex-encoded, LRC-checked,
// CR/LF-terminated ASCII frame for (slaveID, functionCode, pdu).
func EncodeASCII(buf []byte, slaveID, functionCode uint8, pdu []byte) ([]byte, error) {
	if slaveID == 0 {
		return nil, modbuserrors.New(modbuserrors.ErrInvalidParam, "slave id must be non-zero")
	}
	raw := make([]byte, 0, 2+len(pdu))
	raw = append(raw, slaveID, functionCode)
	raw = append(raw, pdu...)
	lrc := checksum.LRC(raw)

	need := 1 + 2*(len(raw)+1) + 2
	if cap(buf) < need {
		buf = make([]byte, 0, need)
	} else {
		buf = buf[:0]
	}
	buf = append(buf, asciiStart)
	for _, b := range raw {
		buf = appendHexByte(buf, b)
	}
	buf = appendHexByte(buf, lrc)
	buf = append(buf, asciiCR, asciiLF)
	return buf, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

func decodeHexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexNibble(hi)
	l, ok2 := hexNibble(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

// DecodeASCII parses an ASCII frame. Hex decoding is case-insensitive,
// accepting lowercase as well as the canonical uppercase encoding.
func DecodeASCII(frame []byte) (Decoded, error) {
	if len(frame) < minASCIIFrameLen {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrInvalidFrame, "ascii frame too short: %d bytes", len(frame))
	}
	if frame[0] != asciiStart {
		return Decoded{}, modbuserrors.New(modbuserrors.ErrInvalidFrame, "ascii frame missing ':' start byte")
	}
	if frame[len(frame)-2] != asciiCR || frame[len(frame)-1] != asciiLF {
		return Decoded{}, modbuserrors.New(modbuserrors.ErrInvalidFrame, "ascii frame missing CR LF terminator")
	}

	hexBody := frame[1 : len(frame)-2]
	if len(hexBody)%2 != 0 {
		return Decoded{}, modbuserrors.New(modbuserrors.ErrInvalidFrame, "ascii frame has odd hex digit count")
	}

	raw := make([]byte, len(hexBody)/2)
	for i := range raw {
		b, ok := decodeHexByte(hexBody[2*i], hexBody[2*i+1])
		if !ok {
			return Decoded{}, modbuserrors.New(modbuserrors.ErrInvalidFrame, "ascii frame contains non-hex characters")
		}
		raw[i] = b
	}
	if len(raw) < 3 {
		return Decoded{}, modbuserrors.New(modbuserrors.ErrInvalidFrame, "ascii frame body too short")
	}

	if !checksum.VerifyLRC(raw) {
		return Decoded{}, modbuserrors.New(modbuserrors.ErrLRCMismatch, "ascii lrc verification failed")
	}

	return Decoded{
		SlaveID:      raw[0],
		FunctionCode: raw[1],
		PDU:          append([]byte(nil), raw[2:len(raw)-1]...),
	}, nil
}

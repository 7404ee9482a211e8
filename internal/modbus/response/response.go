// Package response parses the PDU bytes of a slave's reply into typed
// read/write results and surfaces exception responses.
package response

import (
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
)

// ReadResult is the decoded payload of a read response: raw bit bytes
// (packed LSB-first per Modbus convention) or decoded big-endian
// register values, depending on the function code's UnitKind.
type ReadResult struct {
	Bits      []byte
	Registers []uint16
}

// WriteResult is the decoded echo of a write response.
type WriteResult struct {
	Address  uint16
	Quantity uint16 // FC15/16 only
	Value    uint16 // FC05/06 only
}

// ParseRead decodes a read-response PDU (FC01-04) for qty units of
// entry.UnitKind, validating the byte_count header against qty.
func ParseRead(entry policy.Entry, qty uint16, pdu []byte) (ReadResult, error) {
	if len(pdu) < 1 {
		return ReadResult{}, errors.New(errors.ErrInvalidFrame, "read response pdu is empty")
	}
	byteCount := int(pdu[0])
	body := pdu[1:]
	if len(body) < byteCount {
		return ReadResult{}, errors.Newf(errors.ErrInvalidFrame, "read response truncated: byte_count=%d but only %d bytes present", byteCount, len(body))
	}

	switch entry.UnitKind {
	case policy.UnitBit:
		want := (int(qty) + 7) / 8
		if byteCount != want {
			return ReadResult{}, errors.Newf(errors.ErrInvalidFrame, "read response byte_count=%d, expected %d for %d bits", byteCount, want, qty)
		}
		bits := append([]byte(nil), body[:byteCount]...)
		return ReadResult{Bits: bits}, nil

	case policy.UnitRegister:
		want := 2 * int(qty)
		if byteCount != want {
			return ReadResult{}, errors.Newf(errors.ErrInvalidFrame, "read response byte_count=%d, expected %d for %d registers", byteCount, want, qty)
		}
		regs := make([]uint16, qty)
		for i := range regs {
			regs[i] = uint16(body[2*i])<<8 | uint16(body[2*i+1])
		}
		return ReadResult{Registers: regs}, nil

	default:
		return ReadResult{}, errors.Newf(errors.ErrInvalidFC, "unknown unit kind for read response")
	}
}

// ParseWrite decodes a write-response PDU (FC05/06/15/16), a fixed
// 4-byte echo of [addr_hi][addr_lo][value_hi][value_lo].
func ParseWrite(fc policy.FunctionCode, pdu []byte) (WriteResult, error) {
	if len(pdu) != 4 {
		return WriteResult{}, errors.Newf(errors.ErrInvalidFrame, "write response pdu length %d, expected 4", len(pdu))
	}
	address := uint16(pdu[0])<<8 | uint16(pdu[1])
	value := uint16(pdu[2])<<8 | uint16(pdu[3])

	switch fc.Base() {
	case policy.FCWriteSingleCoil:
		if value != 0xFF00 && value != 0x0000 {
			return WriteResult{}, errors.Newf(errors.ErrInvalidFrame, "write single coil echoed value 0x%04X is neither 0xFF00 nor 0x0000", value)
		}
		return WriteResult{Address: address, Value: value}, nil

	case policy.FCWriteSingleRegister:
		return WriteResult{Address: address, Value: value}, nil

	case policy.FCWriteMultipleCoils, policy.FCWriteMultipleRegisters:
		return WriteResult{Address: address, Quantity: value}, nil

	default:
		return WriteResult{}, errors.Newf(errors.ErrInvalidFC, "function code 0x%02X is not a write response", fc)
	}
}

// ValidateWriteSingleCoil checks a parsed write-single-coil echo against
// the value the caller requested.
func ValidateWriteSingleCoil(got WriteResult, wantAddress uint16, wantValue bool) error {
	want := uint16(0x0000)
	if wantValue {
		want = 0xFF00
	}
	if got.Address != wantAddress || got.Value != want {
		return errors.Newf(errors.ErrInvalidFrame, "write single coil echo mismatch: got address=%d value=0x%04X, want address=%d value=0x%04X", got.Address, got.Value, wantAddress, want)
	}
	return nil
}

// ValidateWriteSingleRegister checks a parsed write-single-register echo
// against the value the caller requested.
func ValidateWriteSingleRegister(got WriteResult, wantAddress, wantValue uint16) error {
	if got.Address != wantAddress || got.Value != wantValue {
		return errors.Newf(errors.ErrInvalidFrame, "write single register echo mismatch: got address=%d value=%d, want address=%d value=%d", got.Address, got.Value, wantAddress, wantValue)
	}
	return nil
}

// ValidateWriteMultiple checks a parsed write-multiple echo against the
// (start, quantity) the caller requested.
func ValidateWriteMultiple(got WriteResult, wantAddress, wantQuantity uint16) error {
	if got.Address != wantAddress || got.Quantity != wantQuantity {
		return errors.Newf(errors.ErrInvalidFrame, "write multiple echo mismatch: got address=%d quantity=%d, want address=%d quantity=%d", got.Address, got.Quantity, wantAddress, wantQuantity)
	}
	return nil
}

// ExceptionCode returns the Modbus exception code carried as the first
// PDU byte of an exception response. The caller is expected to have
// already detected the exception via the echoed function code's high bit.
func ExceptionCode(pdu []byte) (byte, error) {
	if len(pdu) < 1 {
		return 0, errors.New(errors.ErrInvalidFrame, "exception response pdu is empty")
	}
	return pdu[0], nil
}

// ExceptionMessage returns a human-readable description of a Modbus
// exception code, or "unknown exception code" for values outside the
// standard 0x01-0x0B range.
func ExceptionMessage(code byte) string {
	switch code {
	case 0x01:
		return "illegal function"
	case 0x02:
		return "illegal data address"
	case 0x03:
		return "illegal data value"
	case 0x04:
		return "slave device failure"
	case 0x05:
		return "acknowledge"
	case 0x06:
		return "slave device busy"
	case 0x08:
		return "memory parity error"
	case 0x0A:
		return "gateway path unavailable"
	case 0x0B:
		return "gateway target device failed to respond"
	default:
		return "unknown exception code"
	}
}

// Package frame implements the RTU, ASCII, and TCP frame encoders and
// decoders, dispatched by a closed Variant enumeration. Disabled variants
// (per compile-time configuration, see Codec.Disable) return NotSupported
// instead of a runtime function-pointer dispatch.
package frame

import (
	modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

// Variant identifies one of the three normative wire formats.
type Variant int

const (
	VariantRTU Variant = iota
	VariantASCII
	VariantTCP
)

// Decoded is the result of decoding a wire frame: the slave/unit id, the
// function code (exception bit preserved if the slave signaled one), the
// PDU payload bytes, and — for TCP only — the MBAP transaction id.
type Decoded struct {
	SlaveID       uint8
	FunctionCode  uint8
	PDU           []byte
	TransactionID uint16 // TCP only; 0 for RTU/ASCII
}

// Codec dispatches Encode/Decode to the variant-specific implementation,
// honoring a set of disabled variants configured at construction time.
type Codec struct {
	disabled map[Variant]bool
}

// NewCodec returns a Codec with no variants disabled.
func NewCodec() *Codec {
	return &Codec{disabled: map[Variant]bool{}}
}

// Disable marks v as unavailable; subsequent Encode/Decode calls for that
// variant return NotSupported.
func (c *Codec) Disable(v Variant) {
	c.disabled[v] = true
}

// Encode produces the full wire frame for (slaveID, functionCode, pdu)
// into buf, dispatching on variant. transactionID is used only by TCP.
func (c *Codec) Encode(v Variant, buf []byte, slaveID, functionCode uint8, pdu []byte, transactionID uint16) ([]byte, error) {
	if c.disabled[v] {
		return nil, modbuserrors.Newf(modbuserrors.ErrNotSupported, "variant %v disabled", v)
	}
	switch v {
	case VariantRTU:
		return EncodeRTU(buf, slaveID, functionCode, pdu)
	case VariantASCII:
		return EncodeASCII(buf, slaveID, functionCode, pdu)
	case VariantTCP:
		return EncodeTCP(buf, transactionID, slaveID, functionCode, pdu)
	default:
		return nil, modbuserrors.Newf(modbuserrors.ErrNotSupported, "unknown variant %v", v)
	}
}

// Decode parses a complete wire frame, dispatching on variant.
func (c *Codec) Decode(v Variant, frame []byte) (Decoded, error) {
	if c.disabled[v] {
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrNotSupported, "variant %v disabled", v)
	}
	switch v {
	case VariantRTU:
		return DecodeRTU(frame)
	case VariantASCII:
		return DecodeASCII(frame)
	case VariantTCP:
		return DecodeTCP(frame)
	default:
		return Decoded{}, modbuserrors.Newf(modbuserrors.ErrNotSupported, "unknown variant %v", v)
	}
}

// Package policy holds the static, process-lifetime function-code table
// the rest of the optimizer and framing core consults: which function
// codes support merging, their fixed round-trip overhead, their
// per-unit data cost, and their quantity ceilings.
package policy

import modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"

// FunctionCode identifies a Modbus function code. Exception responses set
// the high bit (0x80) on top of the requested code; IsException reports
// that condition.
type FunctionCode uint8

const (
	FCReadCoils               FunctionCode = 0x01
	FCReadDiscreteInputs      FunctionCode = 0x02
	FCReadHoldingRegisters    FunctionCode = 0x03
	FCReadInputRegisters      FunctionCode = 0x04
	FCWriteSingleCoil         FunctionCode = 0x05
	FCWriteSingleRegister     FunctionCode = 0x06
	FCWriteMultipleCoils      FunctionCode = 0x0F
	FCWriteMultipleRegisters  FunctionCode = 0x10
	FCReadWriteMultipleRegs   FunctionCode = 0x17
	exceptionBit                           = 0x80
)

// IsException reports whether fc has the high bit set, marking it as an
// exception-response function code.
func (fc FunctionCode) IsException() bool {
	return fc&exceptionBit != 0
}

// Exception returns fc with the exception bit set.
func (fc FunctionCode) Exception() FunctionCode {
	return fc | exceptionBit
}

// Base strips the exception bit, returning the function code it echoes.
func (fc FunctionCode) Base() FunctionCode {
	return fc &^ exceptionBit
}

// UnitKind distinguishes single-bit addressable units (coils, discrete
// inputs) from 16-bit register units.
type UnitKind int

const (
	UnitBit UnitKind = iota
	UnitRegister
)

// Entry is the static policy record for one function code.
type Entry struct {
	FunctionCode FunctionCode
	SupportsMerge bool
	IsRead        bool
	ReqFixedChars int
	RespFixedChars int
	// ExtraUnitCharsScaled100 is the policy table's advisory per-unit cost,
	// scaled by 100 (e.g. 200 means 2.00 chars/unit). Per SPEC_FULL.md §5
	// item 3, cost arithmetic never reads this field directly for bit
	// kinds — the canonical ceil(gap/8) formula in the cost package is
	// normative. It is retained for documentation and for callers that
	// want the raw table value without reimplementing the formula.
	ExtraUnitCharsScaled100 int
	MaxQuantity             int
	UnitKind                UnitKind
}

// table is the process-lifetime-constant function-code policy, keyed by
// base function code (exception bit stripped).
var table = map[FunctionCode]Entry{
	FCReadCoils: {
		FunctionCode: FCReadCoils, SupportsMerge: true, IsRead: true,
		ReqFixedChars: 6, RespFixedChars: 5, ExtraUnitCharsScaled100: 12,
		MaxQuantity: 2000, UnitKind: UnitBit,
	},
	FCReadDiscreteInputs: {
		FunctionCode: FCReadDiscreteInputs, SupportsMerge: true, IsRead: true,
		ReqFixedChars: 6, RespFixedChars: 5, ExtraUnitCharsScaled100: 12,
		MaxQuantity: 2000, UnitKind: UnitBit,
	},
	FCReadHoldingRegisters: {
		FunctionCode: FCReadHoldingRegisters, SupportsMerge: true, IsRead: true,
		ReqFixedChars: 6, RespFixedChars: 5, ExtraUnitCharsScaled100: 200,
		MaxQuantity: 125, UnitKind: UnitRegister,
	},
	FCReadInputRegisters: {
		FunctionCode: FCReadInputRegisters, SupportsMerge: true, IsRead: true,
		ReqFixedChars: 6, RespFixedChars: 5, ExtraUnitCharsScaled100: 200,
		MaxQuantity: 125, UnitKind: UnitRegister,
	},
	FCWriteSingleCoil: {
		FunctionCode: FCWriteSingleCoil, SupportsMerge: false, IsRead: false,
		ReqFixedChars: 6, RespFixedChars: 6, ExtraUnitCharsScaled100: 0,
		MaxQuantity: 1, UnitKind: UnitRegister,
	},
	FCWriteSingleRegister: {
		FunctionCode: FCWriteSingleRegister, SupportsMerge: false, IsRead: false,
		ReqFixedChars: 6, RespFixedChars: 6, ExtraUnitCharsScaled100: 0,
		MaxQuantity: 1, UnitKind: UnitRegister,
	},
	FCWriteMultipleCoils: {
		FunctionCode: FCWriteMultipleCoils, SupportsMerge: false, IsRead: false,
		ReqFixedChars: 7, RespFixedChars: 6, ExtraUnitCharsScaled100: 0,
		MaxQuantity: 1968, UnitKind: UnitBit,
	},
	FCWriteMultipleRegisters: {
		FunctionCode: FCWriteMultipleRegisters, SupportsMerge: false, IsRead: false,
		ReqFixedChars: 7, RespFixedChars: 6, ExtraUnitCharsScaled100: 0,
		MaxQuantity: 123, UnitKind: UnitRegister,
	},
}

// Lookup returns the policy entry for fc (exception bit ignored), or a
// NotSupported error if fc is not in the static table. FC23
// (ReadWriteMultipleRegisters) is intentionally absent: spec.md specifies
// it only at the policy level and does not require a write implementation
// in this core.
func Lookup(fc FunctionCode) (Entry, error) {
	e, ok := table[fc.Base()]
	if !ok {
		return Entry{}, modbuserrors.Newf(modbuserrors.ErrInvalidFC, "unsupported function code 0x%02X", fc)
	}
	return e, nil
}

// MaxQuantity is a convenience wrapper over Lookup for callers that only
// need the quantity ceiling and treat an unsupported FC as zero.
func MaxQuantity(fc FunctionCode) int {
	e, err := Lookup(fc)
	if err != nil {
		return 0
	}
	return e.MaxQuantity
}

// SupportsMerge reports whether fc participates in block merging. Unknown
// function codes do not support merging.
func SupportsMerge(fc FunctionCode) bool {
	e, err := Lookup(fc)
	return err == nil && e.SupportsMerge
}

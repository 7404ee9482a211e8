// Package block provides the Block type and the address-list-to-block
// decomposition, adjacency, gap, compatibility, and merge primitives the
// optimizer and packer build on.
package block

import (
	"sort"

	modbuserrors "github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
)

// Block is a contiguous address range for a single slave and function
// code. Immutable once consumed by packing.
type Block struct {
	SlaveID      uint8
	FunctionCode policy.FunctionCode
	StartAddress uint16
	Quantity     uint16
	Merged       bool
}

// End returns the exclusive end address, start+quantity.
func (b Block) End() int {
	return int(b.StartAddress) + int(b.Quantity)
}

// New validates and constructs a Block for a single address range.
func New(slaveID uint8, fc policy.FunctionCode, start, qty uint16) (Block, error) {
	if slaveID < 1 || slaveID > 247 {
		return Block{}, modbuserrors.Newf(modbuserrors.ErrInvalidParam, "slave id %d out of range [1,247]", slaveID)
	}
	entry, err := policy.Lookup(fc)
	if err != nil {
		return Block{}, err
	}
	if qty < 1 {
		return Block{}, modbuserrors.New(modbuserrors.ErrInvalidQuantity, "quantity must be >= 1")
	}
	if qty > uint16(entry.MaxQuantity) {
		return Block{}, modbuserrors.Newf(modbuserrors.ErrInvalidQuantity, "quantity %d exceeds max %d for fc 0x%02X", qty, entry.MaxQuantity, fc)
	}
	if int(start)+int(qty) > 65536 {
		return Block{}, modbuserrors.New(modbuserrors.ErrInvalidAddress, "start_address + quantity exceeds 65536")
	}
	return Block{SlaveID: slaveID, FunctionCode: fc, StartAddress: start, Quantity: qty}, nil
}

// NewReadCoilsBlock is the FC01 convenience constructor over New.
func NewReadCoilsBlock(slaveID uint8, start, qty uint16) (Block, error) {
	return New(slaveID, policy.FCReadCoils, start, qty)
}

// NewReadDiscreteInputsBlock is the FC02 convenience constructor over New.
func NewReadDiscreteInputsBlock(slaveID uint8, start, qty uint16) (Block, error) {
	return New(slaveID, policy.FCReadDiscreteInputs, start, qty)
}

// NewReadHoldingRegistersBlock is the FC03 convenience constructor over New.
func NewReadHoldingRegistersBlock(slaveID uint8, start, qty uint16) (Block, error) {
	return New(slaveID, policy.FCReadHoldingRegisters, start, qty)
}

// NewReadInputRegistersBlock is the FC04 convenience constructor over New.
func NewReadInputRegistersBlock(slaveID uint8, start, qty uint16) (Block, error) {
	return New(slaveID, policy.FCReadInputRegisters, start, qty)
}

// Compatible reports whether a and b can be merged or packed together:
// same slave, same function code.
func Compatible(a, b Block) bool {
	return a.SlaveID == b.SlaveID && a.FunctionCode == b.FunctionCode
}

// Gap returns the number of unrequested addressable units strictly
// between a and b, assuming a starts at or before b. Overlapping or
// adjacent blocks have a gap of 0.
func Gap(a, b Block) int {
	earlier, later := a, b
	if later.StartAddress < earlier.StartAddress {
		earlier, later = later, earlier
	}
	g := int(later.StartAddress) - earlier.End()
	if g < 0 {
		return 0
	}
	return g
}

// Adjacent reports whether a and b touch or overlap (gap == 0) and are
// compatible.
func Adjacent(a, b Block) bool {
	return Compatible(a, b) && Gap(a, b) == 0
}

// Merge combines two compatible blocks into one spanning
// [min(start), max(end)). The caller must check Compatible first; Merge
// does not re-validate slave/FC equality.
func Merge(a, b Block) Block {
	start := a.StartAddress
	if b.StartAddress < start {
		start = b.StartAddress
	}
	end := a.End()
	if b.End() > end {
		end = b.End()
	}
	return Block{
		SlaveID:      a.SlaveID,
		FunctionCode: a.FunctionCode,
		StartAddress: start,
		Quantity:     uint16(end - int(start)),
		Merged:       true,
	}
}

// DataSize returns the wire data-byte size of the block's quantity: ceil(q/8)
// for bit kinds, 2*q for register kinds.
func DataSize(b Block) (int, error) {
	entry, err := policy.Lookup(b.FunctionCode)
	if err != nil {
		return 0, err
	}
	if entry.UnitKind == policy.UnitBit {
		return (int(b.Quantity) + 7) / 8, nil
	}
	return int(b.Quantity) * 2, nil
}

// AddressesToBlocks takes an unordered address list for a single slave
// and function code and returns a sorted list of blocks, each a maximal
// run of adjacent addresses; duplicate addresses collapse. An empty input
// produces zero blocks (success, not an error).
func AddressesToBlocks(slaveID uint8, fc policy.FunctionCode, addresses []uint16) ([]Block, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	if _, err := policy.Lookup(fc); err != nil {
		return nil, err
	}
	if slaveID < 1 || slaveID > 247 {
		return nil, modbuserrors.Newf(modbuserrors.ErrInvalidParam, "slave id %d out of range [1,247]", slaveID)
	}

	sorted := append([]uint16(nil), addresses...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// Deduplicate.
	dedup := sorted[:0:0]
	for i, a := range sorted {
		if i == 0 || a != sorted[i-1] {
			dedup = append(dedup, a)
		}
	}

	var blocks []Block
	runStart := dedup[0]
	runEnd := dedup[0] // inclusive end of current run
	for _, a := range dedup[1:] {
		if int(a) == int(runEnd)+1 {
			runEnd = a
			continue
		}
		b, err := boundedBlock(slaveID, fc, runStart, runEnd)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		runStart, runEnd = a, a
	}
	b, err := boundedBlock(slaveID, fc, runStart, runEnd)
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, b)
	return blocks, nil
}

// boundedBlock constructs a block spanning [start, end] inclusive,
// splitting it across the FC's max_quantity ceiling if the run is longer
// than a single block can hold would be incorrect for this API (a single
// maximal run always becomes a single Block per spec.md §4.4); callers
// that need oversized runs packed into multiple requests rely on the FFD
// packer, not on AddressesToBlocks.
func boundedBlock(slaveID uint8, fc policy.FunctionCode, start, end uint16) (Block, error) {
	qty := uint16(int(end) - int(start) + 1)
	entry, err := policy.Lookup(fc)
	if err != nil {
		return Block{}, err
	}
	if int(qty) > entry.MaxQuantity {
		return Block{}, modbuserrors.Newf(modbuserrors.ErrInvalidQuantity, "adjacent run of %d addresses exceeds max quantity %d for fc 0x%02X", qty, entry.MaxQuantity, fc)
	}
	return Block{SlaveID: slaveID, FunctionCode: fc, StartAddress: start, Quantity: qty}, nil
}

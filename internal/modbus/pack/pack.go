// Package pack implements the First-Fit-Decreasing bin packer that
// collects merged blocks into PDU-sized bins honoring per-function-code
// quantity and byte limits.
package pack

import (
	"sort"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/block"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
)

// Bin is an in-progress pack target. It grows monotonically by merging
// one more block's address range into a single contiguous span.
type Bin struct {
	SlaveID      uint8
	FunctionCode policy.FunctionCode
	StartAddress uint16
	Quantity     uint16
}

// End returns the exclusive end address of the bin's span.
func (b Bin) End() int {
	return int(b.StartAddress) + int(b.Quantity)
}

// dataSize returns the wire data-byte size for the bin's current span.
func dataSize(b Bin) (int, error) {
	tmp := block.Block{FunctionCode: b.FunctionCode, Quantity: b.Quantity}
	return block.DataSize(tmp)
}

// Blocks packs merged blocks into bins of at most maxPDUChars data bytes,
// honoring each function code's max_quantity. Blocks are copied and
// sorted by quantity descending before packing (ties keep their sorted
// position; any stable order is conforming per spec.md §4.6). A block
// that fits no open bin starts a new one, appended in the order opened.
// Termination is guaranteed: every input block already satisfies the
// merger's own size/quantity ceiling, so a fresh bin always accepts it.
func Blocks(blocks []block.Block, maxPDUChars int) ([]Bin, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	sorted := append([]block.Block(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Quantity > sorted[j].Quantity
	})

	var bins []Bin
	for _, b := range sorted {
		entry, err := policy.Lookup(b.FunctionCode)
		if err != nil {
			return nil, err
		}

		placed := false
		for i := range bins {
			candidate, ok := tryCombine(bins[i], b, entry, maxPDUChars)
			if ok {
				bins[i] = candidate
				placed = true
				break
			}
		}
		if !placed {
			bins = append(bins, Bin{
				SlaveID:      b.SlaveID,
				FunctionCode: b.FunctionCode,
				StartAddress: b.StartAddress,
				Quantity:     b.Quantity,
			})
		}
	}
	return bins, nil
}

// tryCombine computes the combined span of bin and b and reports whether
// it fits within maxPDUChars data bytes and entry.MaxQuantity; if so it
// returns the combined bin. Combining only ever widens a bin's span to
// cover an adjacent or overlapping block: a gap between bin and b means
// the merger already considered and rejected folding that gap in
// (merge.Blocks never leaves two adjacent, merge-eligible blocks
// unmerged), so packing must not silently re-introduce it just because
// the resulting span happens to fit under maxPDUChars.
func tryCombine(bin Bin, b block.Block, entry policy.Entry, maxPDUChars int) (Bin, bool) {
	if bin.SlaveID != b.SlaveID || bin.FunctionCode != b.FunctionCode {
		return Bin{}, false
	}
	binBlock := block.Block{SlaveID: bin.SlaveID, FunctionCode: bin.FunctionCode, StartAddress: bin.StartAddress, Quantity: bin.Quantity}
	if block.Gap(binBlock, b) > 0 {
		return Bin{}, false
	}

	start := bin.StartAddress
	if b.StartAddress < start {
		start = b.StartAddress
	}
	end := bin.End()
	if b.End() > end {
		end = b.End()
	}
	qty := uint16(end - int(start))
	if int(qty) > entry.MaxQuantity {
		return Bin{}, false
	}

	combined := Bin{SlaveID: bin.SlaveID, FunctionCode: bin.FunctionCode, StartAddress: start, Quantity: qty}
	size, err := dataSize(combined)
	if err != nil || size > maxPDUChars {
		return Bin{}, false
	}
	return combined, true
}

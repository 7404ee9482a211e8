// Package merge implements the gap-aware greedy merger: given a sorted
// array of compatible blocks, it decides when reading unwanted addresses
// is cheaper than issuing a second round-trip.
package merge

import (
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/block"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
)

// Blocks merges a sorted array of compatible blocks using the given mode
// and cost parameters. It returns a new slice; the input is left intact.
// Per spec.md §4.5, merging is evaluated against a single moving "current"
// block: adjacent blocks always merge, otherwise the block merges only if
// gap_cost < overhead. The output is sorted by start address,
// non-overlapping, and every output span is a superset of one or more
// input spans — invariant (2) of spec.md §8.
func Blocks(mode cost.Mode, params cost.Params, blocks []block.Block) ([]block.Block, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	overhead := cost.Overhead(mode, params)

	out := make([]block.Block, 0, len(blocks))
	current := blocks[0]
	for _, next := range blocks[1:] {
		merge, err := shouldMerge(current, next, overhead)
		if err != nil {
			return nil, err
		}
		if merge {
			current = block.Merge(current, next)
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)
	return out, nil
}

// shouldMerge implements spec.md §4.5's three-step decision: compatible
// and merge-capable, then adjacent-unconditional, then gap-cost-vs-overhead.
func shouldMerge(current, next block.Block, overhead int) (bool, error) {
	if !block.Compatible(current, next) {
		return false, nil
	}
	if !policy.SupportsMerge(current.FunctionCode) {
		return false, nil
	}
	if block.Adjacent(current, next) {
		return true, nil
	}

	entry, err := policy.Lookup(current.FunctionCode)
	if err != nil {
		return false, err
	}
	gapUnits := block.Gap(current, next)
	gapCost := cost.GapCost(entry.UnitKind, gapUnits)
	return cost.MergeSavings(overhead, gapCost) > 0, nil
}

// Package optimize composes address folding, gap-aware merging, and FFD
// packing into the RequestPlan list a master orchestrator executes, one
// plan per on-wire round-trip.
package optimize

import (
	"sort"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/block"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/merge"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/pack"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/pool"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
)

// Pools, when supplied via WithPools, back every intermediate array one
// Plans call produces (post-fold blocks, post-merge blocks, packed bins,
// and the final plan list) with the Master's chosen allocation strategy
// (internal/modbus/pool) instead of plain heap slices. In ModePool, each
// field's fixed capacity turns an oversized run into a TooManyBlocks/
// TooManyBins/TooManyPlans error instead of an unbounded allocation.
type Pools struct {
	Blocks *pool.Pool[block.Block]
	Bins   *pool.Pool[pack.Bin]
	Plans  *pool.Pool[RequestPlan]
}

type options struct {
	pools *Pools
}

// Option configures an optional, non-default behavior of Plans.
type Option func(*options)

// WithPools routes Plans's intermediate allocations through p instead of
// plain heap slices. Returned Result.Plans may alias p.Plans's backing
// array in ModePool; per Master's single-operation-at-a-time contract,
// callers must fully consume one Result before the Master's next
// optimized read reuses the pool.
func WithPools(p *Pools) Option {
	return func(o *options) { o.pools = p }
}

// RequestPlan is one packed on-wire request: a single round-trip's
// worth of (slave_id, function_code, start_address, quantity).
type RequestPlan struct {
	SlaveID      uint8
	FunctionCode policy.FunctionCode
	StartAddress uint16
	Quantity     uint16
}

// AddressOffset maps one originally-requested address to its offset
// within the concatenated result buffer ReadOptimized builds by
// appending every plan's parsed response in order, computed alongside
// the plans without altering their wire fields. See SPEC_FULL.md §5.1
// (open question 1).
type AddressOffset struct {
	Address uint16
	Plan    int // index into the Plans slice
	Offset  int // global offset into the concatenated Registers/Bits buffer
}

// Result is the output of Plans: the packed request plans in execution
// order plus the address-to-offset side channel for demultiplexing a
// non-contiguous read back into per-address values.
type Result struct {
	Plans          []RequestPlan
	AddressOffsets []AddressOffset
	OriginalCount  int
	// OriginalBlockCount is the block count after address folding but
	// before merging, i.e. the "original_block_count" spec.md's
	// rounds_saved statistic is defined against (distinct from
	// OriginalCount, which counts addresses, not blocks).
	OriginalBlockCount int
}

// Plans runs block folding, gap-aware merging, and FFD packing over an
// unordered address list for a single slave and function code, returning
// one RequestPlan per packed bin. Failure modes: InvalidParam, InvalidFc,
// and whatever the merger/packer/policy layers surface for a malformed FC
// or oversized contiguous run.
func Plans(mode cost.Mode, slaveID uint8, fc policy.FunctionCode, addresses []uint16, maxPDUChars, gapChars, latencyChars int, opts ...Option) (Result, error) {
	if len(addresses) == 0 {
		return Result{}, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	entry, err := policy.Lookup(fc)
	if err != nil {
		return Result{}, err
	}

	blocks, err := block.AddressesToBlocks(slaveID, fc, addresses)
	if err != nil {
		return Result{}, err
	}
	blockCount := len(blocks)

	if o.pools != nil && o.pools.Blocks != nil {
		blocks, err = pooledBlockCopy(o.pools.Blocks, blocks)
		if err != nil {
			return Result{}, err
		}
	}

	params := cost.NewParams(mode, entry, gapChars, latencyChars)
	merged, err := merge.Blocks(mode, params, blocks)
	if err != nil {
		return Result{}, err
	}
	if o.pools != nil && o.pools.Blocks != nil {
		// merged never exceeds blocks in length, so the same pool can
		// host it once the pre-merge copy above has been consumed.
		o.pools.Blocks.Release(blocks)
		merged, err = pooledBlockCopy(o.pools.Blocks, merged)
		if err != nil {
			return Result{}, err
		}
	}

	bins, err := pack.Blocks(merged, maxPDUChars)
	if err != nil {
		return Result{}, err
	}
	if o.pools != nil && o.pools.Blocks != nil {
		o.pools.Blocks.Release(merged)
	}
	if o.pools != nil && o.pools.Bins != nil {
		if err := o.pools.Bins.CheckCapacity(len(bins)); err != nil {
			return Result{}, err
		}
		pooledBins := o.pools.Bins.Acquire()
		pooledBins = append(pooledBins, bins...)
		bins = pooledBins
		defer o.pools.Bins.Release(bins)
	}

	var plans []RequestPlan
	if o.pools != nil && o.pools.Plans != nil {
		if err := o.pools.Plans.CheckCapacity(len(bins)); err != nil {
			return Result{}, err
		}
		plans = o.pools.Plans.Acquire()
	} else {
		plans = make([]RequestPlan, 0, len(bins))
	}
	for _, b := range bins {
		plans = append(plans, RequestPlan{
			SlaveID:      b.SlaveID,
			FunctionCode: b.FunctionCode,
			StartAddress: b.StartAddress,
			Quantity:     b.Quantity,
		})
	}

	offsets, err := addressOffsets(entry, plans, addresses)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Plans:              plans,
		AddressOffsets:     offsets,
		OriginalCount:      len(addresses),
		OriginalBlockCount: blockCount,
	}, nil
}

// pooledBlockCopy checks src fits within p's capacity, then copies it
// into a pool-acquired backing array so the caller's subsequent pipeline
// stage operates on pool-owned memory instead of a plain heap slice.
func pooledBlockCopy(p *pool.Pool[block.Block], src []block.Block) ([]block.Block, error) {
	if err := p.CheckCapacity(len(src)); err != nil {
		return nil, err
	}
	dst := p.Acquire()
	dst = append(dst, src...)
	return dst, nil
}

// addressOffsets computes, for every originally-requested address, which
// plan's response will contain it and at what data-byte offset within
// that response. Plans are assumed non-overlapping and collectively
// covering every input address, per the merger/packer ordering guarantees.
func addressOffsets(entry policy.Entry, plans []RequestPlan, addresses []uint16) ([]AddressOffset, error) {
	unitSize := 2
	if entry.UnitKind == policy.UnitBit {
		unitSize = 1 // bit offsets are expressed in bit units, not bytes
	}

	// planBase[i] is the cumulative size, in Offset's own units, of every
	// plan before i's response. ReadOptimized appends each plan's parsed
	// Registers/Bits in plan order, so an address whose plan isn't the
	// first needs its preceding plans' sizes added in before Uint16At/
	// BitAt can index into the concatenated buffer. Bit responses are
	// byte-padded per Modbus's byte_count field (ceil(quantity/8)
	// bytes), so the running bit total advances by a full byte (8 bits)
	// per plan rather than by its raw quantity.
	planBase := make([]int, len(plans))
	running := 0
	for i, p := range plans {
		planBase[i] = running
		if entry.UnitKind == policy.UnitBit {
			running += ((int(p.Quantity) + 7) / 8) * 8
		} else {
			running += int(p.Quantity) * 2
		}
	}

	sortedAddrs := append([]uint16(nil), addresses...)
	sort.Slice(sortedAddrs, func(i, j int) bool { return sortedAddrs[i] < sortedAddrs[j] })
	dedup := sortedAddrs[:0:0]
	for i, a := range sortedAddrs {
		if i == 0 || a != sortedAddrs[i-1] {
			dedup = append(dedup, a)
		}
	}

	offsets := make([]AddressOffset, 0, len(dedup))
	for _, addr := range dedup {
		planIdx, ok := findPlan(plans, addr)
		if !ok {
			return nil, errors.Newf(errors.ErrInvalidAddress, "address %d is not covered by any packed plan", addr)
		}
		unitsIn := int(addr) - int(plans[planIdx].StartAddress)
		offsets = append(offsets, AddressOffset{
			Address: addr,
			Plan:    planIdx,
			Offset:  planBase[planIdx] + unitsIn*unitSize,
		})
	}
	return offsets, nil
}

func findPlan(plans []RequestPlan, addr uint16) (int, bool) {
	for i, p := range plans {
		if addr >= p.StartAddress && int(addr) < int(p.StartAddress)+int(p.Quantity) {
			return i, true
		}
	}
	return 0, false
}

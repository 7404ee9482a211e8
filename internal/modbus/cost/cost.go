// Package cost implements the character-based cost model that lets merge
// and packing decisions be made independently of baudrate, protocol
// variant, or timing. All quantities are "characters": an abstract unit
// where one byte of MBAP/PDU/CRC counts as one, irrespective of whether
// ASCII doubles it on the wire.
package cost

import (
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
)

// Mode identifies the transport variant, which affects whether an
// inter-frame gap is charged.
type Mode int

const (
	ModeRTU Mode = iota
	ModeASCII
	ModeTCP
)

// defaultGapChars is the default inter-frame spacing for RTU/ASCII,
// ceil(3.5 character times) per Modbus serial line timing.
const defaultGapChars = 4

// Params is the immutable cost parameter tuple for one optimization run.
type Params struct {
	ReqFixedChars  int
	RespFixedChars int
	GapChars       int
	LatencyChars   int
}

// NewParams derives cost parameters from a transport mode, a function-code
// policy entry, and a caller-configured latency setting. gapChars, if
// negative, falls back to the mode's default (4 for RTU/ASCII, 0 for TCP).
func NewParams(mode Mode, entry policy.Entry, gapChars, latencyChars int) Params {
	if gapChars < 0 {
		if mode == ModeTCP {
			gapChars = 0
		} else {
			gapChars = defaultGapChars
		}
	}
	return Params{
		ReqFixedChars:  entry.ReqFixedChars,
		RespFixedChars: entry.RespFixedChars,
		GapChars:       gapChars,
		LatencyChars:   latencyChars,
	}
}

// Overhead returns the character-unit cost of one round-trip, independent
// of payload: req_fixed + resp_fixed + (gap, for serial modes) + latency.
func Overhead(mode Mode, p Params) int {
	overhead := p.ReqFixedChars + p.RespFixedChars + p.LatencyChars
	if mode == ModeRTU || mode == ModeASCII {
		overhead += p.GapChars
	}
	return overhead
}

// GapCost prices gapUnits unrequested addressable units of the given kind:
// 2 chars/unit for registers, ceil(gapUnits/8) for bits. This is the
// canonical formula; the policy table's scaled ExtraUnitCharsScaled100
// field is advisory only and is never read here (see SPEC_FULL.md §5.3).
func GapCost(kind policy.UnitKind, gapUnits int) int {
	if gapUnits <= 0 {
		return 0
	}
	if kind == policy.UnitRegister {
		return gapUnits * 2
	}
	return (gapUnits + 7) / 8
}

// MergeSavings returns overhead - gapCost. A merge should be taken iff the
// result is strictly positive; callers must never apply tie-breaking
// adjustments at zero or negative savings.
func MergeSavings(overhead, gapCost int) int {
	return overhead - gapCost
}

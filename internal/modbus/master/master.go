// Package master implements the Master Orchestrator: given a read or
// write request, it drives optimization (for non-contiguous reads),
// framing, a transport round-trip, decoding, and response parsing,
// accumulating data and statistics along the way. The core is
// single-threaded and synchronous per Master; two operations on the same
// Master must not overlap (see spec.md §5).
package master

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/gomodbus-optimizer/internal/logger"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/block"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/frame"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/optimize"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/pack"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/pool"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/response"
)

// Transport is the abstract send/receive/delay capability a Master
// drives every round-trip through; the caller owns the concrete
// implementation (serial port, socket, in-memory fake). ctx carries
// cancellation and the per-call deadline; a Transport MUST NOT be
// re-entered for the same Master while a call is outstanding.
type Transport interface {
	Send(ctx context.Context, buf []byte) (int, error)
	Recv(ctx context.Context, buf []byte) (int, error)
	DelayChars(ctx context.Context, n int) error
}

// Config holds the per-Master configuration: wire mode, cost parameters,
// the PDU byte ceiling, the response timeout, and the transport handle.
// SessionID is a UUID generated at construction purely for log
// correlation (KeyTraceID); it never enters wire framing.
type Config struct {
	Mode         cost.Mode
	MaxPDUChars  int
	GapChars     int
	LatencyChars int
	TimeoutMS    int
	Transport    Transport
	SessionID    string

	// OnRoundTrip, if set, is invoked synchronously after every attempted
	// round-trip (success or failure) with its wall-clock duration. It is
	// purely observational and never feeds back into the core (spec.md §5).
	OnRoundTrip func(plan optimize.RequestPlan, d time.Duration, err error)

	// PoolMode selects how ReadOptimized's intermediate block/bin/plan
	// arrays are allocated (internal/modbus/pool). The zero value,
	// pool.ModeHeap, preserves plain growable-slice behavior; the
	// capacity fields below are ignored in that mode.
	PoolMode pool.Mode

	// BlockPoolCapacity, BinPoolCapacity, and PlanPoolCapacity fix the
	// ceilings of the block/bin/plan pools when PoolMode is
	// pool.ModePool. Exceeding one surfaces as TooManyBlocks,
	// TooManyBins, or TooManyPlans from ReadOptimized instead of an
	// unbounded allocation.
	BlockPoolCapacity int
	BinPoolCapacity   int
	PlanPoolCapacity  int
}

// Stats are the counters the Master updates; writable only by the
// Master, readable by clients. TotalRoundTrips counts every attempted
// round-trip; TotalResponses counts only those that were successfully
// decoded (SPEC_FULL.md §5, open question 2: treats the source's double
// total_requests increment as the named bug and uses two distinct
// counters instead).
type Stats struct {
	TotalRoundTrips uint64
	TotalResponses  uint64
	OptimizedReads  uint64
	RoundsSaved     uint64
	BlocksMerged    uint64
	BytesSent       uint64
	BytesReceived   uint64
}

// State is a round-trip's position in the Idle -> Encoded -> Sent ->
// Awaiting -> Decoded -> {Parsed, Exception, Error} state machine. A
// Master exposes the state of its most recently started round-trip via
// State(); it resets to StateIdle only at construction, so between calls
// it reflects the terminal state (Parsed, Exception, or Error) of the
// last operation rather than reverting to Idle.
type State int

const (
	StateIdle State = iota
	StateEncoded
	StateSent
	StateAwaiting
	StateDecoded
	StateParsed
	StateException
	StateError
)

// Result is a completed optimized-read's parsed registers/bits plus the
// address-to-offset side channel for demultiplexing back to per-address
// values (SPEC_FULL.md §5, open question 1).
type Result struct {
	Registers      []uint16
	Bits           []byte
	AddressOffsets []optimize.AddressOffset
}

// Uint16At returns the register value at addr, looked up through the
// result's AddressOffsets side channel. ok is false if addr was not part
// of the original request.
func (r Result) Uint16At(addr uint16) (uint16, bool) {
	for _, off := range r.AddressOffsets {
		if off.Address == addr {
			idx := off.Offset / 2
			if idx < 0 || idx >= len(r.Registers) {
				return 0, false
			}
			return r.Registers[idx], true
		}
	}
	return 0, false
}

// BitAt returns the bit value at addr, looked up through the result's
// AddressOffsets side channel.
func (r Result) BitAt(addr uint16) (bool, bool) {
	for _, off := range r.AddressOffsets {
		if off.Address == addr {
			byteIdx := off.Offset / 8
			bitIdx := uint(off.Offset % 8)
			if byteIdx < 0 || byteIdx >= len(r.Bits) {
				return false, false
			}
			return r.Bits[byteIdx]&(1<<bitIdx) != 0, true
		}
	}
	return false, false
}

// Master is the orchestration context: caller-owned configuration and
// statistics, plus a variant codec and an outbound transaction counter
// for TCP. Two operations on the same Master must not overlap.
type Master struct {
	cfg       Config
	codec     *frame.Codec
	stats     Stats
	nextTxnID uint16
	state     State
	pools     *optimize.Pools
}

// New constructs a Master. If cfg.SessionID is empty, a UUID is
// generated for log correlation. The block/bin/plan pools ReadOptimized
// draws from are built once here from cfg.PoolMode and the *PoolCapacity
// fields; in pool.ModeHeap (the zero value) they behave as plain
// growable slices.
func New(cfg Config) *Master {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	pools := &optimize.Pools{
		Blocks: pool.New[block.Block](cfg.PoolMode, cfg.BlockPoolCapacity, errors.ErrTooManyBlocks),
		Bins:   pool.New[pack.Bin](cfg.PoolMode, cfg.BinPoolCapacity, errors.ErrTooManyBins),
		Plans:  pool.New[optimize.RequestPlan](cfg.PoolMode, cfg.PlanPoolCapacity, errors.ErrTooManyPlans),
	}
	return &Master{cfg: cfg, codec: frame.NewCodec(), pools: pools}
}

// Stats returns a snapshot of the Master's statistics.
func (m *Master) Stats() Stats {
	return m.stats
}

// State reports the position of the most recently started round-trip in
// the Idle -> Encoded -> Sent -> Awaiting -> Decoded -> {Parsed,
// Exception, Error} state machine. A freshly constructed Master reports
// StateIdle.
func (m *Master) State() State {
	return m.state
}

// SetParams updates the gap-charging and round-trip timeout parameters
// in place, letting a caller apply a live-reloaded configuration between
// round-trips without rebuilding the Master (and losing its Transport and
// Stats). Not safe to call concurrently with an in-flight round-trip, the
// same restriction already placed on using one Master from two goroutines.
func (m *Master) SetParams(gapChars, timeoutMS int) {
	m.cfg.GapChars = gapChars
	m.cfg.TimeoutMS = timeoutMS
}

// variant maps the Master's cost.Mode to the frame.Variant it dispatches
// to; the two enumerations are kept distinct because cost.Mode also
// governs gap-cost inclusion in the overhead formula.
func (m *Master) variant() frame.Variant {
	switch m.cfg.Mode {
	case cost.ModeRTU:
		return frame.VariantRTU
	case cost.ModeASCII:
		return frame.VariantASCII
	default:
		return frame.VariantTCP
	}
}

// roundTrip drives one Idle -> Encoded -> Sent -> Awaiting -> Decoded
// transition: encode, send, receive, decode. It does not parse the
// response body; callers parse per read/write class. Every call is
// statistics-counted exactly once in TotalRoundTrips regardless of
// outcome; TotalResponses increments only on successful decode.
func (m *Master) roundTrip(ctx context.Context, plan optimize.RequestPlan, pdu []byte) (frame.Decoded, error) {
	start := time.Now()
	decoded, err := m.doRoundTrip(ctx, plan, pdu)
	if m.cfg.OnRoundTrip != nil {
		m.cfg.OnRoundTrip(plan, time.Since(start), err)
	}
	return decoded, err
}

func (m *Master) doRoundTrip(ctx context.Context, plan optimize.RequestPlan, pdu []byte) (frame.Decoded, error) {
	m.stats.TotalRoundTrips++

	txnID := m.nextTxnID
	m.nextTxnID++

	logCtx := logger.NewLogContext(plan.SlaveID).WithFunctionCode(uint8(plan.FunctionCode)).WithTransactionID(txnID)
	logger.DebugCtx(logger.WithContext(ctx, logCtx), "round trip begin", logger.Mode(modeString(m.cfg.Mode)))

	encoded, err := m.codec.Encode(m.variant(), nil, plan.SlaveID, uint8(plan.FunctionCode), pdu, txnID)
	if err != nil {
		m.state = StateError
		return frame.Decoded{}, err
	}
	m.state = StateEncoded

	sent, err := m.cfg.Transport.Send(ctx, encoded)
	if err != nil {
		m.state = StateError
		return frame.Decoded{}, errors.Wrap(errors.ErrTransport, "transport send failed", err)
	}
	m.stats.BytesSent += uint64(sent)
	m.state = StateSent

	if m.cfg.Mode != cost.ModeTCP {
		if err := m.cfg.Transport.DelayChars(ctx, m.cfg.GapChars); err != nil {
			m.state = StateError
			return frame.Decoded{}, errors.Wrap(errors.ErrTransport, "transport delay failed", err)
		}
	}
	m.state = StateAwaiting

	recvBuf := make([]byte, m.cfg.MaxPDUChars+16)
	n, err := m.cfg.Transport.Recv(ctx, recvBuf)
	if err != nil {
		m.state = StateError
		return frame.Decoded{}, errors.Wrap(errors.ErrTransport, "transport recv failed", err)
	}
	if n == 0 {
		m.state = StateError
		return frame.Decoded{}, errors.New(errors.ErrTimeout, "transport returned zero bytes within deadline")
	}
	m.stats.BytesReceived += uint64(n)

	decoded, err := m.codec.Decode(m.variant(), recvBuf[:n])
	if err != nil {
		m.state = StateError
		return frame.Decoded{}, err
	}
	if decoded.SlaveID != plan.SlaveID {
		m.state = StateError
		return frame.Decoded{}, errors.Newf(errors.ErrInvalidFrame, "response slave id %d does not match requested %d", decoded.SlaveID, plan.SlaveID)
	}
	m.stats.TotalResponses++
	m.state = StateDecoded
	return decoded, nil
}

func modeString(mode cost.Mode) string {
	switch mode {
	case cost.ModeRTU:
		return "rtu"
	case cost.ModeASCII:
		return "ascii"
	default:
		return "tcp"
	}
}

// checkException reports whether decoded carries an exception response
// and, if so, the exception code.
func checkException(decoded frame.Decoded) (exceptionCode byte, isException bool, err error) {
	if !policy.FunctionCode(decoded.FunctionCode).IsException() {
		return 0, false, nil
	}
	code, err := response.ExceptionCode(decoded.PDU)
	if err != nil {
		return 0, true, err
	}
	return code, true, errors.Newf(errors.ErrExceptionResponse, "slave returned exception 0x%02X: %s", code, response.ExceptionMessage(code))
}

// readPDU builds the 4-byte [start_hi][start_lo][qty_hi][qty_lo] request
// PDU common to all read function codes.
func readPDU(start, qty uint16) []byte {
	pdu := make([]byte, 4)
	binary.BigEndian.PutUint16(pdu[0:2], start)
	binary.BigEndian.PutUint16(pdu[2:4], qty)
	return pdu
}

package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the optimizer, codec,
// and master packages. Use these keys consistently so log lines aggregate
// cleanly regardless of which layer emitted them.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for round-trip correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID

	// ========================================================================
	// Modbus Addressing
	// ========================================================================
	KeySlaveID        = "slave_id"        // Modbus slave/unit address (1-247)
	KeyFunctionCode   = "function_code"   // Modbus function code
	KeyStartAddress   = "start_address"   // Starting register/coil address
	KeyQuantity       = "quantity"        // Requested unit count
	KeyTransactionID  = "transaction_id"  // TCP MBAP transaction id
	KeyMode           = "mode"            // Transport variant: rtu, ascii, tcp

	// ========================================================================
	// Optimization & Statistics
	// ========================================================================
	KeyPlanIndex    = "plan_index"    // Index of the plan within an optimized read
	KeyPlanCount    = "plan_count"    // Total plans produced by the optimizer
	KeyBlockCount   = "block_count"   // Blocks produced before merging
	KeyMergedCount  = "merged_count"  // Blocks remaining after merging
	KeyRoundTrips   = "round_trips"   // Round-trips attempted so far
	KeyBlocksMerged = "blocks_merged" // Cumulative blocks folded by merging
	KeyBytesSent    = "bytes_sent"
	KeyBytesRecv    = "bytes_received"

	// ========================================================================
	// Errors & Outcomes
	// ========================================================================
	KeyError     = "error"       // Error message
	KeyErrorCode = "error_code"  // errors.ErrorCode name
	KeyException = "exception"   // Modbus exception code (0x01-0x0B)
	KeyDuration  = "duration_ms"
)

// Err returns a slog.Attr for an error, or a no-op Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// SlaveID returns a slog.Attr for the target slave address.
func SlaveID(id uint8) slog.Attr {
	return slog.Int(KeySlaveID, int(id))
}

// FunctionCode returns a slog.Attr for a Modbus function code, rendered in hex.
func FunctionCode(fc uint8) slog.Attr {
	return slog.String(KeyFunctionCode, fmt.Sprintf("0x%02X", fc))
}

// Address returns a slog.Attr for a starting register/coil address.
func Address(addr uint16) slog.Attr {
	return slog.Int(KeyStartAddress, int(addr))
}

// Quantity returns a slog.Attr for a requested unit count.
func Quantity(qty uint16) slog.Attr {
	return slog.Int(KeyQuantity, int(qty))
}

// TransactionID returns a slog.Attr for a TCP MBAP transaction id.
func TransactionID(id uint16) slog.Attr {
	return slog.Int(KeyTransactionID, int(id))
}

// Mode returns a slog.Attr for the active transport variant.
func Mode(mode string) slog.Attr {
	return slog.String(KeyMode, mode)
}

// DurationMs returns a slog.Attr for an elapsed time in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDuration, ms)
}

// ErrorCode returns a slog.Attr naming an error kind.
func ErrorCode(code fmt.Stringer) slog.Attr {
	return slog.String(KeyErrorCode, code.String())
}

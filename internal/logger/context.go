package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds round-trip-scoped logging context
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	SlaveID       uint8     // Target slave address
	FunctionCode  uint8     // Modbus function code for the in-flight request
	TransactionID uint16    // TCP MBAP transaction id (0 for RTU/ASCII)
	StartTime     time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a round-trip against the given slave.
func NewLogContext(slaveID uint8) *LogContext {
	return &LogContext{
		SlaveID:   slaveID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:       lc.TraceID,
		SpanID:        lc.SpanID,
		SlaveID:       lc.SlaveID,
		FunctionCode:  lc.FunctionCode,
		TransactionID: lc.TransactionID,
		StartTime:     lc.StartTime,
	}
}

// WithFunctionCode returns a copy with the function code set
func (lc *LogContext) WithFunctionCode(fc uint8) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.FunctionCode = fc
	}
	return clone
}

// WithTransactionID returns a copy with the TCP transaction id set
func (lc *LogContext) WithTransactionID(id uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TransactionID = id
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

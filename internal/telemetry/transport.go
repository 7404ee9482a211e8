package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transport is the subset of master.Transport this package instruments.
// Defined locally rather than imported from internal/modbus/master to
// keep telemetry dependency-free of the core.
type Transport interface {
	Send(ctx context.Context, buf []byte) (int, error)
	Recv(ctx context.Context, buf []byte) (int, error)
	DelayChars(ctx context.Context, n int) error
}

// tracingTransport wraps a Transport, opening one span per round-trip:
// started on Send, ended on the matching Recv. DelayChars passes through
// untouched since it carries no wire bytes of its own.
//
// A tracingTransport is not safe for concurrent round-trips — the same
// restriction master.Master already places on a Transport.
type tracingTransport struct {
	inner  Transport
	tracer trace.Tracer
	span   trace.Span
}

// WrapTransport returns t instrumented with round-trip spans from the
// given tracer. Pass telemetry.Tracer() to use the global provider
// installed by Init.
func WrapTransport(t Transport, tracer trace.Tracer) Transport {
	return &tracingTransport{inner: t, tracer: tracer}
}

func (t *tracingTransport) Send(ctx context.Context, buf []byte) (int, error) {
	ctx, t.span = t.tracer.Start(ctx, "modbus.round_trip")
	t.span.SetAttributes(attribute.Int("modbus.bytes_sent", len(buf)))

	n, err := t.inner.Send(ctx, buf)
	if err != nil {
		t.endSpan(err)
	}
	return n, err
}

func (t *tracingTransport) Recv(ctx context.Context, buf []byte) (int, error) {
	n, err := t.inner.Recv(ctx, buf)
	if t.span != nil {
		t.span.SetAttributes(attribute.Int("modbus.bytes_received", n))
	}
	t.endSpan(err)
	return n, err
}

func (t *tracingTransport) DelayChars(ctx context.Context, n int) error {
	return t.inner.DelayChars(ctx, n)
}

func (t *tracingTransport) endSpan(err error) {
	if t.span == nil {
		return
	}
	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	}
	t.span.End()
	t.span = nil
}

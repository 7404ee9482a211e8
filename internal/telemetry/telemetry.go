// Package telemetry wraps a master.Transport in an OpenTelemetry span per
// round-trip, the dittofs pattern of wrapping each NFS procedure call in
// a span, scaled down to the one thing gomodbus's core allows an
// observer to wrap: the blocking send/recv pair (spec.md §5 forbids the
// core itself from yielding or spawning, so the span is always opened
// and closed synchronously, never held across a goroutine boundary).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config mirrors pkg/config.TelemetryConfig; kept as its own type so this
// package has no dependency on pkg/config.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SampleRate     float64
}

// Init installs a global TracerProvider sampling at cfg.SampleRate, or a
// no-op provider when disabled, and returns a shutdown func to flush on
// exit. No exporter is attached here — wiring a concrete OTLP exporter
// is left to the caller's TracerProvider options, since this package's
// job is only producing well-formed round-trip spans.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	sampler := samplerFor(cfg.SampleRate)
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns the "gomodbus" tracer from the currently installed
// global TracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer("gomodbus")
}

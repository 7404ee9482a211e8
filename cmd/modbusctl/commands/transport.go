package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/cost"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/master"
	"github.com/marmos91/gomodbus-optimizer/internal/telemetry"
	"github.com/marmos91/gomodbus-optimizer/pkg/config"
	"github.com/marmos91/gomodbus-optimizer/pkg/transport/serialtransport"
	"github.com/marmos91/gomodbus-optimizer/pkg/transport/tcptransport"
)

// newMaster builds a master.Master wired to the concrete transport named
// by cfg.Mode, returning an io.Closer the caller must close once done.
func newMaster(ctx context.Context, cfg *config.Config) (*master.Master, io.Closer, error) {
	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return nil, nil, err
	}

	var transport master.Transport
	var closer io.Closer
	switch mode {
	case cost.ModeTCP:
		tr, err := tcptransport.Dial(ctx, cfg.Port, cfg.TimeoutMS)
		if err != nil {
			return nil, nil, err
		}
		transport, closer = tr, tr
	default:
		tr, err := serialtransport.Open(cfg.Port, cfg.BaudRate, cfg.TimeoutMS)
		if err != nil {
			return nil, nil, err
		}
		transport, closer = tr, tr
	}

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "gomodbus",
		ServiceVersion: "dev",
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if cfg.Telemetry.Enabled {
		transport = telemetry.WrapTransport(transport, telemetry.Tracer())
	}

	m := master.New(master.Config{
		Mode:         mode,
		MaxPDUChars:  cfg.MaxPDUChars,
		GapChars:     cfg.GapChars,
		LatencyChars: cfg.LatencyChars,
		TimeoutMS:    cfg.TimeoutMS,
		Transport:    transport,
	})
	return m, multiCloser{closer, shutdownTelemetry}, nil
}

// multiCloser closes the underlying transport and flushes telemetry on
// the same Close call, since cobra's RunE only defers one closer.
type multiCloser struct {
	closer   io.Closer
	shutdown func(context.Context) error
}

func (c multiCloser) Close() error {
	shutdownErr := c.shutdown(context.Background())
	closeErr := c.closer.Close()
	if closeErr != nil {
		return closeErr
	}
	return shutdownErr
}

func parseMode(s string) (cost.Mode, error) {
	switch s {
	case "rtu":
		return cost.ModeRTU, nil
	case "ascii":
		return cost.ModeASCII, nil
	case "tcp":
		return cost.ModeTCP, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (expected rtu, ascii, or tcp)", s)
	}
}

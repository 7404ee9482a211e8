package config

// GetDefaultConfig returns a Config populated with sensible defaults for
// an RTU master on a USB-serial adapter.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields with defaults. Explicit values
// loaded from file, environment, or flags are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "rtu"
	}
	if cfg.MaxPDUChars == 0 {
		cfg.MaxPDUChars = 253
	}
	if cfg.GapChars == 0 {
		cfg.GapChars = -1 // defer to cost.NewParams' mode default
	}
	if cfg.TimeoutMS == 0 {
		cfg.TimeoutMS = 1000
	}
	if cfg.Port == "" {
		switch cfg.Mode {
		case "tcp":
			cfg.Port = "127.0.0.1:502"
		default:
			cfg.Port = "/dev/ttyUSB0"
		}
	}
	if cfg.BaudRate == 0 && cfg.Mode != "tcp" {
		cfg.BaudRate = 9600
	}

	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

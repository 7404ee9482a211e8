// Package config loads gomodbus-optimizer's runtime configuration: transport
// mode, optimizer cost parameters, and the ambient logging/telemetry
// settings, through viper with CLI flag > environment variable > config
// file > default precedence, validated with go-playground/validator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is gomodbus-optimizer's full runtime configuration.
//
// Configuration sources, highest precedence first:
//  1. CLI flags (bound by cmd/modbusctl)
//  2. Environment variables (GOMODBUS_*)
//  3. Configuration file (YAML)
//  4. Default values
type Config struct {
	// Mode selects the wire framing variant: "rtu", "ascii", or "tcp".
	Mode string `mapstructure:"mode" validate:"required,oneof=rtu ascii tcp" yaml:"mode"`

	// MaxPDUChars caps the PDU byte length a single packed request may
	// reach; 253 for serial modes, 253 also applies to TCP since the PDU
	// itself is unchanged by MBAP framing.
	MaxPDUChars int `mapstructure:"max_pdu_chars" validate:"required,min=1,max=253" yaml:"max_pdu_chars"`

	// GapChars is the inter-frame spacing charged per round-trip on serial
	// modes. Zero falls back to the cost package's mode default (4 for
	// RTU/ASCII, 0 for TCP); -1 forces "no gap charged" explicitly.
	GapChars int `mapstructure:"gap_chars" validate:"min=-1" yaml:"gap_chars"`

	// LatencyChars is the caller's estimate of per-round-trip latency,
	// expressed in the same character-cost units as the rest of the model.
	LatencyChars int `mapstructure:"latency_chars" validate:"min=0" yaml:"latency_chars"`

	// TimeoutMS bounds how long a round-trip waits for a response before
	// the transport surfaces a timeout.
	TimeoutMS int `mapstructure:"timeout_ms" validate:"required,gt=0" yaml:"timeout_ms"`

	// Port is the serial device path (RTU/ASCII) or "host:port" (TCP)
	// that pkg/transport dials.
	Port string `mapstructure:"port" validate:"required" yaml:"port"`

	// BaudRate configures the serial transport; ignored in TCP mode.
	BaudRate int `mapstructure:"baud_rate" validate:"omitempty,min=1" yaml:"baud_rate"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing of round-trips.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics controls the Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing of round-trips.
type TelemetryConfig struct {
	// Enabled controls whether round-trip spans are opened at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS OTLP connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether the metrics HTTP server is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults, then
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal whatever viper resolved (config file keys plus any
	// GOMODBUS_* environment overrides) onto a defaults-filled Config;
	// fields absent from both source keep their defaults.
	cfg := GetDefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Watch loads configuration exactly like Load, then keeps watching the
// resolved config file (via fsnotify, through viper.WatchConfig) and
// invokes onChange with the freshly reloaded, validated Config each time
// it is modified on disk. Reload failures (a bad edit mid-write, a
// momentarily invalid value) are logged by the caller via the returned
// error channel instead of crashing the watch loop — a transport already
// mid-round-trip must keep running on its last-good TimeoutMS/GapChars.
//
// The returned stop func releases the underlying viper watch; callers
// that never reload should just use Load instead.
func Watch(configPath string, onChange func(*Config)) (stop func(), errs <-chan error, err error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, nil, err
	}

	errCh := make(chan error, 1)
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := GetDefaultConfig()
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			trySend(errCh, fmt.Errorf("failed to reload config: %w", err))
			return
		}
		ApplyDefaults(cfg)
		if err := Validate(cfg); err != nil {
			trySend(errCh, fmt.Errorf("reloaded configuration failed validation, keeping previous values: %w", err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()

	return func() {}, errCh, nil
}

func trySend(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// MustLoad loads configuration, panicking-to-error with instructions on
// where the config file was expected if it cannot be found.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"create one first:\n"+
				"  modbusctl config init\n\n"+
				"or point at one explicitly:\n"+
				"  modbusctl <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed, with owner-only permissions.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation over cfg using go-playground/validator.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// setupViper configures environment variable and config file resolution.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("GOMODBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if present. A missing file
// is not an error; the caller falls back to defaults plus env overrides.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the mapstructure decode hooks viper uses to
// unmarshal human-readable durations into time.Duration fields.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory, honoring
// XDG_CONFIG_HOME and falling back to ~/.config, then to ".".
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gomodbus")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "gomodbus")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory (exposed for `modbusctl config init`).
func GetConfigDir() string {
	return getConfigDir()
}

// Package commands implements modbusctl's cobra command tree: read,
// write, and stats, plus a persistent --config/--mode/--port flag set.
package commands

import (
	"fmt"

	"github.com/marmos91/gomodbus-optimizer/internal/logger"
	"github.com/marmos91/gomodbus-optimizer/pkg/config"
	"github.com/spf13/cobra"
)

// Version, Commit, and Date are set from main via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configFile string
	modeFlag   string
	portFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "modbusctl",
	Short: "Issue optimized Modbus master read/write requests from the command line",
	Long: `modbusctl drives gomodbus-optimizer's master orchestrator against a
real RTU, ASCII, or TCP slave: read and write individual registers/coils,
run an optimized multi-address read, and inspect cumulative round-trip
statistics.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default: $XDG_CONFIG_HOME/gomodbus/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "transport mode override: rtu, ascii, or tcp")
	rootCmd.PersistentFlags().StringVar(&portFlag, "port", "", "serial device or host:port override")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(completionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return configFile
}

// loadConfig loads configuration from file/env/defaults and applies the
// --mode/--port overrides, which take precedence over everything else.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if modeFlag != "" {
		cfg.Mode = modeFlag
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger from configuration.
func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

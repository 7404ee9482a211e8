package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var statsAddresses string
var statsSlave uint8
var statsFC string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Run an optimized read and print the resulting round-trip statistics",
	Long: `stats runs --addresses through the optimizer exactly like "read
--addresses" but prints only the accumulated master.Stats, for inspecting
how many round-trips the optimizer saved on a given address list.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Uint8Var(&statsSlave, "slave", 1, "slave/unit address")
	statsCmd.Flags().StringVar(&statsFC, "fc", "0x03", "function code (e.g. 0x03, 3, 0x04)")
	statsCmd.Flags().StringVar(&statsAddresses, "addresses", "", "comma-separated address list to run through the optimizer")
	_ = statsCmd.MarkFlagRequired("addresses")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}

	fc, err := parseFunctionCode(statsFC)
	if err != nil {
		return err
	}
	addrs, err := parseAddresses(statsAddresses)
	if err != nil {
		return err
	}

	ctx := context.Background()
	m, closer, err := newMaster(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if _, err := m.ReadOptimized(ctx, statsSlave, fc, addrs); err != nil {
		return err
	}
	return printJSON(m.Stats())
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/gomodbus-optimizer/pkg/config"
	"github.com/spf13/cobra"
)

var watchAddresses string
var watchSlave uint8
var watchFC string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeatedly run an optimized read, live-reloading gap/timeout settings on config changes",
	Long: `watch runs the same optimized read as "stats" in a loop, printing
statistics on SIGHUP, and live-reloads gap_chars/timeout_ms from the
config file between iterations without tearing down the transport.
Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Uint8Var(&watchSlave, "slave", 1, "slave/unit address")
	watchCmd.Flags().StringVar(&watchFC, "fc", "0x03", "function code (e.g. 0x03, 3, 0x04)")
	watchCmd.Flags().StringVar(&watchAddresses, "addresses", "", "comma-separated address list to run through the optimizer")
	_ = watchCmd.MarkFlagRequired("addresses")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}

	fc, err := parseFunctionCode(watchFC)
	if err != nil {
		return err
	}
	addrs, err := parseAddresses(watchAddresses)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m, closer, err := newMaster(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	stop, reloadErrs, err := config.Watch(GetConfigFile(), func(reloaded *config.Config) {
		m.SetParams(reloaded.GapChars, reloaded.TimeoutMS)
		fmt.Fprintf(os.Stderr, "config reloaded: gap_chars=%d timeout_ms=%d\n", reloaded.GapChars, reloaded.TimeoutMS)
	})
	if err != nil {
		return fmt.Errorf("failed to start config watch: %w", err)
	}
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-reloadErrs:
			fmt.Fprintf(os.Stderr, "config reload error: %v\n", err)
		case <-sighup:
			if _, err := m.ReadOptimized(ctx, watchSlave, fc, addrs); err != nil {
				fmt.Fprintf(os.Stderr, "read error: %v\n", err)
				continue
			}
			if err := printJSON(m.Stats()); err != nil {
				fmt.Fprintf(os.Stderr, "print error: %v\n", err)
			}
		}
	}
}

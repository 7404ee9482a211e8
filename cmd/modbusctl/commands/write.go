package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	writeSlave   uint8
	writeCoil    bool
	writeAddress uint16
	writeValue   uint16
	writeValues  string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a coil or one or more registers on a slave",
	Long: `Write a single coil (--coil), a single holding register
(--address/--value), or a contiguous span of holding registers
(--address plus --values as a comma-separated list).`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().Uint8Var(&writeSlave, "slave", 1, "slave/unit address")
	writeCmd.Flags().BoolVar(&writeCoil, "coil", false, "write a single coil instead of a register")
	writeCmd.Flags().Uint16Var(&writeAddress, "address", 0, "target address")
	writeCmd.Flags().Uint16Var(&writeValue, "value", 0, "value to write (0/1 for --coil)")
	writeCmd.Flags().StringVar(&writeValues, "values", "", "comma-separated register values for a multi-register write")
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	m, closer, err := newMaster(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	switch {
	case writeCoil:
		return m.WriteSingleCoil(ctx, writeSlave, writeAddress, writeValue != 0)
	case writeValues != "":
		values, err := parseValues(writeValues)
		if err != nil {
			return err
		}
		return m.WriteMultipleRegisters(ctx, writeSlave, writeAddress, values)
	default:
		return m.WriteSingleRegister(ctx, writeSlave, writeAddress, writeValue)
	}
}

func parseValues(s string) ([]uint16, error) {
	parts := strings.Split(s, ",")
	values := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return nil, err
		}
		values = append(values, uint16(v))
	}
	return values, nil
}

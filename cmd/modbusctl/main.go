package main

import (
	"fmt"
	"os"

	"github.com/marmos91/gomodbus-optimizer/cmd/modbusctl/commands"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a *errors.Error's ErrorCode to a process exit status;
// non-core errors (flag parsing, cobra usage errors) exit 1.
func exitCode(err error) int {
	code := errors.Code(err)
	if code == 0 {
		return 1
	}
	return int(code) + 1
}

package cmd

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
)

var silent bool

// exitCode is what the process returns after a clean teardown. Commands
// that end the process on purpose (kill, stuck stream) set it.
var exitCode atomic.Int32

var rootCmd = &cobra.Command{
	Use:           "radiobox",
	Short:         "24/7 voice channel radio for a single Discord guild",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and start playing (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "Disable all log output")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return int(exitCode.Load())
}

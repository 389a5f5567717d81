package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global persistent flags, set in init() below and read by each
	// subcommand's RunE.
	cfgFile   string
	verbose   bool
	logFormat string
	version   = "dev" // overridden by -ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:     "druid",
	Short:   "SAT-based automatic test pattern generation for gate-level netlists",
	Long:    `druid enumerates representative stuck-at and transition-delay faults over a gate-level netlist, generates detecting test patterns with a SAT-based DTPG engine, and verifies the result set by bit-parallel fault simulation.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML configuration file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log output format: console or json (default: the config's logging.format)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(faultsCmd)
	rootCmd.AddCommand(simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

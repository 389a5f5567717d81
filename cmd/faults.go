package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var faultsCmd = &cobra.Command{
	Use:   "faults",
	Short: "Enumerate and print the representative fault list without solving",
	Args:  cobra.NoArgs,
	RunE:  runFaults,
}

func init() {
	faultsCmd.Flags().String("netlist", "", "path to the netlist file (required)")
	faultsCmd.Flags().String("format", "bench", "netlist format: blif or bench")
	faultsCmd.Flags().Bool("transition", false, "list transition-delay faults instead of stuck-at faults")
	faultsCmd.MarkFlagRequired("netlist")
}

func runFaults(cmd *cobra.Command, args []string) error {
	netlistPath, _ := cmd.Flags().GetString("netlist")
	format, _ := cmd.Flags().GetString("format")
	transition, _ := cmd.Flags().GetBool("transition")

	nl, err := loadNetlist(netlistPath, format)
	if err != nil {
		return fmt.Errorf("load netlist: %w", err)
	}

	faults := nl.Faults
	if transition {
		faults = nl.TransitionFaults()
	}

	for _, f := range faults {
		node := nl.Nodes[f.Node]
		fmt.Printf("%d\t%s\t%s\n", f.ID, node.Name, f.String())
	}
	fmt.Printf("# %d representative faults (%d FFRs, %d MFFCs)\n", len(faults), len(nl.FFRs), len(nl.MFFCs))
	return nil
}

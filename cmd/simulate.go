package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run PPSFP over a vector file against the full fault list",
	Args:  cobra.NoArgs,
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().String("netlist", "", "path to the netlist file (required)")
	simulateCmd.Flags().String("format", "bench", "netlist format: blif or bench")
	simulateCmd.Flags().String("vectors", "", "path to a test-vector file (required)")
	simulateCmd.MarkFlagRequired("netlist")
	simulateCmd.MarkFlagRequired("vectors")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	netlistPath, _ := cmd.Flags().GetString("netlist")
	format, _ := cmd.Flags().GetString("format")
	vectorsPath, _ := cmd.Flags().GetString("vectors")

	nl, err := loadNetlist(netlistPath, format)
	if err != nil {
		return fmt.Errorf("load netlist: %w", err)
	}

	vectors, err := readVectorFile(nl, vectorsPath)
	if err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("simulate: %s contains no test vectors", vectorsPath)
	}

	sim := fsim.New(nl)
	detectedBy := make(map[int]bool, len(nl.Faults))

	for batch := 0; batch < len(vectors); batch += value.Width {
		end := batch + value.Width
		if end > len(vectors) {
			end = len(vectors)
		}
		slice := vectors[batch:end]
		activeLanes := uint64(1)<<uint(len(slice)) - 1

		ppi := fsim.PackVectors(nl, slice)
		sim.SimulateGood(ppi)
		for _, d := range sim.PPSFP(nl.Faults, activeLanes) {
			if d.Mask != 0 {
				detectedBy[d.Fault.ID] = true
			}
		}
	}

	var detected, undetected int
	for _, f := range nl.Faults {
		if detectedBy[f.ID] {
			detected++
		} else {
			undetected++
			fmt.Printf("undetected\t%d\t%s\n", f.ID, f.String())
		}
	}
	fmt.Printf("# %d vectors, %d faults, %d detected, %d undetected\n",
		len(vectors), len(nl.Faults), detected, undetected)
	return nil
}

// readVectorFile parses the "name=v name=v ..." line format
// netlist.TestVector.String writes, skipping blank lines and lines
// starting with '#'.
func readVectorFile(nl *netlist.Netlist, path string) ([]*netlist.TestVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vectors []*netlist.TestVector
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tv := netlist.NewTestVector(nl)
		for _, field := range strings.Fields(line) {
			name, lit, ok := strings.Cut(field, "=")
			if !ok {
				return nil, fmt.Errorf("malformed assignment %q", field)
			}
			id, ok := nl.NodeByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown signal %q", name)
			}
			tv.Set(id, parseValue3(lit))
		}
		vectors = append(vectors, tv)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func parseValue3(s string) value.Value3 {
	switch s {
	case "0":
		return value.Zero
	case "1":
		return value.One
	default:
		return value.X
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/druid-atpg/pkg/dtpg"
	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/metrics"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and verify test patterns for every representative fault",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("netlist", "", "path to the netlist file (required)")
	runCmd.Flags().String("format", "bench", "netlist format: blif or bench")
	runCmd.Flags().String("output", "tests.txt", "path to write the generated test-vector file")
	runCmd.Flags().String("metrics-addr", "", "if set, serve Prometheus metrics on this address instead of exiting")
	runCmd.MarkFlagRequired("netlist")
}

func runRun(cmd *cobra.Command, args []string) error {
	netlistPath, _ := cmd.Flags().GetString("netlist")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	nl, err := loadNetlist(netlistPath, format)
	if err != nil {
		return fmt.Errorf("load netlist: %w", err)
	}
	logger.Info("netlist built",
		"nodes", len(nl.Nodes), "ffrs", len(nl.FFRs), "mffcs", len(nl.MFFCs),
		"faults", len(nl.Faults))

	m := metrics.New()
	if metricsAddr == "" && cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Addr
	}
	serverDone := make(chan struct{})
	if metricsAddr != "" {
		go func() {
			defer close(serverDone)
			http.Handle("/metrics", m.Handler())
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				logger.Error("metrics server exited", "error", err.Error())
			}
		}()
	}

	faults := nl.Faults
	if cfg.Fsim.FaultType == "transition-delay" {
		faults = nl.TransitionFaults()
	}

	dtpgCfg := dtpg.DefaultConfig()
	if cfg.Dtpg.DtpgType == "mffc" {
		dtpgCfg.Scope = dtpg.ScopeMFFC
	}
	if cfg.Dtpg.JustType == "just1" {
		dtpgCfg.Justify = dtpg.Just1
	}
	dtpgCfg.FaultModel = "stuck-at"
	if cfg.Fsim.FaultType == "transition-delay" {
		dtpgCfg.FaultModel = "transition"
	}
	dtpgCfg.MaxConflicts = cfg.Sat.MaxConflicts
	dtpgCfg.Timeout = cfg.Sat.Timeout
	dtpgCfg.Debug = cfg.Debug
	dtpgCfg.OnUntestable = func(f *netlist.Fault, reason dtpg.UntestableReason) {
		m.RecordVerdict("untestable")
		logger.Debug("fault untestable", "fault", f.String(), "reason", reason.String())
	}

	workers := cfg.Parallel.Workers
	verdicts, err := dtpg.GenerateAllConcurrent(context.Background(), nl, dtpgCfg, faults, workers)
	if err != nil {
		return fmt.Errorf("dtpg: %w", err)
	}

	var detected, untestable, undecided int
	var claims []fsim.Claim
	for _, v := range verdicts {
		switch {
		case v.Detected:
			detected++
			m.RecordVerdict("detected")
			claims = append(claims, fsim.Claim{Fault: v.Fault, Vector: v.Vector})
		case v.Undecided:
			undecided++
			m.RecordVerdict("undecided")
		default:
			untestable++
		}
	}

	verifier := fsim.NewVerifier(nl)
	report := verifier.Verify(claims)
	if !report.OK() {
		logger.Error("verification failed", "failed_count", len(report.Failed))
		for _, f := range report.Failed {
			logger.Error("unverified claim", "fault", f.Fault.String())
		}
		return fmt.Errorf("%d claimed detections did not verify", len(report.Failed))
	}

	if err := writeTestVectors(outputPath, nl, verdicts); err != nil {
		return fmt.Errorf("write test vectors: %w", err)
	}

	fmt.Printf("faults=%d detected=%d untestable=%d undecided=%d\n", len(faults), detected, untestable, undecided)
	fmt.Printf("verified %d/%d claimed detections\n", report.Checked-len(report.Failed), report.Checked)
	fmt.Printf("test vectors written to %s\n", outputPath)
	if metricsAddr != "" {
		<-serverDone // keep serving /metrics until the server exits
	}
	return nil
}

func writeTestVectors(path string, nl *netlist.Netlist, verdicts []dtpg.Verdict) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "# test vectors generated by druid\n")
	id := 0
	for _, v := range verdicts {
		if !v.Detected {
			continue
		}
		fmt.Fprintf(f, "# pattern %d fault %s\n", id, v.Fault.String())
		fmt.Fprintln(f, v.Vector.String(nl))
		id++
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/fyerfyer/druid-atpg/pkg/config"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/parse"
	"github.com/fyerfyer/druid-atpg/pkg/telemetry"
)

// loadConfig loads cfgFile (the --config persistent flag), falling back
// to config.Default() when no file was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds a telemetry.Logger from a loaded Config.
func newLogger(cfg *config.Config) *telemetry.Logger {
	return telemetry.New(telemetry.Config{
		Level:  telemetry.Level(cfg.Logging.Level),
		Format: telemetry.Format(cfg.Logging.Format),
	})
}

// loadNetlist dispatches to the BLIF or bench reader by the --format
// flag, per spec.md §6's two recognized input formats.
func loadNetlist(path, format string) (*netlist.Netlist, error) {
	switch format {
	case "blif":
		return parse.Blif(path)
	case "bench":
		return parse.Bench(path)
	default:
		return nil, fmt.Errorf("unrecognized --format %q (want \"blif\" or \"bench\")", format)
	}
}

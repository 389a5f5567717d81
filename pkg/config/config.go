// Package config loads the single runtime configuration map spec.md §6
// describes into a typed Config, unmarshalled from YAML the way the
// retrieval pack's chaos-utils config package does.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the typed form of spec.md §6's recognized configuration
// keys, plus the ambient logging and worker-pool settings this repo
// adds on top.
type Config struct {
	Fsim     FsimConfig     `yaml:"fsim"`
	Dtpg     DtpgConfig     `yaml:"dtpg"`
	Sat      SatConfig      `yaml:"sat"`
	Logging  LoggingConfig  `yaml:"logging"`
	Parallel ParallelConfig `yaml:"parallel"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Debug    bool           `yaml:"debug"`
}

// FsimConfig selects the fault model the simulator and DTPG engine both
// key their fault lists off.
type FsimConfig struct {
	// FaultType is "stuck-at" or "transition-delay".
	FaultType string `yaml:"fault_type"`
}

// DtpgConfig selects CNF scope and back-trace policy.
type DtpgConfig struct {
	// DtpgType is "ffr" or "mffc".
	DtpgType string `yaml:"dtpg_type"`
	// JustType is "just1" or "just2".
	JustType string `yaml:"just_type"`
}

// SatConfig bounds each SAT solve: `druid run` copies MaxConflicts and
// Timeout into the DTPG engine's configuration. Seed is parsed but not
// used; the DPLL solver takes no seed.
type SatConfig struct {
	MaxConflicts int           `yaml:"max_conflicts"`
	Timeout      time.Duration `yaml:"timeout"`
	Seed         int64         `yaml:"seed"`
}

// LoggingConfig controls pkg/telemetry.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ParallelConfig sizes the FFR-level worker pool (pkg/parallel).
type ParallelConfig struct {
	Workers int `yaml:"workers"`
}

// MetricsConfig controls the optional Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file is given: stuck-at
// faults, FFR-scoped SAT DTPG, just2 back-trace, one worker per CPU.
func Default() *Config {
	return &Config{
		Fsim: FsimConfig{FaultType: "stuck-at"},
		Dtpg: DtpgConfig{DtpgType: "ffr", JustType: "just2"},
		Sat: SatConfig{
			MaxConflicts: 0,
			Timeout:      0,
		},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Parallel: ParallelConfig{Workers: 0}, // 0 -> runtime.NumCPU()
		Metrics:  MetricsConfig{Enabled: false, Addr: ":9300"},
	}
}

// Load reads and unmarshals a YAML config file, filling every key the
// file omits from Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports a non-nil error if cfg names an unrecognized
// fault_type/dtpg_type/just_type key, matching the enumerated values
// spec.md §6 recognizes.
func (c *Config) Validate() error {
	switch c.Fsim.FaultType {
	case "stuck-at", "transition-delay":
	default:
		return fmt.Errorf("config: unrecognized fault_type %q", c.Fsim.FaultType)
	}
	switch c.Dtpg.DtpgType {
	case "ffr", "mffc":
	default:
		return fmt.Errorf("config: unrecognized dtpg_type %q", c.Dtpg.DtpgType)
	}
	switch c.Dtpg.JustType {
	case "just1", "just2":
	default:
		return fmt.Errorf("config: unrecognized just_type %q", c.Dtpg.JustType)
	}
	return nil
}

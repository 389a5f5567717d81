// Package rtpg supplements the distilled spec with random test-pattern
// generation, present in the original C++ implementation as Rtpg
// (include/Rtpg.h, c++-src/rtpg/Rtpg.cc) but dropped from spec.md's
// distillation. It is a cheap first pass run before Dtpg: a batch of
// random PPI vectors is fault-simulated with Fsim, and only the faults
// it fails to detect need the expensive SAT-based treatment — the
// classic ATPG combination-of-methods flow.
package rtpg

import (
	"math/rand"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

// Config controls one Rtpg run. Seed is always explicit (mirrored from
// gokando's pattern of explicit, never-global, PRNG seeds), never drawn
// from a package-level source, so runs are reproducible.
type Config struct {
	Seed    int64
	Rounds  int // number of value.Width-sized pattern batches to try
}

// DefaultConfig runs eight rounds (512 patterns at the default machine
// word width) seeded from a fixed value, the cheapest useful pass before
// falling back to Dtpg.
func DefaultConfig() Config {
	return Config{Seed: 1, Rounds: 8}
}

// Result is one Rtpg run's outcome: every generated pattern, in
// generation order (whether or not it detected anything), and the map
// from fault id to the first pattern (and its index within Patterns)
// that detected it.
type Result struct {
	Patterns []*netlist.TestVector
	Detected map[int]Detection
}

// Detection records which generated pattern first detected a fault.
type Detection struct {
	Fault        *netlist.Fault
	PatternIndex int
}

// Run fault-simulates config.Rounds random pattern batches against
// faults and returns every pattern it generated plus the first-detection
// map; it stops early once every fault is detected. Faults absent from the result's Detected map are
// the ones Dtpg still needs to attempt.
func Run(nl *netlist.Netlist, faults []*netlist.Fault, config Config) Result {
	res := Result{Detected: make(map[int]Detection)}
	if len(faults) == 0 {
		return res
	}

	rng := rand.New(rand.NewSource(config.Seed))
	sim := fsim.New(nl)
	remaining := make([]*netlist.Fault, len(faults))
	copy(remaining, faults)

	for round := 0; round < config.Rounds && len(remaining) > 0; round++ {
		batch := randomBatch(nl, rng)
		ppi := fsim.PackVectors(nl, batch)
		sim.SimulateGood(ppi)

		dets := sim.PPSFP(remaining, ^uint64(0))
		stillUndetected := remaining[:0:0]
		for _, det := range dets {
			if det.Mask == 0 {
				stillUndetected = append(stillUndetected, det.Fault)
				continue
			}
			lane := firstSetBit(det.Mask)
			patIdx := len(res.Patterns) + lane
			res.Detected[det.Fault.ID] = Detection{Fault: det.Fault, PatternIndex: patIdx}
		}
		remaining = stillUndetected
		res.Patterns = append(res.Patterns, batch...)
	}
	return res
}

// randomBatch builds value.Width random fully-defined PPI vectors.
func randomBatch(nl *netlist.Netlist, rng *rand.Rand) []*netlist.TestVector {
	batch := make([]*netlist.TestVector, value.Width)
	for i := range batch {
		tv := netlist.NewTestVector(nl)
		for _, id := range nl.PPIs {
			if rng.Intn(2) == 0 {
				tv.Set(id, value.Zero)
			} else {
				tv.Set(id, value.One)
			}
		}
		batch[i] = tv
	}
	return batch
}

func firstSetBit(mask uint64) int {
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			return i
		}
	}
	return 0
}

// Remaining returns the subset of faults Run's result did not detect,
// the set a caller should still hand to Dtpg.
func (r Result) Remaining(faults []*netlist.Fault) []*netlist.Fault {
	out := make([]*netlist.Fault, 0, len(faults))
	for _, f := range faults {
		if _, ok := r.Detected[f.ID]; !ok {
			out = append(out, f)
		}
	}
	return out
}

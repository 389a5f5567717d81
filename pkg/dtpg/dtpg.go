package dtpg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/satsolver"
)

// Scope selects the granularity at which Dtpg groups faults before
// solving them: FFR-local or MFFC-local. Both groupings only affect
// iteration order and parallel-task boundaries; every fault still gets
// its own solver and CNF, which always reaches through to a real PPO
// regardless of scope.
type Scope int

const (
	ScopeFFR Scope = iota
	ScopeMFFC
)

// UntestableReason classifies why Dtpg gave up on a fault, handed to the
// optional OnUntestable hook (supplemented from original_source's
// UntestOp/UopDummy collaborator).
type UntestableReason int

const (
	ReasonUnsat UntestableReason = iota
	ReasonSolverFailed
)

func (r UntestableReason) String() string {
	if r == ReasonUnsat {
		return "unsat"
	}
	return "solver-failed"
}

// Config controls one Dtpg engine instance.
type Config struct {
	FaultModel   string // "stuck-at" or "transition"
	Scope        Scope
	Justify      JustifyPolicy
	MaxConflicts int           // 0 = unbounded, forwarded to satsolver.New
	Timeout      time.Duration // 0 = no per-fault deadline
	Debug        bool          // panic on ErrJustifyFailed; when false the fault gets an Undecided verdict and the error is returned, not logged

	// OnUntestable, if set, is invoked once per fault Dtpg proves
	// undetectable (SAT returns false) or otherwise cannot solve.
	OnUntestable func(f *netlist.Fault, reason UntestableReason)
}

// DefaultConfig returns the stuck-at, FFR-scoped, just2 configuration
// used when no configuration file overrides it.
func DefaultConfig() Config {
	return Config{
		FaultModel: "stuck-at",
		Scope:      ScopeFFR,
		Justify:    Just2,
	}
}

// Verdict is one fault's outcome.
type Verdict struct {
	Fault     *netlist.Fault
	Detected  bool
	Vector    *netlist.TestVector
	Undecided bool
}

// Dtpg ties the CNF builder, a satsolver.Solver and the Extractor/
// Justifier together for one Netlist.
type Dtpg struct {
	nl     *netlist.Netlist
	sim    *fsim.Fsim
	config Config
}

// New builds a Dtpg engine for nl. Generate constructs a fresh
// satsolver.Solver and CNF for every fault (two for a transition fault);
// no solver or CNF is shared between the faults of a scope group. A Dtpg
// instance itself is safe to reuse sequentially, and multiple
// instances (one per goroutine, per pkg/parallel's task pool) may run
// concurrently against the same read-only Netlist.
func New(nl *netlist.Netlist, config Config) *Dtpg {
	return &Dtpg{nl: nl, sim: fsim.New(nl), config: config}
}

// Generate solves one fault and returns its verdict. A stuck-at fault is
// handled by a single CNF instance; a transition fault is handled by an
// initialization solve (establishing the launch value the prior cycle
// must settle to) followed by the same divergence-based capture solve
// used for stuck-at, with the stuck polarity set to the fault's initial
// value so the capture vector is forced to show the opposite.
func (d *Dtpg) Generate(ctx context.Context, f *netlist.Fault) (Verdict, error) {
	if f.Kind == netlist.TransitionRise || f.Kind == netlist.TransitionFall {
		return d.generateTransition(ctx, f)
	}
	return d.generateCombinational(ctx, f)
}

func (d *Dtpg) generateCombinational(ctx context.Context, f *netlist.Fault) (Verdict, error) {
	solver := satsolver.New(d.config.MaxConflicts)
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	vids, sat, err := solveOneFault(ctx, d.nl, solver, f)
	if err != nil {
		d.reportUntestable(f, ReasonSolverFailed)
		return Verdict{Fault: f, Undecided: true}, err
	}
	if !sat {
		d.reportUntestable(f, ReasonUnsat)
		return Verdict{Fault: f, Detected: false}, nil
	}

	raw := Extract(d.nl, vids, solver)
	if !d.sim.Verify(f, raw) {
		if d.config.Debug {
			panic(fmt.Sprintf("dtpg: %v: SAT model did not verify under simulation", ErrJustifyFailed))
		}
		return Verdict{Fault: f, Undecided: true}, fmt.Errorf("%w: fault %v", ErrJustifyFailed, f)
	}

	vec := Justify(d.sim, d.nl, f, raw, d.config.Justify)
	return Verdict{Fault: f, Detected: true, Vector: vec}, nil
}

// generateTransition derives a two-pattern test: the "previous" pattern
// solved as a plain stuck-at instance for the complementary value (so
// the site settles to the fault's initial value before the transition is
// clocked in), and the "current" pattern solved as the ordinary
// divergence instance. This is a simplification of a fully unrolled
// sequential model (see DESIGN.md): DFF state carry between frames is
// approximated rather than chained through an explicit second time-frame
// netlist copy, which keeps scope proportionate to spec.md's two-value,
// two-time-frame Non-goal boundary.
func (d *Dtpg) generateTransition(ctx context.Context, f *netlist.Fault) (Verdict, error) {
	initKind := netlist.SA1
	if f.Kind == netlist.TransitionRise {
		initKind = netlist.SA0 // rise test needs the site to start at 0
	} else {
		initKind = netlist.SA1
	}
	initFault := &netlist.Fault{ID: -1, Kind: oppositeStuck(initKind), Node: f.Node, Pin: f.Pin}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	prevSolver := satsolver.New(d.config.MaxConflicts)
	prevVids, prevSat, err := solveOneFault(ctx, d.nl, prevSolver, initFault)
	if err != nil {
		d.reportUntestable(f, ReasonSolverFailed)
		return Verdict{Fault: f, Undecided: true}, err
	}
	if !prevSat {
		d.reportUntestable(f, ReasonUnsat)
		return Verdict{Fault: f, Detected: false}, nil
	}
	prevVec := Extract(d.nl, prevVids, prevSolver)

	captureKind := netlist.SA0
	if f.Kind == netlist.TransitionRise {
		captureKind = netlist.SA0
	} else {
		captureKind = netlist.SA1
	}
	captureFault := &netlist.Fault{ID: -1, Kind: captureKind, Node: f.Node, Pin: f.Pin}

	curSolver := satsolver.New(d.config.MaxConflicts)
	curVids, curSat, err := solveOneFault(ctx, d.nl, curSolver, captureFault)
	if err != nil {
		d.reportUntestable(f, ReasonSolverFailed)
		return Verdict{Fault: f, Undecided: true}, err
	}
	if !curSat {
		d.reportUntestable(f, ReasonUnsat)
		return Verdict{Fault: f, Detected: false}, nil
	}
	curVec := Extract(d.nl, curVids, curSolver)
	curVec.Aux = prevVec.Values

	return Verdict{Fault: f, Detected: true, Vector: curVec}, nil
}

func oppositeStuck(k netlist.FaultKind) netlist.FaultKind {
	if k == netlist.SA0 {
		return netlist.SA1
	}
	return netlist.SA0
}

func (d *Dtpg) reportUntestable(f *netlist.Fault, reason UntestableReason) {
	if d.config.OnUntestable != nil {
		d.config.OnUntestable(f, reason)
	}
}

// GenerateAll solves every fault in faults, grouped by FFR or MFFC index
// according to d.config.Scope purely to determine iteration order (the
// grouping is also what pkg/parallel.Pool uses as its task boundary for
// concurrent solving). Faults within a group are solved sequentially in
// this call; for concurrent group processing see pkg/parallel.
func (d *Dtpg) GenerateAll(ctx context.Context, faults []*netlist.Fault) ([]Verdict, error) {
	groups := d.GroupFaults(faults)
	verdicts := make([]Verdict, 0, len(faults))
	for _, g := range groups {
		for _, f := range g.Faults {
			v, err := d.Generate(ctx, f)
			if err != nil && !errors.Is(err, ErrJustifyFailed) {
				return verdicts, err
			}
			verdicts = append(verdicts, v)
		}
	}
	return verdicts, nil
}

// Group is one FFR's or one MFFC's worth of faults, the unit pkg/parallel
// dispatches as a single task.
type Group struct {
	Index  int
	Faults []*netlist.Fault
}

// GroupFaults partitions faults by FFR or MFFC index (per d.config.Scope)
// and returns the groups sorted by index for deterministic iteration.
func (d *Dtpg) GroupFaults(faults []*netlist.Fault) []Group {
	byIdx := make(map[int][]*netlist.Fault)
	for _, f := range faults {
		idx := d.groupIndex(f)
		byIdx[idx] = append(byIdx[idx], f)
	}
	groups := make([]Group, 0, len(byIdx))
	for idx, fs := range byIdx {
		groups = append(groups, Group{Index: idx, Faults: fs})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Index < groups[j].Index })
	return groups
}

func (d *Dtpg) groupIndex(f *netlist.Fault) int {
	n := d.nl.Nodes[f.Node]
	if d.config.Scope == ScopeFFR {
		return n.FFR
	}
	for _, m := range d.nl.MFFCs {
		for _, ffrIdx := range m.FFRs {
			if ffrIdx == n.FFR {
				return m.Index
			}
		}
	}
	return n.FFR
}

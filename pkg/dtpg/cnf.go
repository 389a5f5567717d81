// Package dtpg is the SAT-based test pattern generation engine: it
// encodes a fault's detection condition as CNF over a good-circuit copy
// and a faulty-circuit copy sharing every variable upstream of the
// fault's transitive fanout, hands the instance to a satsolver.Solver,
// and extracts/justifies a TestVector from the model it returns.
package dtpg

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/satsolver"
)

// ErrSolverFailed wraps any error the underlying SAT solver reports
// (timeout, conflict-budget exhaustion, cancellation) that is not itself
// a plain UNSAT verdict.
var ErrSolverFailed = errors.New("dtpg: solver failed")

// ErrJustifyFailed signals that a SAT-true verdict could not be turned
// into a consistent TestVector, which indicates an encoding bug rather
// than an untestable fault.
var ErrJustifyFailed = errors.New("dtpg: justification failed")

// VidMap associates netlist nodes with the good- and faulty-copy
// solver variables built for one fault's CNF instance. The faulty copy
// only contains entries for nodes in the fault's transitive fanout.
type VidMap struct {
	Good   map[netlist.NodeID]satsolver.Var
	Faulty map[netlist.NodeID]satsolver.Var
}

func newVidMap() *VidMap {
	return &VidMap{
		Good:   make(map[netlist.NodeID]satsolver.Var),
		Faulty: make(map[netlist.NodeID]satsolver.Var),
	}
}

// cnfBuilder assembles one fault's CNF instance against a shared solver.
type cnfBuilder struct {
	nl     *netlist.Netlist
	solver satsolver.Solver
	vids   *VidMap
	tfo    map[netlist.NodeID]bool
}

// transitiveFanout returns every node reachable forward (inclusive) from
// start, following Fanout edges.
func transitiveFanout(nl *netlist.Netlist, start netlist.NodeID) map[netlist.NodeID]bool {
	seen := map[netlist.NodeID]bool{start: true}
	queue := []netlist.NodeID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, fo := range nl.Nodes[id].Fanout {
			if !seen[fo] {
				seen[fo] = true
				queue = append(queue, fo)
			}
		}
	}
	return seen
}

// buildForFault constructs the good copy over every node, the faulty
// copy over f's transitive fanout, the fault's activation clauses and
// the divergence clause requiring at least one reachable PPO to differ
// between the two copies. It returns the VidMap so the Extractor can
// read PPI assignments back out of the solver's model.
func buildForFault(nl *netlist.Netlist, solver satsolver.Solver, f *netlist.Fault) *VidMap {
	b := &cnfBuilder{nl: nl, solver: solver, vids: newVidMap()}

	faultNode := f.Node
	tfoStart := faultNode
	if f.Pin != netlist.StemPin {
		tfoStart = nl.Nodes[f.Node].Fanout[f.Pin]
	}
	b.tfo = transitiveFanout(nl, tfoStart)

	for _, n := range nl.Nodes {
		b.vids.Good[n.ID] = solver.NewVar()
	}
	for _, n := range nl.Nodes {
		b.encodeGood(n)
	}

	for id := range b.tfo {
		b.vids.Faulty[id] = solver.NewVar()
	}
	for id := range b.tfo {
		n := nl.Nodes[id]
		if id == tfoStart && f.Pin == netlist.StemPin {
			b.encodeFaultActivation(n, f)
			continue
		}
		if f.Pin != netlist.StemPin && id == tfoStart {
			b.encodeBranchFaultActivation(n, f)
			continue
		}
		b.encodeFaulty(n)
	}

	b.encodeDivergence(tfoStart)
	return b.vids
}

func (b *cnfBuilder) faultyVarOf(id netlist.NodeID) satsolver.Var {
	if v, ok := b.vids.Faulty[id]; ok {
		return v
	}
	return b.vids.Good[id]
}

// encodeGood emits the good-copy Tseitin clauses for node n, reading its
// fanins' good-copy variables.
func (b *cnfBuilder) encodeGood(n *netlist.Node) {
	out := b.vids.Good[n.ID]
	ins := make([]satsolver.Var, len(n.Fanin))
	for i, id := range n.Fanin {
		ins[i] = b.vids.Good[id]
	}
	b.encodeKind(n, out, ins)
}

// encodeFaulty emits the faulty-copy Tseitin clauses for a TFO node,
// reading each fanin's faulty-copy variable if it too lies in the TFO,
// or its shared good-copy variable otherwise.
func (b *cnfBuilder) encodeFaulty(n *netlist.Node) {
	out := b.faultyVarOf(n.ID)
	ins := make([]satsolver.Var, len(n.Fanin))
	for i, id := range n.Fanin {
		ins[i] = b.faultyVarOf(id)
	}
	b.encodeKind(n, out, ins)
}

// encodeFaultActivation pins a stem fault's faulty-copy variable to the
// stuck constant, ignoring the node's own logic function entirely.
func (b *cnfBuilder) encodeFaultActivation(n *netlist.Node, f *netlist.Fault) {
	out := b.vids.Faulty[n.ID]
	if stuckIsOne(f.Kind) {
		b.solver.AddClause(satsolver.Pos(out))
	} else {
		b.solver.AddClause(satsolver.Neg(out))
	}
}

// encodeBranchFaultActivation pins only the one consumer's read of the
// faulted branch: the consumer's faulty-copy output is computed with
// every fanin taken from the faulty copy except the faulted edge, whose
// value is forced to the stuck constant via a fresh pinned variable.
func (b *cnfBuilder) encodeBranchFaultActivation(consumer *netlist.Node, f *netlist.Fault) {
	pinned := b.solver.NewVar()
	if stuckIsOne(f.Kind) {
		b.solver.AddClause(satsolver.Pos(pinned))
	} else {
		b.solver.AddClause(satsolver.Neg(pinned))
	}

	out := b.vids.Faulty[consumer.ID]
	ins := make([]satsolver.Var, len(consumer.Fanin))
	for i, id := range consumer.Fanin {
		if id == f.Node {
			ins[i] = pinned
		} else {
			ins[i] = b.faultyVarOf(id)
		}
	}
	b.encodeKind(consumer, out, ins)
}

// stuckIsOne reports the CNF-encoded fault site's forced polarity.
// solveOneFault is only ever called with SA0/SA1 faults: generateTransition
// reduces a transition fault to two stuck-at solves (see dtpg.go) before
// reaching here, so only the stuck-at cases are live; the transition
// kinds are listed for documentation parity with pkg/fsim's stuckValue.
func stuckIsOne(k netlist.FaultKind) bool {
	return k == netlist.SA1 || k == netlist.TransitionFall
}

// encodeDivergence requires at least one PPO reachable from tfoStart to
// differ between the good and faulty copies, via one auxiliary
// difference variable per such PPO.
func (b *cnfBuilder) encodeDivergence(tfoStart netlist.NodeID) {
	var diffVars []satsolver.Var
	for _, ppo := range b.nl.PPOs {
		if !b.tfo[ppo] {
			continue
		}
		g := b.vids.Good[ppo]
		f := b.faultyVarOf(ppo)
		d := b.solver.NewVar()
		// d <-> (g XOR f)
		b.solver.AddClause(satsolver.Neg(d), satsolver.Pos(g), satsolver.Pos(f))
		b.solver.AddClause(satsolver.Neg(d), satsolver.Neg(g), satsolver.Neg(f))
		b.solver.AddClause(satsolver.Pos(d), satsolver.Neg(g), satsolver.Pos(f))
		b.solver.AddClause(satsolver.Pos(d), satsolver.Pos(g), satsolver.Neg(f))
		diffVars = append(diffVars, d)
	}
	lits := make([]satsolver.Lit, len(diffVars))
	for i, v := range diffVars {
		lits[i] = satsolver.Pos(v)
	}
	b.solver.AddClause(lits...)
}

// encodeKind emits the Tseitin clauses tying out to the logic function
// of kind applied to ins, generalized over And/Or/Nand/Nor/Xor/Xnor
// arity and the unary/boundary kinds.
func (b *cnfBuilder) encodeKind(n *netlist.Node, out satsolver.Var, ins []satsolver.Var) {
	switch n.Kind {
	case netlist.KindPI, netlist.KindDFFOut:
		// Source: out is a free solver variable, no clauses.
	case netlist.KindConst0:
		b.solver.AddClause(satsolver.Neg(out))
	case netlist.KindConst1:
		b.solver.AddClause(satsolver.Pos(out))
	case netlist.KindPO, netlist.KindDFFIn, netlist.KindBuf:
		encodeBuf(b.solver, out, ins[0])
	case netlist.KindNot:
		encodeNot(b.solver, out, ins[0])
	case netlist.KindAnd:
		encodeAnd(b.solver, out, ins)
	case netlist.KindNand:
		encodeNand(b.solver, out, ins)
	case netlist.KindOr:
		encodeOr(b.solver, out, ins)
	case netlist.KindNor:
		encodeNor(b.solver, out, ins)
	case netlist.KindXor:
		encodeXorChain(b.solver, out, ins, false)
	case netlist.KindXnor:
		encodeXorChain(b.solver, out, ins, true)
	}
}

func encodeBuf(s satsolver.Solver, out, in satsolver.Var) {
	s.AddClause(satsolver.Neg(out), satsolver.Pos(in))
	s.AddClause(satsolver.Pos(out), satsolver.Neg(in))
}

func encodeNot(s satsolver.Solver, out, in satsolver.Var) {
	s.AddClause(satsolver.Neg(out), satsolver.Neg(in))
	s.AddClause(satsolver.Pos(out), satsolver.Pos(in))
}

func encodeAnd(s satsolver.Solver, out satsolver.Var, ins []satsolver.Var) {
	for _, in := range ins {
		s.AddClause(satsolver.Neg(out), satsolver.Pos(in))
	}
	lits := make([]satsolver.Lit, 0, len(ins)+1)
	lits = append(lits, satsolver.Pos(out))
	for _, in := range ins {
		lits = append(lits, satsolver.Neg(in))
	}
	s.AddClause(lits...)
}

func encodeNand(s satsolver.Solver, out satsolver.Var, ins []satsolver.Var) {
	for _, in := range ins {
		s.AddClause(satsolver.Pos(out), satsolver.Pos(in))
	}
	lits := make([]satsolver.Lit, 0, len(ins)+1)
	lits = append(lits, satsolver.Neg(out))
	for _, in := range ins {
		lits = append(lits, satsolver.Neg(in))
	}
	s.AddClause(lits...)
}

func encodeOr(s satsolver.Solver, out satsolver.Var, ins []satsolver.Var) {
	for _, in := range ins {
		s.AddClause(satsolver.Neg(in), satsolver.Pos(out))
	}
	lits := make([]satsolver.Lit, 0, len(ins)+1)
	lits = append(lits, satsolver.Neg(out))
	for _, in := range ins {
		lits = append(lits, satsolver.Pos(in))
	}
	s.AddClause(lits...)
}

func encodeNor(s satsolver.Solver, out satsolver.Var, ins []satsolver.Var) {
	for _, in := range ins {
		s.AddClause(satsolver.Neg(in), satsolver.Neg(out))
	}
	lits := make([]satsolver.Lit, 0, len(ins)+1)
	lits = append(lits, satsolver.Pos(out))
	for _, in := range ins {
		lits = append(lits, satsolver.Pos(in))
	}
	s.AddClause(lits...)
}

// encodeXorChain folds a multi-input XOR/XNOR into a chain of two-input
// parity auxiliaries, so arity isn't limited to two.
func encodeXorChain(s satsolver.Solver, out satsolver.Var, ins []satsolver.Var, negate bool) {
	if len(ins) == 0 {
		return
	}
	acc := ins[0]
	for i := 1; i < len(ins); i++ {
		var next satsolver.Var
		if i == len(ins)-1 {
			next = out
			encodeXor2(s, next, acc, ins[i], negate)
			return
		}
		next = newChainVar(s)
		encodeXor2(s, next, acc, ins[i], false)
		acc = next
	}
	// Single-input XOR/XNOR: out <-> ins[0] (negated for Xnor).
	if negate {
		encodeNot(s, out, acc)
	} else {
		encodeBuf(s, out, acc)
	}
}

func newChainVar(s satsolver.Solver) satsolver.Var { return s.NewVar() }

func encodeXor2(s satsolver.Solver, out, a, b satsolver.Var, negate bool) {
	if !negate {
		s.AddClause(satsolver.Neg(out), satsolver.Pos(a), satsolver.Pos(b))
		s.AddClause(satsolver.Neg(out), satsolver.Neg(a), satsolver.Neg(b))
		s.AddClause(satsolver.Pos(out), satsolver.Neg(a), satsolver.Pos(b))
		s.AddClause(satsolver.Pos(out), satsolver.Pos(a), satsolver.Neg(b))
		return
	}
	// out <-> NOT(a XOR b)
	s.AddClause(satsolver.Pos(out), satsolver.Pos(a), satsolver.Pos(b))
	s.AddClause(satsolver.Pos(out), satsolver.Neg(a), satsolver.Neg(b))
	s.AddClause(satsolver.Neg(out), satsolver.Neg(a), satsolver.Pos(b))
	s.AddClause(satsolver.Neg(out), satsolver.Pos(a), satsolver.Neg(b))
}

// solveOneFault builds and solves the CNF instance for f, returning the
// VidMap and the SAT verdict.
func solveOneFault(ctx context.Context, nl *netlist.Netlist, solver satsolver.Solver, f *netlist.Fault) (*VidMap, bool, error) {
	vids := buildForFault(nl, solver, f)
	ok, err := solver.Solve(ctx, nil)
	if err != nil {
		return vids, false, fmt.Errorf("%w: %v", ErrSolverFailed, err)
	}
	return vids, ok, nil
}

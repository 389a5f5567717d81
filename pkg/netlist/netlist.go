// Package netlist builds and holds the immutable test-pattern graph a
// Dtpg and Fsim instance both operate over: gates, PPI/PPO boundaries,
// DFF pairing, levelization, FFR/MFFC partitioning and the representative
// fault list.
package netlist

import (
	"errors"
	"fmt"
)

// Sentinel errors, wrapped with context via fmt.Errorf("...: %w", err) at
// every call site that can fail during construction.
var (
	// ErrNetlistInvalid reports a structural problem found while building
	// the graph: a dangling fanin name, a cycle, a gate with the wrong
	// arity for its kind.
	ErrNetlistInvalid = errors.New("netlist: invalid netlist")

	// ErrUnsupportedGate reports a gate kind the parser produced that this
	// package does not know how to evaluate or encode.
	ErrUnsupportedGate = errors.New("netlist: unsupported gate kind")

	// ErrFaultSiteInvalid reports a fault referencing a node id or pin
	// index that does not exist in the netlist it is checked against.
	ErrFaultSiteInvalid = errors.New("netlist: invalid fault site")
)

// Kind enumerates every gate/node kind the netlist can hold, matching the
// Gate type in the data model: boundary kinds (PI/PO/DFF pins), constants
// and the primitive logic functions.
type Kind int

const (
	KindPI Kind = iota
	KindPO
	KindDFFIn  // PPO: the signal driving a DFF's D input
	KindDFFOut // PPI: the pseudo primary input fed by a DFF's Q output
	KindConst0
	KindConst1
	KindBuf
	KindNot
	KindAnd
	KindNand
	KindOr
	KindNor
	KindXor
	KindXnor
)

func (k Kind) String() string {
	switch k {
	case KindPI:
		return "PI"
	case KindPO:
		return "PO"
	case KindDFFIn:
		return "DFF-IN"
	case KindDFFOut:
		return "DFF-OUT"
	case KindConst0:
		return "CONST0"
	case KindConst1:
		return "CONST1"
	case KindBuf:
		return "BUF"
	case KindNot:
		return "NOT"
	case KindAnd:
		return "AND"
	case KindNand:
		return "NAND"
	case KindOr:
		return "OR"
	case KindNor:
		return "NOR"
	case KindXor:
		return "XOR"
	case KindXnor:
		return "XNOR"
	default:
		return "UNKNOWN"
	}
}

// IsSource reports whether nodes of this kind take no fanin: the true
// primary inputs, the DFF pseudo-inputs and the two constants.
func (k Kind) IsSource() bool {
	return k == KindPI || k == KindDFFOut || k == KindConst0 || k == KindConst1
}

// IsBoundaryOutput reports whether nodes of this kind are observed rather
// than fanned out further: primary outputs and DFF pseudo-outputs.
func (k Kind) IsBoundaryOutput() bool {
	return k == KindPO || k == KindDFFIn
}

// NodeID indexes Netlist.Nodes.
type NodeID int

// Node is one vertex of the netlist graph: a gate, a boundary pin or a
// constant source.
type Node struct {
	ID     NodeID
	Name   string
	Kind   Kind
	Fanin  []NodeID
	Fanout []NodeID
	Level  int // longest path from any source node, 0 for sources

	// FFR is the index into Netlist.FFRs this node belongs to; -1 for PPI
	// source nodes, which are never FFR members.
	FFR int
}

// FFR is a fanout-free region: a maximal connected set of nodes in which
// every member but the root has exactly one fanout, all lying within the
// region.
type FFR struct {
	Index   int
	Root    NodeID   // the stem or boundary-output node that terminates the region
	Members []NodeID // all nodes in the region, root included, in no particular order
}

// MFFC is a maximal fanout-free cone: an FFR plus every other FFR whose
// entire output fanout is dominated by (falls inside) this cone.
type MFFC struct {
	Index   int
	Root    NodeID
	FFRs    []int    // indices into Netlist.FFRs absorbed into this cone
	Members []NodeID // union of all absorbed FFRs' members
}

// DFFPair records one scan flip-flop's two netlist-visible pins.
type DFFPair struct {
	Name  string
	Input  NodeID // KindDFFIn: the PPO driven combinationally
	Output NodeID // KindDFFOut: the PPI supplying the stored value
}

// Netlist is the immutable graph built by Build. All slices are
// read-only after construction; callers that need mutable per-node state
// (Fsim values, Dtpg CNF variables) keep their own side arrays indexed by
// NodeID.
type Netlist struct {
	Name  string
	Nodes []*Node

	PIs   []NodeID
	POs   []NodeID
	PPIs  []NodeID // PIs ++ DFF outputs, in declaration order
	PPOs  []NodeID // POs ++ DFF inputs, in declaration order
	DFFs  []DFFPair

	ByName map[string]NodeID

	FFRs  []*FFR
	MFFCs []*MFFC

	Faults []*Fault
}

// GateSpec is one row of the parser's intermediate gate list: a named
// node with its fanin operand names, in the order a parser collaborator
// (pkg/parse) produces them.
type GateSpec struct {
	Name   string
	Kind   Kind
	Fanins []string
}

// Description is the typed, parser-produced intermediate form Build
// consumes: PI/PO name lists, DFF pairs (named by the signal driving D
// and the signal sourced from Q) and the ordered gate list.
type Description struct {
	Name    string
	Inputs  []string
	Outputs []string
	DFFs    []DFFDescription
	Gates   []GateSpec
}

// DFFDescription names one DFF's two netlist signals before node ids
// exist.
type DFFDescription struct {
	Name        string
	InputSignal string // net driving the D pin
	OutputSignal string // net sourced from the Q pin
}

// Build constructs an immutable Netlist from a parsed Description,
// performing name resolution, cycle/arity validation, levelization and
// FFR/MFFC partitioning. It is the sole entry point other packages use
// to obtain a Netlist.
func Build(desc Description) (*Netlist, error) {
	nl := &Netlist{
		Name:   desc.Name,
		ByName: make(map[string]NodeID),
	}

	declare := func(name string, kind Kind) NodeID {
		if id, ok := nl.ByName[name]; ok {
			return id
		}
		id := NodeID(len(nl.Nodes))
		nl.Nodes = append(nl.Nodes, &Node{ID: id, Name: name, Kind: kind, FFR: -1})
		nl.ByName[name] = id
		return id
	}

	for _, name := range desc.Inputs {
		id := declare(name, KindPI)
		nl.PIs = append(nl.PIs, id)
		nl.PPIs = append(nl.PPIs, id)
	}
	for _, d := range desc.DFFs {
		out := declare(d.OutputSignal, KindDFFOut)
		nl.PPIs = append(nl.PPIs, out)
	}

	// Gates (incl. boundary POs/DFF-ins, which carry one fanin and are
	// declared the same way) are declared in parser order so fanin names
	// that reference a later gate still resolve once all declarations
	// have run.
	for _, g := range desc.Gates {
		declare(g.Name, g.Kind)
	}
	for _, name := range desc.Outputs {
		if _, ok := nl.ByName[name]; !ok {
			return nil, fmt.Errorf("%w: output %q never driven by any gate", ErrNetlistInvalid, name)
		}
	}
	for _, d := range desc.DFFs {
		if _, ok := nl.ByName[d.InputSignal]; !ok {
			return nil, fmt.Errorf("%w: dff %q input signal %q never driven", ErrNetlistInvalid, d.Name, d.InputSignal)
		}
	}

	// Wire fanin lists, validating arity per kind.
	for _, g := range desc.Gates {
		id := nl.ByName[g.Name]
		n := nl.Nodes[id]
		if err := checkArity(n.Kind, len(g.Fanins)); err != nil {
			return nil, fmt.Errorf("%w: gate %q: %v", ErrNetlistInvalid, g.Name, err)
		}
		for _, faninName := range g.Fanins {
			finID, ok := nl.ByName[faninName]
			if !ok {
				return nil, fmt.Errorf("%w: gate %q references undeclared signal %q", ErrNetlistInvalid, g.Name, faninName)
			}
			n.Fanin = append(n.Fanin, finID)
			fin := nl.Nodes[finID]
			fin.Fanout = append(fin.Fanout, id)
		}
	}

	// Primary outputs and DFF inputs are themselves nodes with one fanin,
	// declared as ordinary gates of kind KindPO/KindDFFIn by the parser;
	// record them on the netlist in declaration order.
	for _, name := range desc.Outputs {
		id := nl.ByName[name]
		if nl.Nodes[id].Kind != KindPO {
			return nil, fmt.Errorf("%w: output %q is not declared as a PO node", ErrNetlistInvalid, name)
		}
		nl.POs = append(nl.POs, id)
		nl.PPOs = append(nl.PPOs, id)
	}
	for _, d := range desc.DFFs {
		id := nl.ByName[d.InputSignal]
		dffIn := nl.Nodes[id]
		if dffIn.Kind != KindDFFIn {
			// Parser emitted the driving gate under its own name; wrap it
			// with a synthetic DFF-input node so the PPO boundary is explicit.
			wrapID := declare(d.Name+"$dff_in", KindDFFIn)
			wrap := nl.Nodes[wrapID]
			wrap.Fanin = []NodeID{id}
			dffIn.Fanout = append(dffIn.Fanout, wrapID)
			id = wrapID
		}
		out := nl.ByName[d.OutputSignal]
		nl.PPOs = append(nl.PPOs, id)
		nl.DFFs = append(nl.DFFs, DFFPair{Name: d.Name, Input: id, Output: out})
	}

	if err := levelize(nl); err != nil {
		return nil, err
	}
	partitionFFRs(nl)
	partitionMFFCs(nl)
	nl.Faults = enumerateFaults(nl)

	return nl, nil
}

func checkArity(k Kind, n int) error {
	switch k {
	case KindPI, KindDFFOut, KindConst0, KindConst1:
		if n != 0 {
			return fmt.Errorf("kind %v takes no fanin, got %d", k, n)
		}
	case KindPO, KindDFFIn, KindBuf, KindNot:
		if n != 1 {
			return fmt.Errorf("kind %v takes exactly one fanin, got %d", k, n)
		}
	case KindAnd, KindNand, KindOr, KindNor, KindXor, KindXnor:
		if n < 2 {
			return fmt.Errorf("kind %v takes at least two fanins, got %d", k, n)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedGate, k)
	}
	return nil
}

// levelize assigns each node a topological level (0 for sources) by
// Kahn's algorithm over the fanin DAG, and returns ErrNetlistInvalid if a
// cycle is detected.
func levelize(nl *Netlist) error {
	indeg := make([]int, len(nl.Nodes))
	for _, n := range nl.Nodes {
		indeg[n.ID] = len(n.Fanin)
	}
	queue := make([]NodeID, 0, len(nl.Nodes))
	for _, n := range nl.Nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		n := nl.Nodes[id]
		for _, fo := range n.Fanout {
			fn := nl.Nodes[fo]
			if fn.Level < n.Level+1 {
				fn.Level = n.Level + 1
			}
			indeg[fo]--
			if indeg[fo] == 0 {
				queue = append(queue, fo)
			}
		}
	}
	if visited != len(nl.Nodes) {
		return fmt.Errorf("%w: netlist contains a combinational cycle", ErrNetlistInvalid)
	}
	return nil
}

// NodeByName resolves a signal name back to a NodeID, for callers
// (Dtpg result reporting, CLI) that need to print results by name.
func (nl *Netlist) NodeByName(name string) (NodeID, bool) {
	id, ok := nl.ByName[name]
	return id, ok
}

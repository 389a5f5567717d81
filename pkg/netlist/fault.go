package netlist

import "fmt"

// FaultKind distinguishes the stuck-at model from the two polarities of
// the transition-delay model.
type FaultKind int

const (
	SA0 FaultKind = iota
	SA1
	TransitionRise // signal must be 0 at t-1, 1 at t
	TransitionFall // signal must be 1 at t-1, 0 at t
)

func (k FaultKind) String() string {
	switch k {
	case SA0:
		return "SA0"
	case SA1:
		return "SA1"
	case TransitionRise:
		return "TR"
	case TransitionFall:
		return "TF"
	default:
		return "?"
	}
}

// Fault names one representative fault site: either the stem of Node (Pin
// == StemPin) or one particular fanout branch of Node (Pin is an index
// into Node.Fanout).
type Fault struct {
	ID   int
	Kind FaultKind
	Node NodeID
	Pin  int
}

// StemPin marks a Fault as sitting on the node's stem rather than one of
// its fanout branches.
const StemPin = -1

func (f *Fault) String() string {
	if f.Pin == StemPin {
		return fmt.Sprintf("%s/%s", faultSiteName(f), f.Kind)
	}
	return fmt.Sprintf("%s(branch %d)/%s", faultSiteName(f), f.Pin, f.Kind)
}

func faultSiteName(f *Fault) string { return fmt.Sprintf("node#%d", f.Node) }

// collapseSA0 and collapseSA1 report whether a branch fault of the given
// polarity entering pin p of a gate of kind k collapses into that gate's
// own output stem fault (of the implied, possibly inverted, polarity),
// and is therefore redundant as a separate representative.
func collapseSA0(k Kind) bool {
	switch k {
	case KindAnd, KindNand, KindBuf, KindNot:
		return true
	default:
		return false
	}
}

func collapseSA1(k Kind) bool {
	switch k {
	case KindOr, KindNor, KindBuf, KindNot:
		return true
	default:
		return false
	}
}

// enumerateFaults derives the representative stuck-at fault list: every
// node contributes a stem SA0/SA1 pair unless its single fanout collapses
// it into that consumer's output fault, and every branch of a
// multiply-fanned-out node contributes its own SA0/SA1 pair subject to
// the same per-gate collapsing rule.
func enumerateFaults(nl *Netlist) []*Fault {
	var faults []*Fault
	next := 0
	add := func(node NodeID, pin int, kind FaultKind) {
		faults = append(faults, &Fault{ID: next, Kind: kind, Node: node, Pin: pin})
		next++
	}

	for _, n := range nl.Nodes {
		switch len(n.Fanout) {
		case 0:
			// Terminal (boundary output) node: always keep both stem faults.
			add(n.ID, StemPin, SA0)
			add(n.ID, StemPin, SA1)
		case 1:
			consumer := nl.Nodes[n.Fanout[0]]
			if !collapseSA0(consumer.Kind) {
				add(n.ID, StemPin, SA0)
			}
			if !collapseSA1(consumer.Kind) {
				add(n.ID, StemPin, SA1)
			}
		default:
			// Multi-fanout stem: the stem fault (affecting every branch at
			// once) is always kept, plus any branch whose collapsing rule
			// does not apply to that particular consumer.
			add(n.ID, StemPin, SA0)
			add(n.ID, StemPin, SA1)
			for idx, fo := range n.Fanout {
				consumer := nl.Nodes[fo]
				if !collapseSA0(consumer.Kind) {
					add(n.ID, idx, SA0)
				}
				if !collapseSA1(consumer.Kind) {
					add(n.ID, idx, SA1)
				}
			}
		}
	}
	return faults
}

// TransitionFaults derives the representative transition-delay fault
// list, using the identical site/collapsing structure as the stuck-at
// list (the equivalence argument for a gate's controlling value applies
// the same way to a slow-to-rise or slow-to-fall transition), computed on
// demand since most callers only need one fault model per run.
func (nl *Netlist) TransitionFaults() []*Fault {
	var faults []*Fault
	next := 0
	add := func(node NodeID, pin int, kind FaultKind) {
		faults = append(faults, &Fault{ID: next, Kind: kind, Node: node, Pin: pin})
		next++
	}
	for _, n := range nl.Nodes {
		switch len(n.Fanout) {
		case 0:
			add(n.ID, StemPin, TransitionRise)
			add(n.ID, StemPin, TransitionFall)
		case 1:
			consumer := nl.Nodes[n.Fanout[0]]
			if !collapseSA0(consumer.Kind) {
				add(n.ID, StemPin, TransitionRise)
			}
			if !collapseSA1(consumer.Kind) {
				add(n.ID, StemPin, TransitionFall)
			}
		default:
			add(n.ID, StemPin, TransitionRise)
			add(n.ID, StemPin, TransitionFall)
			for idx, fo := range n.Fanout {
				consumer := nl.Nodes[fo]
				if !collapseSA0(consumer.Kind) {
					add(n.ID, idx, TransitionRise)
				}
				if !collapseSA1(consumer.Kind) {
					add(n.ID, idx, TransitionFall)
				}
			}
		}
	}
	return faults
}

// FaultByID looks a fault up by its position in Netlist.Faults, returning
// ErrFaultSiteInvalid if out of range.
func (nl *Netlist) FaultByID(id int) (*Fault, error) {
	if id < 0 || id >= len(nl.Faults) {
		return nil, fmt.Errorf("%w: fault id %d out of range [0,%d)", ErrFaultSiteInvalid, id, len(nl.Faults))
	}
	return nl.Faults[id], nil
}

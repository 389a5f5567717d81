package dtpg

import (
	"sort"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

// JustifyPolicy selects the order in which the Justifier tries to widen
// a fully-specified test vector's don't-care set.
type JustifyPolicy int

const (
	// Just1 tries PPIs in netlist declaration order: cheap, no sorting.
	Just1 JustifyPolicy = iota
	// Just2 sorts PPIs by the difference between their level and the
	// fault site's level before trying them. Every PPI is a source at
	// level 0, so that key is equal for all PPIs and the resulting order
	// is not defined; it is not a structural distance from the site.
	Just2
)

// Justify takes a fully-specified TestVector known to detect f (as
// extracted from a SAT model) and greedily relaxes PPI assignments to X
// wherever doing so still leaves the fault detected, verified against
// sim. The result is the "sufficient condition" spec.md's data model
// names: the minimal set of PPI assignments actually required.
func Justify(sim *fsim.Fsim, nl *netlist.Netlist, f *netlist.Fault, tv *netlist.TestVector, policy JustifyPolicy) *netlist.TestVector {
	order := justifyOrder(nl, f, policy)
	relaxed := &netlist.TestVector{Values: make(map[netlist.NodeID]value.Value3, len(tv.Values))}
	for id, v := range tv.Values {
		relaxed.Values[id] = v
	}

	for _, id := range order {
		saved := relaxed.Values[id]
		if !saved.Defined() {
			continue
		}
		relaxed.Values[id] = value.X
		if !sim.Verify(f, relaxed) {
			relaxed.Values[id] = saved
		}
	}
	return relaxed
}

func justifyOrder(nl *netlist.Netlist, f *netlist.Fault, policy JustifyPolicy) []netlist.NodeID {
	order := make([]netlist.NodeID, len(nl.PPIs))
	copy(order, nl.PPIs)
	if policy == Just1 {
		return order
	}

	site := f.Node
	if f.Pin != netlist.StemPin {
		site = nl.Nodes[f.Node].Fanout[f.Pin]
	}
	siteLevel := nl.Nodes[site].Level
	sort.Slice(order, func(i, j int) bool {
		di := abs(nl.Nodes[order[i]].Level - siteLevel)
		dj := abs(nl.Nodes[order[j]].Level - siteLevel)
		return di < dj
	})
	return order
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package dtpg

import (
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/satsolver"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

// Extract reads every PPI's good-copy solver variable out of a
// satisfying model and returns the sufficient-condition TestVector it
// represents. Every PPI is expected to carry a defined value once the
// solver has converged, since the DPLL branches until all variables are
// assigned; a PPI left undefined is reported as X rather than treated
// as an error, since a caller-supplied solver need not share that
// property.
func Extract(nl *netlist.Netlist, vids *VidMap, solver satsolver.Solver) *netlist.TestVector {
	tv := netlist.NewTestVector(nl)
	for _, id := range nl.PPIs {
		v, ok := vids.Good[id]
		if !ok {
			continue
		}
		b, defined := solver.Value(v)
		if !defined {
			continue
		}
		tv.Set(id, value.FromBool(b))
	}
	return tv
}

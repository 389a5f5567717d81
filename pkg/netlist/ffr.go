package netlist

import "sort"

// partitionFFRs assigns every non-PPI node to a fanout-free region.
// A node starts a new FFR (becomes a root) when it is a boundary output
// (PO/DFF-in) or has fanout other than exactly one; any node with a
// single fanout joins that fanout's FFR. Processing nodes from the
// highest level down guarantees a node's fanout has already been
// assigned by the time the node itself is visited.
//
// Const0/Const1 are skipped here alongside PI/PPI because they share the
// no-fanin IsSource predicate; unlike PI/PPI they are not pseudo-primary
// inputs under spec's NonPPI(N), so the union of FFRs omits them, and
// ⋃ FFR_i is NonPPI(N) minus constant nodes rather than exactly NonPPI(N).
// Constant nodes still get stem faults from enumerateFaults; like PPI
// faults, those carry FFR index -1.
func partitionFFRs(nl *Netlist) {
	order := make([]NodeID, 0, len(nl.Nodes))
	for _, n := range nl.Nodes {
		if n.Kind.IsSource() {
			continue
		}
		order = append(order, n.ID)
	}
	sort.Slice(order, func(i, j int) bool {
		return nl.Nodes[order[i]].Level > nl.Nodes[order[j]].Level
	})

	for _, id := range order {
		n := nl.Nodes[id]
		isRoot := n.Kind.IsBoundaryOutput() || len(n.Fanout) != 1
		if isRoot {
			idx := len(nl.FFRs)
			f := &FFR{Index: idx, Root: id}
			nl.FFRs = append(nl.FFRs, f)
			n.FFR = idx
		} else {
			fo := nl.Nodes[n.Fanout[0]]
			n.FFR = fo.FFR
		}
		nl.FFRs[n.FFR].Members = append(nl.FFRs[n.FFR].Members, id)
	}
}

// partitionMFFCs absorbs each FFR into the cone of the nearest FFR whose
// output fully dominates it: starting from every FFR root (processed
// output-first, i.e. highest level first, so a root's own cone is
// resolved before it can be absorbed by anything closer to the outputs),
// walk the external fanins feeding the cone and swallow any fanin FFR
// whose own output fans out entirely within the cone so far.
func partitionMFFCs(nl *Netlist) {
	absorbed := make([]bool, len(nl.FFRs))
	inCone := make([]bool, len(nl.Nodes))

	rootOrder := make([]int, len(nl.FFRs))
	for i := range rootOrder {
		rootOrder[i] = i
	}
	sort.Slice(rootOrder, func(i, j int) bool {
		return nl.Nodes[nl.FFRs[rootOrder[i]].Root].Level > nl.Nodes[nl.FFRs[rootOrder[j]].Root].Level
	})

	for _, ffrIdx := range rootOrder {
		if absorbed[ffrIdx] {
			continue
		}
		ffr := nl.FFRs[ffrIdx]
		m := &MFFC{Index: len(nl.MFFCs), Root: ffr.Root}

		for _, id := range ffr.Members {
			inCone[id] = true
		}
		m.Members = append(m.Members, ffr.Members...)
		m.FFRs = append(m.FFRs, ffrIdx)
		absorbed[ffrIdx] = true

		frontier := externalFanins(nl, ffr.Members, inCone)
		for len(frontier) > 0 {
			cand := frontier[0]
			frontier = frontier[1:]
			n := nl.Nodes[cand]
			if n.Kind.IsSource() {
				continue // PPIs are never absorbed; they remain cone boundary inputs
			}
			if absorbed[n.FFR] {
				continue
			}
			if !allFanoutsInCone(nl, cand, inCone) {
				continue
			}
			candFFR := nl.FFRs[n.FFR]
			for _, id := range candFFR.Members {
				inCone[id] = true
			}
			m.Members = append(m.Members, candFFR.Members...)
			m.FFRs = append(m.FFRs, n.FFR)
			absorbed[n.FFR] = true
			frontier = append(frontier, externalFanins(nl, candFFR.Members, inCone)...)
		}

		nl.MFFCs = append(nl.MFFCs, m)
	}
}

// externalFanins returns, for a set of already-in-cone members, the
// distinct fanin nodes lying outside the cone.
func externalFanins(nl *Netlist, members []NodeID, inCone []bool) []NodeID {
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, id := range members {
		for _, fin := range nl.Nodes[id].Fanin {
			if inCone[fin] || seen[fin] {
				continue
			}
			seen[fin] = true
			out = append(out, fin)
		}
	}
	return out
}

// allFanoutsInCone reports whether every fanout edge of node id lands on
// a node already marked in-cone, meaning id's signal is fully consumed
// inside the cone and can be absorbed.
func allFanoutsInCone(nl *Netlist, id NodeID, inCone []bool) bool {
	for _, fo := range nl.Nodes[id].Fanout {
		if !inCone[fo] {
			return false
		}
	}
	return true
}

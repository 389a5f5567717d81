package netlist

import (
	"sort"
	"strings"

	"github.com/fyerfyer/druid-atpg/pkg/value"
)

// TestVector holds a full PPI assignment for one capture cycle, plus,
// for transition faults, the previous cycle's assignment needed to set
// up the launch value. Assignments are keyed by PPI NodeID rather than
// position so a vector can be built incrementally during justification.
type TestVector struct {
	Values map[NodeID]value.Value3
	// Aux holds the t-1 assignment (the "previous vector" of a two-pattern
	// transition-fault test); nil for stuck-at tests.
	Aux map[NodeID]value.Value3
}

// NewTestVector returns an all-X vector for every PPI of nl.
func NewTestVector(nl *Netlist) *TestVector {
	tv := &TestVector{Values: make(map[NodeID]value.Value3, len(nl.PPIs))}
	for _, id := range nl.PPIs {
		tv.Values[id] = value.X
	}
	return tv
}

// Set assigns a PPI's current-cycle value.
func (tv *TestVector) Set(id NodeID, v value.Value3) { tv.Values[id] = v }

// SetAux assigns a PPI's previous-cycle value, allocating Aux lazily.
func (tv *TestVector) SetAux(id NodeID, v value.Value3) {
	if tv.Aux == nil {
		tv.Aux = make(map[NodeID]value.Value3)
	}
	tv.Aux[id] = v
}

// Get returns the current-cycle value of a PPI, X if unassigned.
func (tv *TestVector) Get(id NodeID) value.Value3 {
	if v, ok := tv.Values[id]; ok {
		return v
	}
	return value.X
}

// Compatible reports whether tv and other agree on every PPI where both
// are defined; X is compatible with anything.
func (tv *TestVector) Compatible(other *TestVector) bool {
	for id, v := range tv.Values {
		if !v.Defined() {
			continue
		}
		if ov, ok := other.Values[id]; ok && ov.Defined() && ov != v {
			return false
		}
	}
	return true
}

// Merge overlays other's defined assignments onto tv's X slots, in
// place.
func (tv *TestVector) Merge(other *TestVector) {
	for id, v := range other.Values {
		if !v.Defined() {
			continue
		}
		if cur, ok := tv.Values[id]; !ok || !cur.Defined() {
			tv.Values[id] = v
		}
	}
}

// String renders the vector as "name=v" pairs in PPI declaration order
// relative to nl, for test-vector file output.
func (tv *TestVector) String(nl *Netlist) string {
	var sb strings.Builder
	ids := make([]NodeID, 0, len(nl.PPIs))
	ids = append(ids, nl.PPIs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(nl.Nodes[id].Name)
		sb.WriteByte('=')
		sb.WriteString(tv.Get(id).String())
	}
	return sb.String()
}

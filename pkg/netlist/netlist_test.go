package netlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
)

// twoGateDesc builds in1,in2 -> AND -> w1; w1,in2 -> OR -> out, a small
// fixed shape reused across several cases below.
func twoGateDesc() netlist.Description {
	return netlist.Description{
		Name:    "two_gate",
		Inputs:  []string{"in1", "in2"},
		Outputs: []string{"out"},
		Gates: []netlist.GateSpec{
			{Name: "w1", Kind: netlist.KindAnd, Fanins: []string{"in1", "in2"}},
			{Name: "out", Kind: netlist.KindPO, Fanins: []string{"w1_or"}},
			{Name: "w1_or", Kind: netlist.KindOr, Fanins: []string{"w1", "in2"}},
		},
	}
}

func TestBuildTwoGate(t *testing.T) {
	nl, err := netlist.Build(twoGateDesc())
	require.NoError(t, err)

	require.Len(t, nl.PIs, 2)
	require.Len(t, nl.POs, 1)

	w1, ok := nl.NodeByName("w1")
	require.True(t, ok)
	assert.Equal(t, netlist.KindAnd, nl.Nodes[w1].Kind)
	assert.Len(t, nl.Nodes[w1].Fanin, 2)
}

func TestBuildRejectsUndeclaredFanin(t *testing.T) {
	desc := netlist.Description{
		Name:    "bad",
		Inputs:  []string{"in1"},
		Outputs: []string{"out"},
		Gates: []netlist.GateSpec{
			{Name: "out", Kind: netlist.KindPO, Fanins: []string{"ghost"}},
		},
	}
	_, err := netlist.Build(desc)
	require.Error(t, err)
	assert.ErrorIs(t, err, netlist.ErrNetlistInvalid)
}

func TestBuildRejectsBadArity(t *testing.T) {
	desc := netlist.Description{
		Name:    "bad_arity",
		Inputs:  []string{"in1"},
		Outputs: []string{"out"},
		Gates: []netlist.GateSpec{
			{Name: "out", Kind: netlist.KindPO, Fanins: []string{"in1", "in1"}},
		},
	}
	_, err := netlist.Build(desc)
	require.Error(t, err)
	assert.ErrorIs(t, err, netlist.ErrNetlistInvalid)
}

func TestFFRPartitioning(t *testing.T) {
	// in1 -> w1 (fanout 2) -> {o1, o2_and}; each non-stem node joins its
	// unique consumer's FFR, so w1 itself roots a region, o1 roots its own
	// (it is a PO) and o2_and joins the region rooted at the PO o2.
	desc := netlist.Description{
		Name:    "fanout_stem",
		Inputs:  []string{"in1", "in2"},
		Outputs: []string{"o1", "o2"},
		Gates: []netlist.GateSpec{
			{Name: "w1", Kind: netlist.KindNot, Fanins: []string{"in1"}},
			{Name: "o1", Kind: netlist.KindPO, Fanins: []string{"w1"}},
			{Name: "o2_and", Kind: netlist.KindAnd, Fanins: []string{"w1", "in2"}},
			{Name: "o2", Kind: netlist.KindPO, Fanins: []string{"o2_and"}},
		},
	}
	nl, err := netlist.Build(desc)
	require.NoError(t, err)

	w1, _ := nl.NodeByName("w1")
	require.Len(t, nl.Nodes[w1].Fanout, 2, "w1 should fan out to both o1 and o2_and")

	// w1 has fanout 2, so it is itself an FFR root, distinct from the
	// regions rooted at o1 and o2.
	assert.True(t, len(nl.FFRs) >= 3)
}

func TestMFFCAbsorbsSingleFanoutChain(t *testing.T) {
	desc := netlist.Description{
		Name:    "chain",
		Inputs:  []string{"in1"},
		Outputs: []string{"out"},
		Gates: []netlist.GateSpec{
			{Name: "w1", Kind: netlist.KindNot, Fanins: []string{"in1"}},
			{Name: "w2", Kind: netlist.KindNot, Fanins: []string{"w1"}},
			{Name: "out", Kind: netlist.KindPO, Fanins: []string{"w2"}},
		},
	}
	nl, err := netlist.Build(desc)
	require.NoError(t, err)

	require.Len(t, nl.MFFCs, 1, "a pure chain with no reconvergence collapses to one MFFC")
	assert.Len(t, nl.MFFCs[0].Members, 3)
}

func TestFaultCollapsingDropsRedundantBranch(t *testing.T) {
	nl, err := netlist.Build(twoGateDesc())
	require.NoError(t, err)

	in1, _ := nl.NodeByName("in1")
	var sawStemSA0 bool
	for _, f := range nl.Faults {
		if f.Node == in1 && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			sawStemSA0 = true
		}
	}
	// in1 feeds only the AND gate w1 (fanout 1); AND input SA0 collapses
	// into w1's own output SA0, so in1's stem SA0 should not be a
	// separate representative.
	assert.False(t, sawStemSA0, "in1 stem SA0 should collapse into w1 output SA0")
}

func TestTransitionFaultsMirrorStructure(t *testing.T) {
	nl, err := netlist.Build(twoGateDesc())
	require.NoError(t, err)

	tfs := nl.TransitionFaults()
	assert.Equal(t, len(nl.Faults), len(tfs), "transition and stuck-at site counts match for this shape")
	for _, f := range tfs {
		assert.True(t, f.Kind == netlist.TransitionRise || f.Kind == netlist.TransitionFall)
	}
}

func TestDFFPairing(t *testing.T) {
	desc := netlist.Description{
		Name:    "seq",
		Inputs:  []string{"clk_in"},
		Outputs: []string{"obs"},
		DFFs: []netlist.DFFDescription{
			{Name: "ff1", InputSignal: "d_sig", OutputSignal: "q_sig"},
		},
		Gates: []netlist.GateSpec{
			{Name: "d_sig", Kind: netlist.KindBuf, Fanins: []string{"q_sig"}},
			{Name: "obs", Kind: netlist.KindPO, Fanins: []string{"clk_in"}},
		},
	}
	nl, err := netlist.Build(desc)
	require.NoError(t, err)
	require.Len(t, nl.DFFs, 1)

	qID, ok := nl.NodeByName("q_sig")
	require.True(t, ok)
	assert.Contains(t, nl.PPIs, qID)
	assert.Contains(t, nl.PPOs, nl.DFFs[0].Input)
}

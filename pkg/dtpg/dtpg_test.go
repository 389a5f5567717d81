package dtpg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/dtpg"
	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
)

func buildSmallNetlist(t *testing.T) *netlist.Netlist {
	t.Helper()
	nl, err := netlist.Build(netlist.Description{
		Name:    "small",
		Inputs:  []string{"a", "b", "c"},
		Outputs: []string{"y"},
		Gates: []netlist.GateSpec{
			{Name: "w1", Kind: netlist.KindAnd, Fanins: []string{"a", "b"}},
			{Name: "w2", Kind: netlist.KindOr, Fanins: []string{"w1", "c"}},
			{Name: "y", Kind: netlist.KindPO, Fanins: []string{"w2"}},
		},
	})
	require.NoError(t, err)
	return nl
}

func findFault(t *testing.T, nl *netlist.Netlist, nodeName string, kind netlist.FaultKind, pin int) *netlist.Fault {
	t.Helper()
	id, ok := nl.NodeByName(nodeName)
	require.True(t, ok)
	for _, f := range nl.Faults {
		if f.Node == id && f.Kind == kind && f.Pin == pin {
			return f
		}
	}
	require.Failf(t, "fault not found", "%s/%v pin=%d", nodeName, kind, pin)
	return nil
}

func TestGenerateDetectsStemFault(t *testing.T) {
	nl := buildSmallNetlist(t)
	f := findFault(t, nl, "w1", netlist.SA0, netlist.StemPin)

	d := dtpg.New(nl, dtpg.DefaultConfig())
	v, err := d.Generate(context.Background(), f)
	require.NoError(t, err)
	require.True(t, v.Detected)
	require.NotNil(t, v.Vector)

	sim := fsim.New(nl)
	assert.True(t, sim.Verify(f, v.Vector), "generated vector must verify under independent simulation")
}

func TestGenerateAllCoversEveryFault(t *testing.T) {
	nl := buildSmallNetlist(t)
	d := dtpg.New(nl, dtpg.DefaultConfig())

	verdicts, err := d.GenerateAll(context.Background(), nl.Faults)
	require.NoError(t, err)
	assert.Len(t, verdicts, len(nl.Faults))
	for _, v := range verdicts {
		if v.Detected {
			assert.NotNil(t, v.Vector)
		}
	}
}

func TestUntestableHookInvokedOnRedundantFault(t *testing.T) {
	// A 1-input AND (degenerates to a buffer via collapsing) has no
	// redundant fault by construction here, so instead verify the hook
	// fires for a fault that this tiny CNF cannot satisfy: stuck-at on a
	// constant-tied line. We synthesize one directly via a const gate.
	nl, err := netlist.Build(netlist.Description{
		Name:    "const_net",
		Inputs:  []string{"a"},
		Outputs: []string{"y"},
		Gates: []netlist.GateSpec{
			{Name: "zero", Kind: netlist.KindConst0},
			{Name: "w", Kind: netlist.KindAnd, Fanins: []string{"a", "zero"}},
			{Name: "y", Kind: netlist.KindPO, Fanins: []string{"w"}},
		},
	})
	require.NoError(t, err)

	var untestable []netlist.Fault
	cfg := dtpg.DefaultConfig()
	cfg.OnUntestable = func(f *netlist.Fault, reason dtpg.UntestableReason) {
		untestable = append(untestable, *f)
	}
	d := dtpg.New(nl, cfg)

	wFault := findFault(t, nl, "w", netlist.SA0, netlist.StemPin)
	v, err := d.Generate(context.Background(), wFault)
	require.NoError(t, err)
	assert.False(t, v.Detected, "w is always 0 since one input is tied to the constant 0, so SA0 is redundant")
	assert.NotEmpty(t, untestable)
}

func TestJustifyRelaxesIrrelevantInputs(t *testing.T) {
	// d is a PPI with no fanout at all, so it can never affect detection
	// and the justifier must be free to leave it unassigned.
	nl, err := netlist.Build(netlist.Description{
		Name:    "small_with_dont_care",
		Inputs:  []string{"a", "b", "c", "d"},
		Outputs: []string{"y"},
		Gates: []netlist.GateSpec{
			{Name: "w1", Kind: netlist.KindAnd, Fanins: []string{"a", "b"}},
			{Name: "w2", Kind: netlist.KindOr, Fanins: []string{"w1", "c"}},
			{Name: "y", Kind: netlist.KindPO, Fanins: []string{"w2"}},
		},
	})
	require.NoError(t, err)
	f := findFault(t, nl, "w1", netlist.SA0, netlist.StemPin)

	d := dtpg.New(nl, dtpg.DefaultConfig())
	v, err := d.Generate(context.Background(), f)
	require.NoError(t, err)
	require.True(t, v.Detected)

	dID, _ := nl.NodeByName("d")
	assert.False(t, v.Vector.Get(dID).Defined(), "d has no fanout, so it should be justified away to X")

	sim := fsim.New(nl)
	assert.True(t, sim.Verify(f, v.Vector), "the justified vector must still detect the fault")
}

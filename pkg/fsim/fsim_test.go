package fsim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

func buildAndOrNetlist(t *testing.T) *netlist.Netlist {
	t.Helper()
	nl, err := netlist.Build(netlist.Description{
		Name:    "ao",
		Inputs:  []string{"a", "b"},
		Outputs: []string{"y"},
		Gates: []netlist.GateSpec{
			{Name: "w", Kind: netlist.KindAnd, Fanins: []string{"a", "b"}},
			{Name: "y", Kind: netlist.KindPO, Fanins: []string{"w"}},
		},
	})
	require.NoError(t, err)
	return nl
}

func TestSimulateGoodBasic(t *testing.T) {
	nl := buildAndOrNetlist(t)
	fs := fsim.New(nl)

	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")
	y, _ := nl.NodeByName("y")

	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.One)
	tv.Set(b, value.One)

	ppi := fsim.PackVectors(nl, []*netlist.TestVector{tv})
	good := fs.SimulateGood(ppi)
	assert.Equal(t, value.One, good[y].Lane(0))
}

func TestPPSFPDetectsStemFault(t *testing.T) {
	nl := buildAndOrNetlist(t)
	fs := fsim.New(nl)

	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")

	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.One)
	tv.Set(b, value.One)

	ppi := fsim.PackVectors(nl, []*netlist.TestVector{tv})
	fs.SimulateGood(ppi)

	var target *netlist.Fault
	w, _ := nl.NodeByName("w")
	for _, f := range nl.Faults {
		if f.Node == w && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			target = f
		}
	}
	require.NotNil(t, target, "w/SA0 should be a representative fault")

	dets := fs.PPSFP([]*netlist.Fault{target}, 1)
	require.Len(t, dets, 1)
	assert.NotZero(t, dets[0].Mask&1, "a=1,b=1 should detect w stuck-at-0")
}

func TestPPSFPNoDetectionOnNonActivatingPattern(t *testing.T) {
	nl := buildAndOrNetlist(t)
	fs := fsim.New(nl)

	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")
	w, _ := nl.NodeByName("w")

	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.Zero)
	tv.Set(b, value.One)

	ppi := fsim.PackVectors(nl, []*netlist.TestVector{tv})
	fs.SimulateGood(ppi)

	var target *netlist.Fault
	for _, f := range nl.Faults {
		if f.Node == w && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			target = f
		}
	}
	require.NotNil(t, target)

	dets := fs.PPSFP([]*netlist.Fault{target}, 1)
	assert.Zero(t, dets[0].Mask&1, "w is already 0 when a=0, so SA0 cannot be detected")
}

func TestSPPFPAgreesWithPPSFP(t *testing.T) {
	nl := buildAndOrNetlist(t)
	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")
	w, _ := nl.NodeByName("w")

	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.One)
	tv.Set(b, value.One)

	var target *netlist.Fault
	for _, f := range nl.Faults {
		if f.Node == w && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			target = f
		}
	}
	require.NotNil(t, target)

	ppsfpSim := fsim.New(nl)
	ppi := fsim.PackVectors(nl, []*netlist.TestVector{tv})
	ppsfpSim.SimulateGood(ppi)
	ppsfpDets := ppsfpSim.PPSFP([]*netlist.Fault{target}, 1)

	sppfpSim := fsim.New(nl)
	sppfpDets := sppfpSim.SPPFP([]*netlist.Fault{target}, tv)

	assert.NotZero(t, ppsfpDets[0].Mask&1, "a=1,b=1 should detect w stuck-at-0 under PPSFP")
	assert.Equal(t, ppsfpDets[0].Mask&1, sppfpDets[0].Mask&1)
}

func TestVerify(t *testing.T) {
	nl := buildAndOrNetlist(t)
	fs := fsim.New(nl)
	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")
	w, _ := nl.NodeByName("w")

	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.One)
	tv.Set(b, value.One)

	var target *netlist.Fault
	for _, f := range nl.Faults {
		if f.Node == w && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			target = f
		}
	}
	require.NotNil(t, target)
	assert.True(t, fs.Verify(target, tv))
}

package fsim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

func buildTinyNetlist(t *testing.T) *netlist.Netlist {
	t.Helper()
	nl, err := netlist.Build(netlist.Description{
		Name:    "tiny",
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

func TestVerifierConfirmsGenuineClaims(t *testing.T) {
	nl := buildTinyNetlist(t)
	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")
	wID, _ := nl.NodeByName("w")

	var wFault *netlist.Fault
	for _, f := range nl.Faults {
		if f.Node == wID && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			wFault = f
		}
	}
	require.NotNil(t, wFault)

	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.One)
	tv.Set(b, value.One)

	v := fsim.NewVerifier(nl)
	report := v.Verify([]fsim.Claim{{Fault: wFault, Vector: tv}})
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Checked)
}

func TestVerifierRejectsFalseClaim(t *testing.T) {
	nl := buildTinyNetlist(t)
	a, _ := nl.NodeByName("a")
	b, _ := nl.NodeByName("b")
	wID, _ := nl.NodeByName("w")

	var wFault *netlist.Fault
	for _, f := range nl.Faults {
		if f.Node == wID && f.Kind == netlist.SA0 && f.Pin == netlist.StemPin {
			wFault = f
		}
	}
	require.NotNil(t, wFault)

	// a=1, b=0 drives w to 0 already, so SA0 on w cannot be detected here.
	tv := netlist.NewTestVector(nl)
	tv.Set(a, value.One)
	tv.Set(b, value.Zero)

	v := fsim.NewVerifier(nl)
	report := v.Verify([]fsim.Claim{{Fault: wFault, Vector: tv}})
	assert.False(t, report.OK())
	assert.Len(t, report.Failed, 1)
}

func TestVerifierSkipsUnclaimedVerdicts(t *testing.T) {
	nl := buildTinyNetlist(t)
	v := fsim.NewVerifier(nl)
	report := v.Verify([]fsim.Claim{{Fault: nl.Faults[0], Vector: nil}})
	assert.True(t, report.OK())
	assert.Equal(t, 0, report.Checked)
}

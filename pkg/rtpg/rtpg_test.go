package rtpg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/fsim"
	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/rtpg"
)

func buildNetlist(t *testing.T) *netlist.Netlist {
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

func TestRunDetectsFaultsAndEveryDetectionVerifies(t *testing.T) {
	nl := buildNetlist(t)
	res := rtpg.Run(nl, nl.Faults, rtpg.Config{Seed: 42, Rounds: 16})

	require.NotEmpty(t, res.Detected, "a 3-input circuit should be fully exercised by 1024 random patterns")

	sim := fsim.New(nl)
	for _, det := range res.Detected {
		vec := res.Patterns[det.PatternIndex]
		assert.True(t, sim.Verify(det.Fault, vec), "recorded detection must verify independently")
	}
}

func TestRemainingExcludesDetectedFaults(t *testing.T) {
	nl := buildNetlist(t)
	res := rtpg.Run(nl, nl.Faults, rtpg.Config{Seed: 7, Rounds: 16})
	remaining := res.Remaining(nl.Faults)
	for _, f := range remaining {
		_, detected := res.Detected[f.ID]
		assert.False(t, detected)
	}
	assert.Len(t, remaining, len(nl.Faults)-len(res.Detected))
}

func TestRunWithEmptyFaultListReturnsImmediately(t *testing.T) {
	nl := buildNetlist(t)
	res := rtpg.Run(nl, nil, rtpg.DefaultConfig())
	assert.Empty(t, res.Detected)
	assert.Empty(t, res.Patterns)
}

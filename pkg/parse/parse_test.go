package parse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBenchParsesCombinational(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c17.bench", `
# tiny combinational example
INPUT(a)
INPUT(b)
INPUT(c)
OUTPUT(y)
n1 = AND(a, b)
n2 = OR(n1, c)
y = NOT(n2)
`)

	nl, err := Bench(path)
	require.NoError(t, err)
	require.Len(t, nl.PIs, 3)
	require.Len(t, nl.POs, 1)
	require.Empty(t, nl.DFFs)
}

func TestBenchParsesDFF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "b01.bench", `
INPUT(clk)
INPUT(reset)
OUTPUT(out)
q1 = DFF(d1)
d1 = AND(clk, reset)
out = NOT(q1)
`)

	nl, err := Bench(path)
	require.NoError(t, err)
	require.Len(t, nl.DFFs, 1)
	require.Contains(t, nl.ByName, "q1")
	require.Len(t, nl.PPIs, 3) // clk, reset, q1
}

func TestBenchUnsupportedGateIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.bench", `
INPUT(a)
OUTPUT(y)
y = MUX(a)
`)
	_, err := Bench(path)
	require.ErrorIs(t, err, netlist.ErrUnsupportedGate)
}

func TestBenchMissingFileIsIOError(t *testing.T) {
	_, err := Bench(filepath.Join(t.TempDir(), "does_not_exist.bench"))
	require.ErrorIs(t, err, ErrIO)
}

func TestBlifParsesAndNamesCover(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s27.blif", `
.model s27
.inputs a b c
.outputs y z
.names a b n1
11 1
.names n1 c y
1- 1
-1 1
.names a z
0 1
.end
`)
	nl, err := Blif(path)
	require.NoError(t, err)
	require.Len(t, nl.PIs, 3)
	require.Len(t, nl.POs, 2)

	poNode := nl.Nodes[nl.ByName["y$po"]]
	require.Equal(t, netlist.KindPO, poNode.Kind)
	require.Equal(t, netlist.KindOr, nl.Nodes[nl.ByName["y"]].Kind)
	require.Equal(t, netlist.KindNot, nl.Nodes[nl.ByName["z"]].Kind)
}

func TestBlifParsesLatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dff.blif", `
.model dff_chain
.inputs d clk
.outputs q
.latch d q
.end
`)
	nl, err := Blif(path)
	require.NoError(t, err)
	require.Len(t, nl.DFFs, 1)
}

func TestClassifyCoverRecognizesStandardGates(t *testing.T) {
	cases := []struct {
		name   string
		n      int
		cover  []coverRow
		want   netlist.Kind
	}{
		{"and2", 2, []coverRow{{lits: []byte("11"), out: '1'}}, netlist.KindAnd},
		{"or2", 2, []coverRow{{lits: []byte("1-"), out: '1'}, {lits: []byte("-1"), out: '1'}}, netlist.KindOr},
		{"xor2", 2, []coverRow{{lits: []byte("10"), out: '1'}, {lits: []byte("01"), out: '1'}}, netlist.KindXor},
		{"not1", 1, []coverRow{{lits: []byte("0"), out: '1'}}, netlist.KindNot},
		{"buf1", 1, []coverRow{{lits: []byte("1"), out: '1'}}, netlist.KindBuf},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			kind, _, err := classifyCover(c.n, c.cover)
			require.NoError(t, err)
			require.Equal(t, c.want, kind)
		})
	}
}

// Package parse turns the two netlist file formats spec.md §6 names,
// BLIF and ISCAS-89 bench, into the netlist.Description the Netlist
// builder consumes. Both readers make a single line-by-line scan that
// collects inputs, outputs, DFFs and gates; fanin names are resolved
// later, by netlist.Build.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
)

// ErrIO is spec.md §7's IoError: a file could not be read. It is
// distinct from netlist.ErrNetlistInvalid, which reports a structural
// problem in content that was read successfully.
var ErrIO = errors.New("parse: io error")

// gateKindByName maps the textual gate keyword used by both BENCH and
// (after cover classification) BLIF into a netlist.Kind.
func gateKindByName(name string) (netlist.Kind, bool) {
	switch strings.ToUpper(name) {
	case "BUF", "BUFF":
		return netlist.KindBuf, true
	case "NOT", "INV":
		return netlist.KindNot, true
	case "AND":
		return netlist.KindAnd, true
	case "NAND":
		return netlist.KindNand, true
	case "OR":
		return netlist.KindOr, true
	case "NOR":
		return netlist.KindNor, true
	case "XOR":
		return netlist.KindXor, true
	case "XNOR", "NXOR":
		return netlist.KindXnor, true
	default:
		return 0, false
	}
}

// poWrapperName derives the synthetic PO marker node name for a primary
// output on signal sig, mirroring netlist.Build's own "$dff_in" wrapping
// convention for DFF inputs (see netlist.Build).
func poWrapperName(sig string) string { return sig + "$po" }

// builder accumulates a netlist.Description while a file is scanned; it
// records fanin names as given and does not resolve them.
type builder struct {
	name    string
	inputs  []string
	outputs []string
	dffs    []netlist.DFFDescription
	gates   []netlist.GateSpec
	seen    map[string]bool
}

func newBuilder(name string) *builder {
	return &builder{name: name, seen: make(map[string]bool)}
}

func (b *builder) addInput(sig string) {
	if b.seen[sig] {
		return
	}
	b.seen[sig] = true
	b.inputs = append(b.inputs, sig)
}

// addOutput records sig as a primary output, wiring in the synthetic PO
// node netlist.Build expects to find under poWrapperName(sig).
func (b *builder) addOutput(sig string) {
	wrapper := poWrapperName(sig)
	b.outputs = append(b.outputs, wrapper)
	b.gates = append(b.gates, netlist.GateSpec{Name: wrapper, Kind: netlist.KindPO, Fanins: []string{sig}})
}

// addDFF records one scan flip-flop: qSig is the pseudo-PI sourced from
// Q, dSig is the net feeding D.
func (b *builder) addDFF(name, dSig, qSig string) {
	b.dffs = append(b.dffs, netlist.DFFDescription{Name: name, InputSignal: dSig, OutputSignal: qSig})
}

func (b *builder) addGate(name string, kind netlist.Kind, fanins []string) {
	b.gates = append(b.gates, netlist.GateSpec{Name: name, Kind: kind, Fanins: fanins})
}

func (b *builder) description() netlist.Description {
	return netlist.Description{
		Name:    b.name,
		Inputs:  b.inputs,
		Outputs: b.outputs,
		DFFs:    b.dffs,
		Gates:   b.gates,
	}
}

func trimModelName(filename string) string {
	base := filename
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	for _, suffix := range []string{".bench", ".blif", ".iscas"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// Describe builds a Netlist directly from a Description, the thin
// convenience wrapper both Bench and Blif end with.
func Describe(desc netlist.Description) (*netlist.Netlist, error) {
	nl, err := netlist.Build(desc)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return nl, nil
}

package parse

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
)

// Blif parses a (single-model, combinational-cover) BLIF file into a
// netlist.Netlist. `.names` covers are classified against the standard
// gate functions (buf/not/and/or/nand/nor/xor/xnor, any arity) by
// evaluating the cover as a truth table; a cover that matches none of
// them is reported via netlist.ErrUnsupportedGate, since this package
// implements gate kernels, not an arbitrary-LUT evaluator.
func Blif(filename string) (*netlist.Netlist, error) {
	desc, err := BlifDescription(filename)
	if err != nil {
		return nil, err
	}
	return Describe(desc)
}

// BlifDescription parses filename into the intermediate Description.
func BlifDescription(filename string) (netlist.Description, error) {
	file, err := os.Open(filename)
	if err != nil {
		return netlist.Description{}, fmt.Errorf("%w: blif: open %q: %v", ErrIO, filename, err)
	}
	defer file.Close()

	lines, err := joinContinuations(file)
	if err != nil {
		return netlist.Description{}, err
	}

	b := newBuilder(trimModelName(filename))
	dffCounter := 0

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case ".model":
			if len(fields) > 1 {
				b.name = fields[1]
			}
		case ".inputs":
			for _, sig := range fields[1:] {
				b.addInput(sig)
			}
		case ".outputs":
			for _, sig := range fields[1:] {
				b.addOutput(sig)
			}
		case ".latch":
			// ".latch d q [type [control]] [init]" — only the D and Q nets
			// matter to the combinational PPI/PPO boundary; the rest
			// (clock, init value) is handled by the external scan harness
			// spec.md treats as a peripheral collaborator.
			if len(fields) < 3 {
				return netlist.Description{}, fmt.Errorf("%w: blif: malformed .latch %q", netlist.ErrNetlistInvalid, line)
			}
			dffCounter++
			b.addDFF(fmt.Sprintf("%s$dff%d", b.name, dffCounter), fields[1], fields[2])
		case ".names":
			if len(fields) < 2 {
				return netlist.Description{}, fmt.Errorf("%w: blif: malformed .names %q", netlist.ErrNetlistInvalid, line)
			}
			nets := fields[1:]
			out := nets[len(nets)-1]
			inputs := nets[:len(nets)-1]

			var cover []coverRow
			j := i + 1
			for j < len(lines) {
				row := strings.TrimSpace(lines[j])
				if row == "" || strings.HasPrefix(row, ".") {
					break
				}
				cr, err := parseCoverRow(row, len(inputs))
				if err != nil {
					return netlist.Description{}, fmt.Errorf("%w: blif: .names %s: %v", netlist.ErrNetlistInvalid, out, err)
				}
				cover = append(cover, cr)
				j++
			}
			i = j - 1

			kind, order, err := classifyCover(len(inputs), cover)
			if err != nil {
				return netlist.Description{}, fmt.Errorf("%w: blif: .names %s: %v", netlist.ErrUnsupportedGate, out, err)
			}
			fanins := make([]string, len(inputs))
			for k, idx := range order {
				fanins[k] = inputs[idx]
			}
			b.addGate(out, kind, fanins)
		case ".end":
			// terminates the model; nothing else to do.
		}
	}
	return b.description(), nil
}

// joinContinuations reads every line of r, splicing a trailing "\" into
// the next physical line the way the BLIF line-continuation convention
// requires.
func joinContinuations(r *os.File) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var out []string
	var pending string
	for scanner.Scan() {
		raw := scanner.Text()
		if strings.HasSuffix(strings.TrimRight(raw, " \t"), "\\") {
			trimmed := strings.TrimRight(raw, " \t")
			pending += strings.TrimSuffix(trimmed, "\\") + " "
			continue
		}
		out = append(out, pending+raw)
		pending = ""
	}
	if pending != "" {
		out = append(out, pending)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: blif: scan: %v", ErrIO, err)
	}
	return out, nil
}

// coverRow is one line of a .names truth table: an input literal pattern
// (0/1/-, one per input) and the output bit it produces.
type coverRow struct {
	lits []byte // '0', '1' or '-' per input
	out  byte   // '0' or '1'
}

func parseCoverRow(row string, numInputs int) (coverRow, error) {
	fields := strings.Fields(row)
	if numInputs == 0 {
		// A constant node: BLIF writes just the output bit ("1" or "0").
		if len(fields) != 1 {
			return coverRow{}, fmt.Errorf("expected a single output bit, got %q", row)
		}
		return coverRow{out: fields[0][0]}, nil
	}
	if len(fields) != 2 || len(fields[0]) != numInputs {
		return coverRow{}, fmt.Errorf("expected %d input literals and an output bit, got %q", numInputs, row)
	}
	return coverRow{lits: []byte(fields[0]), out: fields[1][0]}, nil
}

// classifyCover expands cover (with "-" don't-cares) into the full truth
// table over 2^n input assignments, defaulting every unlisted
// combination to the complement of the cover's declared output bit (the
// standard single-output-cover convention: the rows listed all share one
// polarity and silently define the complementary minterms), then matches
// the resulting function against the gate kinds this package can encode.
// It returns the matched Kind and, for non-commutative single-input
// kinds, an explicit fanin order (always identity here since every
// matched function is symmetric in its inputs).
func classifyCover(n int, cover []coverRow) (netlist.Kind, []int, error) {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	if n == 0 {
		if len(cover) != 1 {
			return 0, nil, fmt.Errorf("constant node must have exactly one row")
		}
		if cover[0].out == '1' {
			return netlist.KindConst1, order, nil
		}
		return netlist.KindConst0, order, nil
	}

	size := 1 << uint(n)
	table := make([]byte, size)
	// Default fill: the cover's rows all declare the same output bit
	// (standard ABC/SIS convention); anything not covered gets the
	// opposite bit.
	defaultOut := byte('0')
	if len(cover) > 0 && cover[0].out == '0' {
		defaultOut = '1'
	}
	for i := range table {
		table[i] = defaultOut
	}
	for _, row := range cover {
		expandRow(table, row, n)
	}

	ones := 0
	for _, b := range table {
		if b == '1' {
			ones++
		}
	}

	switch {
	case n == 1 && ones == 1 && table[1] == '1':
		return netlist.KindBuf, order, nil
	case n == 1 && ones == 1 && table[0] == '1':
		return netlist.KindNot, order, nil
	case ones == 1 && table[size-1] == '1':
		return netlist.KindAnd, order, nil
	case ones == size-1 && table[size-1] == '0':
		return netlist.KindNand, order, nil
	case ones == size-1 && table[0] == '0':
		return netlist.KindOr, order, nil
	case ones == 1 && table[0] == '1':
		return netlist.KindNor, order, nil
	case isParity(table, n, false):
		return netlist.KindXor, order, nil
	case isParity(table, n, true):
		return netlist.KindXnor, order, nil
	default:
		return 0, nil, fmt.Errorf("cover matches no supported gate function (n=%d)", n)
	}
}

// expandRow ORs row's minterms into table, expanding each "-" literal
// into both its 0 and 1 sub-cubes.
func expandRow(table []byte, row coverRow, n int) {
	var rec func(pos, idx int)
	rec = func(pos, idx int) {
		if pos == n {
			table[idx] = row.out
			return
		}
		switch row.lits[pos] {
		case '0':
			rec(pos+1, idx)
		case '1':
			rec(pos+1, idx|(1<<uint(n-1-pos)))
		default: // '-'
			rec(pos+1, idx)
			rec(pos+1, idx|(1<<uint(n-1-pos)))
		}
	}
	rec(0, 0)
}

// isParity reports whether table computes XOR (negate=false) or XNOR
// (negate=true) of its n inputs.
func isParity(table []byte, n int, negate bool) bool {
	for idx, b := range table {
		parity := 0
		for i := 0; i < n; i++ {
			if idx&(1<<uint(i)) != 0 {
				parity ^= 1
			}
		}
		want := byte('0' + parity)
		if negate {
			want = '0' + byte(1-parity)
		}
		if b != want {
			return false
		}
	}
	return true
}

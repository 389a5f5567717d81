package fsim

import "github.com/fyerfyer/druid-atpg/pkg/netlist"

// Verifier is the thin harness spec.md §2 step 5 describes: given the
// finished (fault, TestVector) set a Dtpg run produced, it re-runs Fsim
// independently to assert every claimed-detected fault is actually
// detected by its pattern (P1, the round-trip invariant).
type Verifier struct {
	sim *Fsim
}

// NewVerifier builds a Verifier with its own Fsim instance, independent
// of whatever Fsim a Dtpg engine used internally.
func NewVerifier(nl *netlist.Netlist) *Verifier {
	return &Verifier{sim: New(nl)}
}

// Claim is one fault's claimed detection, the input row a Dtpg verdict
// stream produces.
type Claim struct {
	Fault  *netlist.Fault
	Vector *netlist.TestVector
}

// Failure reports one claim the verifier could not confirm.
type Failure struct {
	Fault *netlist.Fault
}

// Report summarizes a Verify run.
type Report struct {
	Checked int
	Failed  []Failure
}

// OK reports whether every claim verified.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// Verify re-simulates every claim and returns a Report; a claim with a
// nil Vector (an Untestable/Undecided verdict) is skipped, since only
// Detected verdicts carry a testable claim.
func (v *Verifier) Verify(claims []Claim) Report {
	report := Report{}
	for _, c := range claims {
		if c.Vector == nil {
			continue
		}
		report.Checked++
		if !v.sim.Verify(c.Fault, c.Vector) {
			report.Failed = append(report.Failed, Failure{Fault: c.Fault})
		}
	}
	return report
}

// Package fsim is the bit-parallel fault simulator: it evaluates the
// good circuit and representative faults packed Width-at-a-time across
// uint64 lanes, in both PPSFP (many patterns, one fault at a time) and
// SPPFP (one pattern, many faults at a time) regimes.
package fsim

import (
	"sort"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/value"
)

// Fsim owns the per-node working arrays for one Netlist. It is not safe
// for concurrent use by multiple goroutines against the same instance;
// callers that want FFR-level concurrency (pkg/parallel) construct one
// Fsim per worker.
type Fsim struct {
	nl    *netlist.Netlist
	order []netlist.NodeID // nodes sorted by ascending level, sources first

	good []value.Packed // last good-circuit simulation result, indexed by NodeID
	cur  []value.Packed // scratch buffer reused by both regimes
}

// New builds an Fsim bound to nl, precomputing the level-sorted
// evaluation order once so repeated SimulateGood/PPSFP/SPPFP calls don't
// re-sort.
func New(nl *netlist.Netlist) *Fsim {
	order := make([]netlist.NodeID, len(nl.Nodes))
	for i, n := range nl.Nodes {
		order[i] = n.ID
	}
	sort.Slice(order, func(i, j int) bool {
		return nl.Nodes[order[i]].Level < nl.Nodes[order[j]].Level
	})
	return &Fsim{
		nl:    nl,
		order: order,
		good:  make([]value.Packed, len(nl.Nodes)),
		cur:   make([]value.Packed, len(nl.Nodes)),
	}
}

// evalGate computes one node's packed value from already-evaluated
// fanins in buf. Branch faults go through evalGateOverride instead.
func evalGate(nl *netlist.Netlist, n *netlist.Node, buf []value.Packed) value.Packed {
	switch n.Kind {
	case netlist.KindPI, netlist.KindDFFOut:
		return buf[n.ID] // source: already seeded by caller
	case netlist.KindConst0:
		return value.Broadcast(value.Zero)
	case netlist.KindConst1:
		return value.Broadcast(value.One)
	case netlist.KindPO, netlist.KindDFFIn, netlist.KindBuf:
		return buf[n.Fanin[0]]
	case netlist.KindNot:
		return buf[n.Fanin[0]].Not()
	case netlist.KindAnd:
		return value.And(gather(buf, n.Fanin)...)
	case netlist.KindNand:
		return value.Nand(gather(buf, n.Fanin)...)
	case netlist.KindOr:
		return value.Or(gather(buf, n.Fanin)...)
	case netlist.KindNor:
		return value.Nor(gather(buf, n.Fanin)...)
	case netlist.KindXor:
		return value.Xor(gather(buf, n.Fanin)...)
	case netlist.KindXnor:
		return value.Xnor(gather(buf, n.Fanin)...)
	default:
		return value.Packed{}
	}
}

func gather(buf []value.Packed, ids []netlist.NodeID) []value.Packed {
	out := make([]value.Packed, len(ids))
	for i, id := range ids {
		out[i] = buf[id]
	}
	return out
}

// evalGateOverride behaves like evalGate but substitutes override for
// every fanin edge driven by overrideDriver, used to compute a single
// consumer's value under a branch fault without disturbing the driver's
// own (good) value for its other fanouts.
func evalGateOverride(nl *netlist.Netlist, n *netlist.Node, buf []value.Packed, overrideDriver netlist.NodeID, override value.Packed) value.Packed {
	substituted := make([]value.Packed, len(buf))
	copy(substituted, buf)
	substituted[overrideDriver] = override
	return evalGate(nl, n, substituted)
}

// faultSiteLevel returns f's own node, whether f is a branch fault, and,
// for a branch fault, the single consumer on the affected branch (0 for a
// stem fault). It does not compute a level.
func faultSiteLevel(nl *netlist.Netlist, f *netlist.Fault) (divergeAt netlist.NodeID, isBranch bool, consumer netlist.NodeID) {
	if f.Pin == netlist.StemPin {
		return f.Node, false, 0
	}
	driver := nl.Nodes[f.Node]
	c := driver.Fanout[f.Pin]
	return f.Node, true, c
}

// injectFault forces fs.cur to reflect f's effect (in the lanes selected
// by activeLanes) at its divergence point, appending every node it wrote
// to touched so the caller can restore them afterward, and returns the
// level above which the rest of the netlist must be recomputed.
func (fs *Fsim) injectFault(f *netlist.Fault, activeLanes uint64, touched []netlist.NodeID) ([]netlist.NodeID, int) {
	stuck := stuckValue(f.Kind)
	_, isBranch, consumer := faultSiteLevel(fs.nl, f)

	if !isBranch {
		forced := fs.cur[f.Node]
		for lane := uint(0); lane < value.Width; lane++ {
			if activeLanes&(1<<lane) != 0 {
				forced = forced.SetLane(lane, stuck)
			}
		}
		fs.cur[f.Node] = forced
		touched = append(touched, f.Node)
		return touched, fs.nl.Nodes[f.Node].Level
	}

	override := fs.cur[f.Node]
	for lane := uint(0); lane < value.Width; lane++ {
		if activeLanes&(1<<lane) != 0 {
			override = override.SetLane(lane, stuck)
		}
	}
	cn := fs.nl.Nodes[consumer]
	fs.cur[consumer] = evalGateOverride(fs.nl, cn, fs.cur, f.Node, override)
	touched = append(touched, consumer)
	return touched, cn.Level
}

// PackVectors broadcasts up to value.Width test vectors into one packed
// PPI assignment per NodeID, one lane per vector; unused trailing lanes
// are left X.
func PackVectors(nl *netlist.Netlist, vectors []*netlist.TestVector) map[netlist.NodeID]value.Packed {
	ppi := make(map[netlist.NodeID]value.Packed, len(nl.PPIs))
	for _, id := range nl.PPIs {
		ppi[id] = value.Packed{}
	}
	for lane, tv := range vectors {
		if lane >= value.Width {
			break
		}
		for _, id := range nl.PPIs {
			p := ppi[id]
			ppi[id] = p.SetLane(uint(lane), tv.Get(id))
		}
	}
	return ppi
}

// SimulateGood runs the full levelized good-circuit pass for the given
// PPI packed assignment and caches the result for subsequent PPSFP/SPPFP
// calls against the same pattern batch.
func (fs *Fsim) SimulateGood(ppi map[netlist.NodeID]value.Packed) []value.Packed {
	for _, id := range fs.order {
		if v, ok := ppi[id]; ok {
			fs.good[id] = v
			continue
		}
		fs.good[id] = evalGate(fs.nl, fs.nl.Nodes[id], fs.good)
	}
	copy(fs.cur, fs.good)
	return fs.good
}

// Detection holds, for one fault, the bitmask of simulated pattern lanes
// that detected it (Mask&(1<<lane) != 0).
type Detection struct {
	Fault *netlist.Fault
	Mask  uint64
}

// PPSFP simulates every fault in faults against the pattern batch most
// recently loaded by SimulateGood, one fault at a time but all lanes of
// that batch in parallel. After each fault it restores the scratch
// buffer from the recorded good values rather than recomputing the
// whole netlist, using the touched-node list as a restore log.
func (fs *Fsim) PPSFP(faults []*netlist.Fault, activeLanes uint64) []Detection {
	results := make([]Detection, 0, len(faults))
	var touched []netlist.NodeID

	for _, f := range faults {
		var siteLevel int
		touched, siteLevel = fs.injectFault(f, activeLanes, touched)

		for _, id := range fs.order {
			n := fs.nl.Nodes[id]
			if n.Level <= siteLevel {
				continue
			}
			fs.cur[id] = evalGate(fs.nl, n, fs.cur)
			touched = append(touched, id)
		}

		var mask uint64
		for _, ppo := range fs.nl.PPOs {
			mask |= fs.good[ppo].Diff(fs.cur[ppo])
		}
		mask &= activeLanes
		results = append(results, Detection{Fault: f, Mask: mask})

		for _, id := range touched {
			fs.cur[id] = fs.good[id]
		}
		touched = touched[:0]
	}
	return results
}

// SPPFP simulates up to value.Width faults against a single pattern,
// packing one fault per lane and letting the bit-parallel gate kernels
// propagate every lane's divergence independently in one forward pass.
func (fs *Fsim) SPPFP(faults []*netlist.Fault, vector *netlist.TestVector) []Detection {
	if len(faults) > value.Width {
		faults = faults[:value.Width]
	}
	ppi := make(map[netlist.NodeID]value.Packed, len(fs.nl.PPIs))
	for _, id := range fs.nl.PPIs {
		v := vector.Get(id)
		ppi[id] = value.Broadcast(v)
	}
	fs.SimulateGood(ppi)

	var activeLanes uint64
	for i := range faults {
		activeLanes |= 1 << uint(i)
	}
	for i, f := range faults {
		lane := uint(i)
		stuck := stuckValue(f.Kind)
		_, isBranch, consumer := faultSiteLevel(fs.nl, f)
		if !isBranch {
			fs.cur[f.Node] = fs.cur[f.Node].SetLane(lane, stuck)
			continue
		}
		cn := fs.nl.Nodes[consumer]
		forced := evalGateOverride(fs.nl, cn, fs.cur, f.Node, value.Broadcast(stuck))
		fs.cur[consumer] = fs.cur[consumer].SetLane(lane, forced.Lane(0))
	}
	for _, id := range fs.order {
		n := fs.nl.Nodes[id]
		if n.Kind.IsSource() {
			continue
		}
		// Branch-fault consumers and stem-fault nodes were already
		// force-set above for their owning lane; re-evaluating here would
		// recompute them from their (unfaulted) fanins and overwrite that
		// lane with the good-circuit result. Skip exactly those nodes.
		if isBranchConsumer(fs.nl, faults, id) {
			continue
		}
		if isStemFaultNode(faults, id) {
			continue
		}
		fs.cur[id] = evalGate(fs.nl, n, fs.cur)
	}

	results := make([]Detection, len(faults))
	for i, f := range faults {
		var mask uint64
		for _, ppo := range fs.nl.PPOs {
			mask |= fs.good[ppo].Diff(fs.cur[ppo])
		}
		results[i] = Detection{Fault: f, Mask: mask & (1 << uint(i))}
	}
	return results
}

func isBranchConsumer(nl *netlist.Netlist, faults []*netlist.Fault, id netlist.NodeID) bool {
	for _, f := range faults {
		if f.Pin == netlist.StemPin {
			continue
		}
		if nl.Nodes[f.Node].Fanout[f.Pin] == id {
			return true
		}
	}
	return false
}

// isStemFaultNode reports whether id is the fault site of a stem fault in
// faults, meaning its packed value was already force-set by the injection
// loop above and must not be recomputed by the forward sweep.
func isStemFaultNode(faults []*netlist.Fault, id netlist.NodeID) bool {
	for _, f := range faults {
		if f.Pin == netlist.StemPin && f.Node == id {
			return true
		}
	}
	return false
}

// stuckValue returns the forced divergence value at a fault's site: the
// stuck-at polarity for SA0/SA1, and, for a transition fault, the value
// the site is forced to hold at capture when the transition fails to
// occur (stays at its pre-capture value) — Zero for a failed rise,
// One for a failed fall. This must track pkg/dtpg's generateTransition,
// which solves its capture instance against the same captureKind.
func stuckValue(k netlist.FaultKind) value.Value3 {
	switch k {
	case netlist.SA0, netlist.TransitionRise:
		return value.Zero
	default:
		return value.One
	}
}

// Verify checks that vector, when simulated, propagates f's effect to at
// least one PPO: the correctness harness a Dtpg-produced test is run
// through before being accepted.
func (fs *Fsim) Verify(f *netlist.Fault, vector *netlist.TestVector) bool {
	ppi := PackVectors(fs.nl, []*netlist.TestVector{vector})
	fs.SimulateGood(ppi)
	dets := fs.PPSFP([]*netlist.Fault{f}, 1)
	return dets[0].Mask&1 != 0
}

package dtpg

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/fyerfyer/druid-atpg/pkg/netlist"
	"github.com/fyerfyer/druid-atpg/pkg/parallel"
)

// GenerateAllConcurrent is GenerateAll's FFR/MFFC-parallel counterpart,
// realizing spec.md §5(a): each group (FFR or MFFC, per config.Scope) is
// solved by its own freshly-constructed Dtpg instance — its own Fsim
// buffers and, per fault, its own satsolver.Solver — so no mutable state
// is shared across the pkg/parallel.Pool workers. Verdicts are collected
// under a mutex and returned re-sorted into the deterministic group
// order GenerateAll would have produced sequentially.
func GenerateAllConcurrent(ctx context.Context, nl *netlist.Netlist, config Config, faults []*netlist.Fault, workers int) ([]Verdict, error) {
	d := New(nl, config)
	groups := d.GroupFaults(faults)

	var (
		mu       sync.Mutex
		errOnce  error
		verdicts = make(map[int][]Verdict, len(groups))
	)

	tasks := make([]func(), len(groups))
	for i, g := range groups {
		g := g
		tasks[i] = func() {
			worker := New(nl, config)
			local := make([]Verdict, 0, len(g.Faults))
			for _, f := range g.Faults {
				v, err := worker.Generate(ctx, f)
				if err != nil && !errors.Is(err, ErrJustifyFailed) {
					mu.Lock()
					if errOnce == nil {
						errOnce = err
					}
					mu.Unlock()
					return
				}
				local = append(local, v)
			}
			mu.Lock()
			verdicts[g.Index] = local
			mu.Unlock()
		}
	}

	parallel.Run(workers, tasks)
	if errOnce != nil {
		return nil, errOnce
	}

	indices := make([]int, 0, len(verdicts))
	for idx := range verdicts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]Verdict, 0, len(faults))
	for _, idx := range indices {
		out = append(out, verdicts[idx]...)
	}
	return out, nil
}

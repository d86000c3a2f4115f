package plan

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
)

// Result is the outcome of one district in PlanAll.
type Result struct {
	District string
	Plan     *Plan
	Err      error
}

// PlanAll plans every district concurrently. Each result carries its own
// error; a failed district never affects the others. Results follow the
// order of districts, after any component split.
func (p *Planner) PlanAll(ctx context.Context, districts []District, fleets []FleetRequest) []Result {
	if p.opts.PerComponent {
		var split []District
		for _, d := range districts {
			split = append(split, SplitComponents(d)...)
		}
		districts = split
	}

	results := make([]Result, len(districts))
	var eg errgroup.Group
	eg.SetLimit(p.opts.Workers)
	for i, d := range districts {
		eg.Go(func() error {
			plan, err := p.Plan(ctx, d, fleets)
			results[i] = Result{District: d.Name, Plan: plan, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// SplitComponents returns one district per connected component of d, named
// "<name>/<n>" from 1 in order of lowest node. A connected district is
// returned unchanged. Each part gets its own oracle; the start node is kept
// in the component that contains it.
func SplitComponents(d District) []District {
	if d.Graph == nil || graph.IsConnected(d.Graph) {
		return []District{d}
	}

	comps := graph.Components(d.Graph)
	var startID graph.NodeID
	hasStart := d.Start >= 0 && d.Start < int(d.Graph.NumNodes)
	if hasStart {
		startID = d.Graph.NodeIDs[d.Start]
	}

	parts := make([]District, len(comps))
	for i, nodes := range comps {
		sub := graph.FilterToComponent(d.Graph, nodes)
		start := -1
		if hasStart {
			if idx, ok := sub.Lookup(startID); ok {
				start = int(idx)
			}
		}
		parts[i] = District{
			Name:  fmt.Sprintf("%s/%d", d.Name, i+1),
			Graph: sub,
			Start: start,
		}
	}
	log.Printf("District %s: split into %d components", d.Name, len(parts))
	return parts
}

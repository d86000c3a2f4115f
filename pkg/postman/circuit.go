package postman

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

// Step is one traversal of an edge.
type Step struct {
	Edge     uint32 // edge index in the graph the circuit was built from
	From, To uint32 // node indices in traversal order
	Weight   uint32 // millimeters
	Deadhead bool   // repeated pass over a street already in the route
}

// Circuit is an ordered walk; consecutive steps share an endpoint and the
// last step ends where the first began.
type Circuit []Step

// Length returns the total length of the circuit in millimeters.
func (c Circuit) Length() uint64 {
	var total uint64
	for _, s := range c {
		total += uint64(s.Weight)
	}
	return total
}

// DeadheadLength returns the length of the repeated passes in millimeters.
func (c Circuit) DeadheadLength() uint64 {
	var total uint64
	for _, s := range c {
		if s.Deadhead {
			total += uint64(s.Weight)
		}
	}
	return total
}

// Closed reports whether c is a connected closed walk.
func (c Circuit) Closed() bool {
	for i := 1; i < len(c); i++ {
		if c[i].From != c[i-1].To {
			return false
		}
	}
	return len(c) == 0 || c[0].From == c[len(c)-1].To
}

const noEdge = ^uint32(0)

// ExtractCircuit returns an Eulerian circuit of g using Hierholzer's
// algorithm. At each node the unused edge with the lowest weight is taken
// first, ties broken by edge index, so the result is deterministic.
//
// start < 0 starts at the lowest-index node with at least one edge.
// Synthetic edges appear as single Deadhead steps; see Expand.
func ExtractCircuit(g *graph.Graph, start int) (Circuit, error) {
	if start >= int(g.NumNodes) {
		return nil, fmt.Errorf("%w: start node %d out of range", ErrInvalidGraph, start)
	}
	if len(g.Edges) == 0 {
		if start >= 0 {
			return nil, fmt.Errorf("%w: start node %d has no edges", ErrInvalidGraph, g.NodeIDs[start])
		}
		return Circuit{}, nil
	}
	if odd := g.OddNodes(); len(odd) > 0 {
		return nil, fmt.Errorf("%w: node %d has odd degree %d", ErrInvalidGraph, g.NodeIDs[odd[0]], g.Degree(odd[0]))
	}
	if !graph.IsConnected(g) {
		return nil, fmt.Errorf("%w: %d edge components", ErrDisconnectedGraph, len(graph.Components(g)))
	}

	var root uint32
	if start < 0 {
		for u := uint32(0); u < g.NumNodes; u++ {
			if g.Degree(u) > 0 {
				root = u
				break
			}
		}
	} else {
		root = uint32(start)
		if g.Degree(root) == 0 {
			return nil, fmt.Errorf("%w: start node %d has no edges", ErrInvalidGraph, g.NodeIDs[root])
		}
	}

	// Per-node incident edges, cheapest first.
	adj := make([][]uint32, g.NumNodes)
	for u := range g.NumNodes {
		inc := slices.Clone(g.Incident(u))
		slices.SortFunc(inc, func(a, b uint32) int {
			if c := cmp.Compare(g.Edges[a].Weight, g.Edges[b].Weight); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		adj[u] = inc
	}
	next := make([]int, g.NumNodes)
	used := make([]bool, len(g.Edges))

	type frame struct {
		node uint32
		edge uint32 // edge that led here, noEdge for the root
	}
	stack := []frame{{node: root, edge: noEdge}}
	out := make(Circuit, 0, len(g.Edges))

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		u := top.node

		for next[u] < len(adj[u]) && used[adj[u][next[u]]] {
			next[u]++
		}
		if next[u] < len(adj[u]) {
			ei := adj[u][next[u]]
			next[u]++
			used[ei] = true
			stack = append(stack, frame{node: g.Edges[ei].Other(u), edge: ei})
			continue
		}

		stack = stack[:len(stack)-1]
		if top.edge == noEdge {
			continue
		}
		e := g.Edges[top.edge]
		out = append(out, Step{
			Edge:     top.edge,
			From:     stack[len(stack)-1].node,
			To:       u,
			Weight:   e.Weight,
			Deadhead: e.Synthetic,
		})
	}
	slices.Reverse(out)

	if len(out) != len(g.Edges) {
		return nil, fmt.Errorf("%w: circuit covers %d of %d edges", ErrDisconnectedGraph, len(out), len(g.Edges))
	}
	return out, nil
}

// Expand replaces every synthetic step of c with the real street steps of
// the shortest path between its endpoints, marked Deadhead. Real steps are
// kept as they are. working is the graph c was extracted from; the oracle
// must index edges the same way for its real edges, which holds for an
// Engine built on the street graph that working was cloned from.
func Expand(ctx context.Context, c Circuit, working *graph.Graph, oracle routing.Oracle) (Circuit, error) {
	out := make(Circuit, 0, len(c))
	for _, s := range c {
		if !working.Edges[s.Edge].Synthetic {
			out = append(out, s)
			continue
		}

		p, err := oracle.ShortestPath(ctx, s.From, s.To)
		if err != nil {
			if errors.Is(err, routing.ErrNoRoute) {
				return nil, fmt.Errorf("%w: expanding synthetic edge %d: %w", ErrDisconnectedGraph, s.Edge, err)
			}
			return nil, err
		}
		if p.Weight != uint64(s.Weight) {
			return nil, fmt.Errorf("%w: synthetic edge %d weighs %d mm but its path weighs %d mm",
				ErrInternalInvariant, s.Edge, s.Weight, p.Weight)
		}

		for i, ei := range p.Edges {
			if int(ei) >= len(working.Edges) || working.Edges[ei].Synthetic {
				return nil, fmt.Errorf("%w: path edge %d is not a street", ErrInternalInvariant, ei)
			}
			out = append(out, Step{
				Edge:     ei,
				From:     p.Nodes[i],
				To:       p.Nodes[i+1],
				Weight:   working.Edges[ei].Weight,
				Deadhead: true,
			})
		}
	}
	return out, nil
}

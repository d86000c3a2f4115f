package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Path is a shortest path through the real edges of a graph.
// Nodes has one more element than Edges; Nodes[0] is the source.
type Path struct {
	Edges  []uint32
	Nodes  []uint32
	Weight uint64 // millimeters
}

// Oracle answers shortest-path queries between node indices.
// Implementations must be safe for concurrent use.
type Oracle interface {
	ShortestPathLength(ctx context.Context, a, b uint32) (uint64, error)
	ShortestPath(ctx context.Context, a, b uint32) (Path, error)
}

// BatchOracle is an Oracle that can answer one-to-many length queries with
// a single search. Callers type-assert for it and fall back to pairwise
// queries otherwise.
type BatchOracle interface {
	Oracle
	ShortestPathLengths(ctx context.Context, source uint32, targets []uint32) ([]uint64, error)
}

// Segment represents a road segment in the route result.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	Segments            []Segment
	Nodes               []graph.NodeID
}

// Router is the interface for point-to-point route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// Engine implements Oracle and Router with plain Dijkstra over a street
// graph. Synthetic edges are never used, so an Engine built on a working
// graph answers the same as one built on the street graph it was cloned
// from, with identical edge indices.
type Engine struct {
	g       *graph.Graph
	snapper *Snapper
	states  sync.Pool
}

// NewEngine creates a routing engine over g. The graph must not be mutated
// while the engine is in use.
func NewEngine(g *graph.Graph) *Engine {
	e := &Engine{g: g, snapper: NewSnapper(g)}
	e.states.New = func() any { return NewQueryState(g.NumNodes) }
	return e
}

// Graph returns the graph the engine routes over.
func (e *Engine) Graph() *graph.Graph { return e.g }

func (e *Engine) checkNodes(a, b uint32) error {
	if a >= e.g.NumNodes || b >= e.g.NumNodes {
		return fmt.Errorf("%w: node %d or %d out of range (have %d nodes)", graph.ErrInvalidGraph, a, b, e.g.NumNodes)
	}
	return nil
}

// ShortestPathLength returns the length in millimeters of the shortest path
// between nodes a and b.
func (e *Engine) ShortestPathLength(ctx context.Context, a, b uint32) (uint64, error) {
	p, err := e.search(ctx, a, b, false)
	if err != nil {
		return 0, err
	}
	return p.Weight, nil
}

// ShortestPath returns the shortest path between nodes a and b.
func (e *Engine) ShortestPath(ctx context.Context, a, b uint32) (Path, error) {
	return e.search(ctx, a, b, true)
}

func (e *Engine) search(ctx context.Context, a, b uint32, trace bool) (Path, error) {
	if err := e.checkNodes(a, b); err != nil {
		return Path{}, err
	}
	if a == b {
		return Path{Nodes: []uint32{a}}, nil
	}

	qs := e.states.Get().(*QueryState)
	defer func() {
		qs.Reset()
		e.states.Put(qs)
	}()

	d, err := dijkstra(ctx, e.g, qs, a, b)
	if err != nil {
		return Path{}, err
	}
	if d == inf {
		return Path{}, fmt.Errorf("%w: %d to %d", ErrNoRoute, e.g.NodeIDs[a], e.g.NodeIDs[b])
	}

	p := Path{Weight: d}
	if trace {
		p.Edges, p.Nodes = tracePath(e.g, qs, a, b)
	}
	return p, nil
}

// ShortestPathLengths returns the shortest path length from source to each
// target, in target order, using one full Dijkstra search. Any unreachable
// target fails the whole query with ErrNoRoute.
func (e *Engine) ShortestPathLengths(ctx context.Context, source uint32, targets []uint32) ([]uint64, error) {
	for _, t := range targets {
		if err := e.checkNodes(source, t); err != nil {
			return nil, err
		}
	}

	qs := e.states.Get().(*QueryState)
	defer func() {
		qs.Reset()
		e.states.Put(qs)
	}()

	if _, err := dijkstra(ctx, e.g, qs, source, noTarget); err != nil {
		return nil, err
	}

	out := make([]uint64, len(targets))
	for i, t := range targets {
		if qs.Dist[t] == inf {
			return nil, fmt.Errorf("%w: %d to %d", ErrNoRoute, e.g.NodeIDs[source], e.g.NodeIDs[t])
		}
		out[i] = qs.Dist[t]
	}
	return out, nil
}

// Snap returns the node nearest to a coordinate.
func (e *Engine) Snap(p LatLng) (SnapResult, error) {
	return e.snapper.Snap(p.Lat, p.Lng)
}

// Route computes the shortest street route between two points. Both points
// are snapped to their nearest node first.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	path, err := e.ShortestPath(ctx, startSnap.Node, endSnap.Node)
	if err != nil {
		return nil, err
	}

	totalDistMeters := float64(path.Weight) / 1000.0
	ids := make([]graph.NodeID, len(path.Nodes))
	for i, u := range path.Nodes {
		ids[i] = e.g.NodeIDs[u]
	}

	return &RouteResult{
		TotalDistanceMeters: totalDistMeters,
		Segments: []Segment{
			{
				DistanceMeters: totalDistMeters,
				Geometry:       e.buildGeometry(path.Nodes),
			},
		},
		Nodes: ids,
	}, nil
}

// buildGeometry converts a node sequence into lat/lng coordinates.
func (e *Engine) buildGeometry(nodes []uint32) []LatLng {
	if len(nodes) == 0 {
		return nil
	}
	geom := make([]LatLng, len(nodes))
	for i, u := range nodes {
		geom[i] = LatLng{Lat: e.g.NodeLat[u], Lng: e.g.NodeLon[u]}
	}
	return geom
}

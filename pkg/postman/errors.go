// Package postman turns a street graph into closed covering routes: it
// pairs odd intersections with repeated street runs (Eulerization), walks
// the resulting Eulerian circuit, and splits it between vehicles.
package postman

import (
	"errors"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
)

var (
	// ErrInvalidGraph is returned for malformed input: an odd number of
	// odd-degree nodes, dangling edges, self-loops, or a start node without
	// edges.
	ErrInvalidGraph = graph.ErrInvalidGraph

	// ErrDisconnectedGraph is returned when the edges of the graph lie in
	// more than one component, or when two nodes that must be joined have
	// no path between them.
	ErrDisconnectedGraph = errors.New("disconnected graph")

	// ErrInternalInvariant is returned when a postcondition fails. It
	// indicates a bug, not bad input.
	ErrInternalInvariant = errors.New("internal invariant violated")
)

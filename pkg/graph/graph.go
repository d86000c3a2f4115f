package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph is returned for malformed graphs: dangling edge endpoints,
// self-loops, or parity that cannot come from a real road network.
var ErrInvalidGraph = errors.New("invalid graph")

// NodeID is the external node identifier (the OSM node id).
type NodeID int64

// Edge is an undirected street segment between node indices U and V.
type Edge struct {
	U, V      uint32
	Weight    uint32 // length in millimeters
	Synthetic bool   // added by Eulerization: a repeated traversal, not a road
}

// Other returns the endpoint of e opposite to u.
func (e Edge) Other(u uint32) uint32 {
	if e.U == u {
		return e.V
	}
	return e.U
}

// Graph is an undirected multigraph over compact uint32 node indices.
// Parallel edges are allowed; self-loops are not. Edges must be added
// through AddEdge so the incidence lists stay in sync.
type Graph struct {
	NumNodes uint32
	NodeIDs  []NodeID  // len: NumNodes; external id of each node
	NodeLat  []float64 // len: NumNodes
	NodeLon  []float64 // len: NumNodes
	Edges    []Edge

	adj   [][]uint32 // node -> incident edge indices, in insertion order
	index map[NodeID]uint32
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[NodeID]uint32)}
}

// AddNode registers a node and returns its index. Adding an id twice
// returns the existing index and keeps the first coordinates.
func (g *Graph) AddNode(id NodeID, lat, lon float64) uint32 {
	if g.index == nil {
		g.index = make(map[NodeID]uint32)
	}
	if idx, ok := g.index[id]; ok {
		return idx
	}
	idx := g.NumNodes
	g.index[id] = idx
	g.NodeIDs = append(g.NodeIDs, id)
	g.NodeLat = append(g.NodeLat, lat)
	g.NodeLon = append(g.NodeLon, lon)
	g.adj = append(g.adj, nil)
	g.NumNodes++
	return idx
}

// Lookup returns the index of the node with the given external id.
func (g *Graph) Lookup(id NodeID) (uint32, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// AddEdge inserts an undirected edge u–v and returns its index.
func (g *Graph) AddEdge(u, v uint32, weight uint32, synthetic bool) (uint32, error) {
	if u >= g.NumNodes || v >= g.NumNodes {
		return 0, fmt.Errorf("%w: edge %d–%d references unknown node (have %d nodes)", ErrInvalidGraph, u, v, g.NumNodes)
	}
	if u == v {
		return 0, fmt.Errorf("%w: self-loop at node %d", ErrInvalidGraph, g.NodeIDs[u])
	}
	idx := uint32(len(g.Edges))
	g.Edges = append(g.Edges, Edge{U: u, V: v, Weight: weight, Synthetic: synthetic})
	g.adj[u] = append(g.adj[u], idx)
	g.adj[v] = append(g.adj[v], idx)
	return idx, nil
}

// mustAddEdge is AddEdge for builders whose endpoints are valid by
// construction. A failure means the builder dropped a street, so it panics.
func (g *Graph) mustAddEdge(u, v uint32, weight uint32, synthetic bool) uint32 {
	idx, err := g.AddEdge(u, v, weight, synthetic)
	if err != nil {
		panic(fmt.Sprintf("graph: builder produced an invalid edge: %v", err))
	}
	return idx
}

// NumEdges returns the number of edges, synthetic ones included.
func (g *Graph) NumEdges() uint32 {
	return uint32(len(g.Edges))
}

// Degree returns the number of edges incident to u.
func (g *Graph) Degree(u uint32) int {
	return len(g.adj[u])
}

// Incident returns the indices of the edges incident to u.
// The slice is shared with the graph and must not be modified.
func (g *Graph) Incident(u uint32) []uint32 {
	return g.adj[u]
}

// Neighbors returns the opposite endpoint of every edge incident to u,
// repeated once per parallel edge.
func (g *Graph) Neighbors(u uint32) []uint32 {
	out := make([]uint32, len(g.adj[u]))
	for i, e := range g.adj[u] {
		out[i] = g.Edges[e].Other(u)
	}
	return out
}

// TotalWeight returns the summed length of all edges in millimeters.
func (g *Graph) TotalWeight() uint64 {
	var total uint64
	for _, e := range g.Edges {
		total += uint64(e.Weight)
	}
	return total
}

// SyntheticWeight returns the summed length of synthetic edges only.
func (g *Graph) SyntheticWeight() uint64 {
	var total uint64
	for _, e := range g.Edges {
		if e.Synthetic {
			total += uint64(e.Weight)
		}
	}
	return total
}

// OddNodes returns the nodes with odd degree, in index order.
func (g *Graph) OddNodes() []uint32 {
	var odd []uint32
	for u := uint32(0); u < g.NumNodes; u++ {
		if len(g.adj[u])&1 == 1 {
			odd = append(odd, u)
		}
	}
	return odd
}

// Clone returns a deep copy that shares nothing with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		NumNodes: g.NumNodes,
		NodeIDs:  append([]NodeID(nil), g.NodeIDs...),
		NodeLat:  append([]float64(nil), g.NodeLat...),
		NodeLon:  append([]float64(nil), g.NodeLon...),
		Edges:    append([]Edge(nil), g.Edges...),
		adj:      make([][]uint32, len(g.adj)),
		index:    make(map[NodeID]uint32, len(g.index)),
	}
	for u, inc := range g.adj {
		c.adj[u] = append([]uint32(nil), inc...)
	}
	for id, idx := range g.index {
		c.index[id] = idx
	}
	return c
}

// Validate checks the structural invariants: array lengths agree, every
// edge endpoint exists, no self-loops, and incidence lists match Edges.
func (g *Graph) Validate() error {
	n := int(g.NumNodes)
	if len(g.NodeIDs) != n || len(g.NodeLat) != n || len(g.NodeLon) != n || len(g.adj) != n {
		return fmt.Errorf("%w: node arrays disagree with NumNodes=%d", ErrInvalidGraph, n)
	}
	degree := make([]int, n)
	for i, e := range g.Edges {
		if e.U >= g.NumNodes || e.V >= g.NumNodes {
			return fmt.Errorf("%w: edge %d has dangling endpoint", ErrInvalidGraph, i)
		}
		if e.U == e.V {
			return fmt.Errorf("%w: edge %d is a self-loop", ErrInvalidGraph, i)
		}
		degree[e.U]++
		degree[e.V]++
	}
	for u := range n {
		if degree[u] != len(g.adj[u]) {
			return fmt.Errorf("%w: incidence list of node %d out of sync", ErrInvalidGraph, g.NodeIDs[u])
		}
	}
	return nil
}

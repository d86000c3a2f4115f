package routing

import (
	"context"
	"math"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
)

const (
	noEdge   = math.MaxUint32
	noTarget = math.MaxUint32 // search the whole component
	inf      = math.MaxUint64
)

// MinHeap is a concrete-typed min-heap for Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Dist uint64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, dist uint64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() uint64 {
	if len(h.items) == 0 {
		return inf
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState holds per-query Dijkstra state. It is reused across queries
// through Reset, which clears only the entries the last query touched.
type QueryState struct {
	Dist     []uint64
	PredEdge []uint32 // edge used to reach the node (noEdge = none)
	Touched  []uint32
	PQ       MinHeap
}

// NewQueryState creates a new QueryState for a graph with n nodes.
func NewQueryState(n uint32) *QueryState {
	dist := make([]uint64, n)
	pred := make([]uint32, n)
	for i := range dist {
		dist[i] = inf
		pred[i] = noEdge
	}
	return &QueryState{
		Dist:     dist,
		PredEdge: pred,
		Touched:  make([]uint32, 0, 1024),
		PQ:       MinHeap{items: make([]PQItem, 0, 256)},
	}
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.Dist[node] = inf
		qs.PredEdge[node] = noEdge
	}
	qs.Touched = qs.Touched[:0]
	qs.PQ.Reset()
}

func (qs *QueryState) touch(node uint32, dist uint64, edge uint32) {
	if qs.Dist[node] == inf {
		qs.Touched = append(qs.Touched, node)
	}
	qs.Dist[node] = dist
	qs.PredEdge[node] = edge
}

// dijkstra runs a one-to-one search from source to target over the real
// edges of g and returns the target distance, or inf if unreachable.
// Synthetic edges are skipped. Predecessor edges are left in qs.
func dijkstra(ctx context.Context, g *graph.Graph, qs *QueryState, source, target uint32) (uint64, error) {
	qs.touch(source, 0, noEdge)
	qs.PQ.Push(source, 0)

	iterations := 0
	for qs.PQ.Len() > 0 {
		iterations++
		if iterations%100 == 0 {
			if err := ctx.Err(); err != nil {
				return inf, err
			}
		}

		item := qs.PQ.Pop()
		u, d := item.Node, item.Dist
		if d > qs.Dist[u] {
			continue // stale entry
		}
		if u == target {
			return d, nil
		}

		for _, ei := range g.Incident(u) {
			e := g.Edges[ei]
			if e.Synthetic {
				continue
			}
			v := e.Other(u)
			nd := d + uint64(e.Weight)
			if nd < qs.Dist[v] {
				qs.touch(v, nd, ei)
				qs.PQ.Push(v, nd)
			}
		}
	}
	return inf, nil
}

// tracePath walks predecessor edges back from target and returns the edge
// and node sequences from source to target.
func tracePath(g *graph.Graph, qs *QueryState, source, target uint32) (edges, nodes []uint32) {
	nodes = append(nodes, target)
	for u := target; u != source; {
		ei := qs.PredEdge[u]
		edges = append(edges, ei)
		u = g.Edges[ei].Other(u)
		nodes = append(nodes, u)
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return edges, nodes
}

package graph

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

func unionEdges(g *Graph) *UnionFind {
	uf := NewUnionFind(g.NumNodes)
	for _, e := range g.Edges {
		uf.Union(e.U, e.V)
	}
	return uf
}

// Components returns the connected components of g that contain at least
// one edge. Isolated nodes carry nothing to cover and are left out.
// Components are ordered by their lowest node index, nodes ascending.
func Components(g *Graph) [][]uint32 {
	uf := unionEdges(g)

	slot := make(map[uint32]int)
	var comps [][]uint32
	for u := uint32(0); u < g.NumNodes; u++ {
		if g.Degree(u) == 0 {
			continue
		}
		root := uf.Find(u)
		i, ok := slot[root]
		if !ok {
			i = len(comps)
			slot[root] = i
			comps = append(comps, nil)
		}
		comps[i] = append(comps[i], u)
	}
	return comps
}

// IsConnected reports whether all edges of g lie in a single component.
// A graph without edges is connected.
func IsConnected(g *Graph) bool {
	if len(g.Edges) == 0 {
		return true
	}
	uf := unionEdges(g)
	root := uf.Find(g.Edges[0].U)
	for _, e := range g.Edges[1:] {
		if uf.Find(e.U) != root {
			return false
		}
	}
	return true
}

// LargestComponent returns the node indices of the largest connected
// component, counted in nodes. Ties go to the component found first.
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := unionEdges(g)

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < g.NumNodes; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent creates a new graph containing only the specified nodes
// and the edges with both endpoints among them. Node order follows nodes;
// edge order and the synthetic flag are preserved.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	out := New()
	if len(nodes) == 0 {
		return out
	}

	oldToNew := make(map[uint32]uint32, len(nodes))
	for _, oldIdx := range nodes {
		oldToNew[oldIdx] = out.AddNode(g.NodeIDs[oldIdx], g.NodeLat[oldIdx], g.NodeLon[oldIdx])
	}

	for _, e := range g.Edges {
		u, okU := oldToNew[e.U]
		v, okV := oldToNew[e.V]
		if !okU || !okV {
			continue
		}
		out.mustAddEdge(u, v, e.Weight, e.Synthetic)
	}
	return out
}

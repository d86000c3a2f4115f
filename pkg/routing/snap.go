package routing

import (
	"errors"

	"github.com/tidwall/rtree"

	"github.com/Rayandri/deneigement-montreal/pkg/geo"
	"github.com/Rayandri/deneigement-montreal/pkg/graph"
)

// MaxSnapDistance is the largest distance in meters between a query point
// and the node it snaps to.
const MaxSnapDistance = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a graph node.
type SnapResult struct {
	Node uint32  // node index
	Dist float64 // distance in meters from query point to the node
}

// Snapper finds the graph node nearest to a coordinate. Nodes are stored
// as points in an R-tree keyed by (lon, lat).
type Snapper struct {
	tree rtree.RTreeG[uint32]
	g    *graph.Graph
}

// NewSnapper indexes every node of g that has at least one incident edge.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g}
	for u := uint32(0); u < g.NumNodes; u++ {
		if g.Degree(u) == 0 {
			continue
		}
		p := [2]float64{g.NodeLon[u], g.NodeLat[u]}
		s.tree.Insert(p, p, u)
	}
	return s
}

// Snap returns the nearest indexed node within MaxSnapDistance of (lat, lng).
// Ties go to the lower node index.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	box := geo.BoundAround(lat, lng, MaxSnapDistance)

	best := SnapResult{Dist: MaxSnapDistance}
	found := false
	s.tree.Search(box.Min, box.Max, func(_, _ [2]float64, u uint32) bool {
		d := geo.Distance(lat, lng, s.g.NodeLat[u], s.g.NodeLon[u])
		if d < best.Dist || (d == best.Dist && (!found || u < best.Node)) {
			best = SnapResult{Node: u, Dist: d}
			found = true
		}
		return true
	})

	if !found {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}

package graph

import (
	"log"

	"github.com/paulmach/osm"

	osmparser "github.com/Rayandri/deneigement-montreal/pkg/osm"
)

// Arc is a directed road arc as delivered by a road-network provider.
type Arc struct {
	From, To NodeID
	Weight   uint32 // millimeters
}

// Coords resolves the position of an external node id.
type Coords func(id NodeID) (lat, lon float64)

// arcKey identifies an unordered node pair with a given length.
type arcKey struct {
	lo, hi NodeID
	weight uint32
}

// FromArcs builds the undirected counterpart of a directed arc list.
// Direction is discarded and length kept. An arc u→v followed at any point
// by an unmatched v→u of the same length is the other half of a two-way
// street and collapses into the edge already created. Self-loops are dropped.
// Nodes are indexed in order of first appearance.
func FromArcs(arcs []Arc, coords Coords) *Graph {
	g := New()

	// pending[key][0] counts unpaired lo→hi arcs, [1] unpaired hi→lo arcs.
	pending := make(map[arcKey]*[2]int, len(arcs))
	var loops, collapsed int

	for _, a := range arcs {
		if a.From == a.To {
			loops++
			continue
		}
		key := arcKey{lo: a.From, hi: a.To, weight: a.Weight}
		dir := 0
		if a.From > a.To {
			key.lo, key.hi = a.To, a.From
			dir = 1
		}

		p := pending[key]
		if p == nil {
			p = new([2]int)
			pending[key] = p
		}
		if p[1-dir] > 0 {
			p[1-dir]--
			collapsed++
			continue
		}
		p[dir]++

		u := g.addWithCoords(a.From, coords)
		v := g.addWithCoords(a.To, coords)
		g.mustAddEdge(u, v, a.Weight, false)
	}

	if loops > 0 || collapsed > 0 {
		log.Printf("Undirected %d arcs: %d two-way pairs collapsed, %d self-loops dropped", len(arcs), collapsed, loops)
	}
	return g
}

func (g *Graph) addWithCoords(id NodeID, coords Coords) uint32 {
	if idx, ok := g.Lookup(id); ok {
		return idx
	}
	var lat, lon float64
	if coords != nil {
		lat, lon = coords(id)
	}
	return g.AddNode(id, lat, lon)
}

// Build creates an undirected street graph from parsed OSM segments.
func Build(result *osmparser.ParseResult) *Graph {
	if len(result.Edges) == 0 {
		return New()
	}

	arcs := make([]Arc, len(result.Edges))
	for i, e := range result.Edges {
		arcs[i] = Arc{From: NodeID(e.FromNodeID), To: NodeID(e.ToNodeID), Weight: e.Weight}
	}

	return FromArcs(arcs, func(id NodeID) (float64, float64) {
		return result.NodeLat[osm.NodeID(id)], result.NodeLon[osm.NodeID(id)]
	})
}

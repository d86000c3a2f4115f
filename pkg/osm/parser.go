package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/Rayandri/deneigement-montreal/pkg/geo"
)

// RawEdge is one street segment between two consecutive way nodes.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Weight     uint32 // distance in millimeters
	Oneway     bool   // traffic allowed in one direction only
	Highway    string // highway tag of the parent way
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// plowedHighways lists highway tag values that belong to the municipal
// drive network. Motorways are cleared by the province and are left out.
var plowedHighways = map[string]bool{
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isPlowed returns true if the way is a drivable street the city clears.
func isPlowed(tags osm.Tags, highways map[string]bool) bool {
	hw := tags.Find("highway")
	if !highways[hw] {
		return false
	}

	// Pedestrian plazas mapped as areas have no street to clear.
	if tags.Find("area") == "yes" {
		return false
	}

	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Direction changes by time of day; the street still needs clearing.
		forward = true
		backward = true
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs []osm.NodeID
	Oneway  bool
	Highway string
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Bound    orb.Bound       // if non-zero, keep only segments with both endpoints inside
	Highways map[string]bool // overrides the default plowed highway set
}

// Parse reads an OSM PBF file and returns the street segments of the drive
// network. The reader is consumed twice (seeks back to start for the second
// pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	highways := opt.Highways
	if highways == nil {
		highways = plowedHighways
	}
	useBound := opt.Bound != (orb.Bound{})

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isPlowed(w.Tags, highways) || len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs: nodeIDs,
			Oneway:  fwd != bwd,
			Highway: w.Tags.Find("highway"),
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	result := &ParseResult{NodeLat: nodeLat, NodeLon: nodeLon}
	skipped, filtered := buildEdges(result, ways, opt.Bound, useBound)

	if skipped > 0 {
		log.Printf("Warning: skipped %d segments due to missing node coordinates", skipped)
	}
	if filtered > 0 {
		log.Printf("Filtered %d segments outside bounding box", filtered)
	}
	log.Printf("Built %d street segments", len(result.Edges))

	return result, nil
}

// buildEdges splits ways into consecutive-node segments and appends them to
// result.Edges. Repeated consecutive nodes produce no segment.
func buildEdges(result *ParseResult, ways []wayInfo, bound orb.Bound, useBound bool) (skipped, filtered int) {
	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]
			if fromID == toID {
				continue
			}

			fromLat, fromOk := result.NodeLat[fromID]
			fromLon := result.NodeLon[fromID]
			toLat, toOk := result.NodeLat[toID]
			toLon := result.NodeLon[toID]
			if !fromOk || !toOk {
				skipped++
				continue
			}

			if useBound && (!bound.Contains(geo.Point(fromLat, fromLon)) || !bound.Contains(geo.Point(toLat, toLon))) {
				filtered++
				continue
			}

			result.Edges = append(result.Edges, RawEdge{
				FromNodeID: fromID,
				ToNodeID:   toID,
				Weight:     geo.Millimeters(geo.Distance(fromLat, fromLon, toLat, toLon)),
				Oneway:     w.Oneway,
				Highway:    w.Highway,
			})
		}
	}
	return skipped, filtered
}

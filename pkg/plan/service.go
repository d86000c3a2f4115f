package plan

import (
	"context"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

// Service plans a single loaded district, snapping optional start points
// to its streets. It is what the HTTP server holds.
type Service struct {
	planner  *Planner
	district District
	engine   *routing.Engine
}

// NewService builds the routing engine for g once and reuses it for every plan.
func NewService(p *Planner, name string, g *graph.Graph) *Service {
	engine := routing.NewEngine(g)
	return &Service{
		planner:  p,
		district: District{Name: name, Graph: g, Oracle: engine, Start: -1},
		engine:   engine,
	}
}

// Engine returns the point-to-point router of the district.
func (s *Service) Engine() *routing.Engine { return s.engine }

// PlanFrom plans the district. A nil start lets the circuit begin at the
// lowest-index node; otherwise it begins at the node nearest to start.
func (s *Service) PlanFrom(ctx context.Context, start *routing.LatLng, fleets []FleetRequest) (*Plan, error) {
	d := s.district
	if start != nil {
		snap, err := s.engine.Snap(*start)
		if err != nil {
			return nil, err
		}
		d.Start = int(snap.Node)
	}
	return s.planner.Plan(ctx, d, fleets)
}

// Geometry returns the coordinates visited by a circuit, starting at the
// first step's origin.
func (s *Service) Geometry(c postman.Circuit) []routing.LatLng {
	return Geometry(s.district.Graph, c)
}

// Geometry returns the coordinates visited by a circuit over g.
func Geometry(g *graph.Graph, c postman.Circuit) []routing.LatLng {
	if len(c) == 0 {
		return nil
	}
	out := make([]routing.LatLng, 0, len(c)+1)
	out = append(out, routing.LatLng{Lat: g.NodeLat[c[0].From], Lng: g.NodeLon[c[0].From]})
	for _, s := range c {
		out = append(out, routing.LatLng{Lat: g.NodeLat[s.To], Lng: g.NodeLon[s.To]})
	}
	return out
}

// Package plan runs the route-synthesis pipeline for a district and prices
// the result for each requested fleet.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/metrics"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

// ErrDuplicateFleet is returned when two fleet requests name the same vehicle type.
var ErrDuplicateFleet = errors.New("duplicate fleet vehicle type")

// District is one road network to cover.
type District struct {
	Name  string
	Graph *graph.Graph
	// Oracle answers shortest paths over Graph. Nil builds a routing.Engine.
	Oracle routing.Oracle
	// Start is the node index the circuit begins at; negative picks the
	// lowest-index node with streets.
	Start int
}

// FleetRequest asks for Count vehicles of one type.
type FleetRequest struct {
	Vehicle cost.VehicleType
	Count   int
}

// Stats describes the district graph and what Eulerization added to it.
type Stats struct {
	Nodes           int     `json:"nodes"`
	Streets         int     `json:"streets"`
	OddNodes        int     `json:"odd_nodes"`
	SyntheticEdges  int     `json:"synthetic_edges"`
	StreetMeters    float64 `json:"street_meters"`
	SyntheticMeters float64 `json:"synthetic_meters"`
	Approximate     bool    `json:"approximate"`
}

// SegmentPlan is the route of one vehicle.
type SegmentPlan struct {
	Steps  postman.Circuit `json:"-"`
	Meters float64         `json:"meters"`
	Hours  float64         `json:"hours"`
	Cost   float64         `json:"cost"`
}

// FleetPlan is the circuit split between the vehicles of one fleet.
type FleetPlan struct {
	Vehicle      string        `json:"vehicle"`
	Count        int           `json:"count"`
	Segments     []SegmentPlan `json:"segments"`
	TotalCost    float64       `json:"total_cost"`
	MaxHours     float64       `json:"max_hours"`
	VehicleHours float64       `json:"vehicle_hours"`
}

// Plan is the covering route of a district and its fleet assignments.
type Plan struct {
	ID             uuid.UUID            `json:"id"`
	District       string               `json:"district"`
	Stats          Stats                `json:"stats"`
	Circuit        postman.Circuit      `json:"-"`
	TotalMeters    float64              `json:"total_meters"`
	DeadheadMeters float64              `json:"deadhead_meters"`
	Fleets         map[string]FleetPlan `json:"fleets"`
}

// Options configures a Planner.
type Options struct {
	Postman postman.Options
	// PerComponent makes PlanAll split disconnected districts into one
	// district per connected component instead of failing them.
	PerComponent bool
	// Workers bounds the districts PlanAll plans at once.
	Workers int
}

// Planner runs the pipeline. It holds no per-plan state and is safe for
// concurrent use.
type Planner struct {
	opts Options
}

// New returns a Planner with the given options.
func New(opts Options) *Planner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Planner{opts: opts}
}

// Plan covers every street of the district once, then partitions and
// prices the expanded circuit for each fleet request.
func (p *Planner) Plan(ctx context.Context, d District, fleets []FleetRequest) (*Plan, error) {
	plan, err := p.plan(ctx, d, fleets)
	if err != nil {
		metrics.PlansTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("district %s: %w", d.Name, err)
	}
	metrics.PlansTotal.WithLabelValues("ok").Inc()
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, d District, fleets []FleetRequest) (*Plan, error) {
	if err := checkFleets(fleets); err != nil {
		return nil, err
	}
	if d.Graph == nil {
		return nil, fmt.Errorf("%w: no graph", postman.ErrInvalidGraph)
	}
	oracle := d.Oracle
	if oracle == nil {
		oracle = routing.NewEngine(d.Graph)
	}
	start := time.Now()

	stage := time.Now()
	eul, err := postman.Eulerize(ctx, d.Graph, oracle, p.opts.Postman)
	if err != nil {
		return nil, err
	}
	observe("eulerize", stage)

	stage = time.Now()
	raw, err := postman.ExtractCircuit(eul.Graph, d.Start)
	if err != nil {
		return nil, err
	}
	observe("extract", stage)

	stage = time.Now()
	circuit, err := postman.Expand(ctx, raw, eul.Graph, oracle)
	if err != nil {
		return nil, err
	}
	observe("expand", stage)

	plan := &Plan{
		ID:       uuid.New(),
		District: d.Name,
		Stats: Stats{
			Nodes:           int(d.Graph.NumNodes),
			Streets:         int(d.Graph.NumEdges()),
			OddNodes:        eul.OddNodes,
			SyntheticEdges:  len(eul.Added),
			StreetMeters:    meters(d.Graph.TotalWeight()),
			SyntheticMeters: meters(eul.AddedLength),
			Approximate:     eul.Approximate,
		},
		Circuit:        circuit,
		TotalMeters:    meters(circuit.Length()),
		DeadheadMeters: meters(circuit.DeadheadLength()),
		Fleets:         make(map[string]FleetPlan, len(fleets)),
	}

	for _, f := range fleets {
		fp, err := assign(circuit, f)
		if err != nil {
			return nil, err
		}
		plan.Fleets[f.Vehicle.Name] = fp
	}

	metrics.DeadheadMeters.Add(plan.DeadheadMeters)
	if eul.Approximate {
		metrics.ApproximateMatchings.Inc()
	}
	observe("total", start)
	log.Printf("District %s: %d streets, %.1f km, deadhead %.1f km, %d fleets in %s",
		d.Name, plan.Stats.Streets, plan.TotalMeters/1000, plan.DeadheadMeters/1000,
		len(fleets), time.Since(start).Round(time.Millisecond))
	return plan, nil
}

// assign splits the circuit between the fleet's vehicles and prices each part.
func assign(c postman.Circuit, f FleetRequest) (FleetPlan, error) {
	segs, err := postman.Partition(c, f.Count)
	if err != nil {
		return FleetPlan{}, err
	}
	km := make([]float64, len(segs))
	for i, s := range segs {
		km[i] = float64(s.Length) / 1e6
	}
	est := cost.Estimate(f.Vehicle, km)

	fp := FleetPlan{
		Vehicle:      f.Vehicle.Name,
		Count:        f.Count,
		Segments:     make([]SegmentPlan, len(segs)),
		TotalCost:    est.TotalCost,
		MaxHours:     est.MaxHours,
		VehicleHours: est.VehicleHours,
	}
	for i, s := range segs {
		fp.Segments[i] = SegmentPlan{
			Steps:  s.Steps,
			Meters: meters(s.Length),
			Hours:  est.Vehicles[i].Hours,
			Cost:   est.Vehicles[i].Cost,
		}
	}
	return fp, nil
}

func checkFleets(fleets []FleetRequest) error {
	seen := make(map[string]bool, len(fleets))
	for _, f := range fleets {
		if err := f.Vehicle.Validate(); err != nil {
			return err
		}
		if f.Count < 1 || f.Count > cost.MaxVehicles {
			return fmt.Errorf("%w: %d vehicles of %s (allowed 1 to %d)", postman.ErrInvalidFleet, f.Count, f.Vehicle.Name, cost.MaxVehicles)
		}
		if seen[f.Vehicle.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateFleet, f.Vehicle.Name)
		}
		seen[f.Vehicle.Name] = true
	}
	return nil
}

// Requests resolves the fleets of a config file against its vehicle types.
func Requests(cfg *cost.Config) ([]FleetRequest, error) {
	reqs := make([]FleetRequest, 0, len(cfg.Fleets))
	for _, f := range cfg.Fleets {
		v, ok := cfg.Lookup(f.Vehicle)
		if !ok {
			return nil, fmt.Errorf("%w: unknown vehicle type %q", cost.ErrInvalidConfig, f.Vehicle)
		}
		reqs = append(reqs, FleetRequest{Vehicle: v, Count: f.Count})
	}
	return reqs, nil
}

func meters(mm uint64) float64 { return float64(mm) / 1000 }

func observe(stage string, since time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(since).Seconds())
}

package plan

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

type edgeDef struct {
	u, v int
	w    uint32
}

func newGraph(t *testing.T, n int, edges ...edgeDef) *graph.Graph {
	t.Helper()
	g := graph.New()
	for i := range n {
		g.AddNode(graph.NodeID(100+i), 45.5+float64(i)*1e-3, -73.6)
	}
	for _, e := range edges {
		_, err := g.AddEdge(uint32(e.u), uint32(e.v), e.w, false)
		require.NoError(t, err)
	}
	return g
}

// line is 0 -(1 m)- 1 -(2 m)- 2: both ends are odd.
func line(t *testing.T) *graph.Graph {
	return newGraph(t, 3, edgeDef{0, 1, 1000}, edgeDef{1, 2, 2000})
}

func plow() cost.VehicleType {
	return cost.VehicleType{
		Name:                   "plow",
		SpeedKmh:               10,
		FixedCost:              50,
		CostPerKm:              2,
		HourlyRateNormal:       1.1,
		HourlyRateOvertime:     1.3,
		OvertimeThresholdHours: 8,
	}
}

func TestPlanLine(t *testing.T) {
	p := New(Options{})
	res, err := p.Plan(context.Background(), District{Name: "line", Graph: line(t), Start: -1},
		[]FleetRequest{{Vehicle: plow(), Count: 2}})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.ID)
	assert.Equal(t, "line", res.District)
	assert.Equal(t, Stats{
		Nodes:           3,
		Streets:         2,
		OddNodes:        2,
		SyntheticEdges:  1,
		StreetMeters:    3,
		SyntheticMeters: 3,
	}, res.Stats)
	assert.InDelta(t, 6.0, res.TotalMeters, 1e-9)
	assert.InDelta(t, 3.0, res.DeadheadMeters, 1e-9)
	assert.True(t, res.Circuit.Closed())

	fp, ok := res.Fleets["plow"]
	require.True(t, ok)
	assert.Equal(t, 2, fp.Count)
	require.Len(t, fp.Segments, 2)

	var meters, costSum, hours float64
	for _, s := range fp.Segments {
		meters += s.Meters
		costSum += s.Cost
		hours += s.Hours
		assert.InDelta(t, s.Meters/1000/10, s.Hours, 1e-12)
	}
	assert.InDelta(t, res.TotalMeters, meters, 1e-9)
	assert.InDelta(t, costSum, fp.TotalCost, 1e-9)
	assert.InDelta(t, hours, fp.VehicleHours, 1e-12)
	assert.LessOrEqual(t, fp.MaxHours, fp.VehicleHours)
}

func TestPlanEvenGraphHasNoDeadhead(t *testing.T) {
	g := newGraph(t, 4, edgeDef{0, 1, 500}, edgeDef{1, 2, 500}, edgeDef{2, 3, 500}, edgeDef{3, 0, 500})
	res, err := New(Options{}).Plan(context.Background(), District{Name: "sq", Graph: g, Start: 2},
		[]FleetRequest{{Vehicle: plow(), Count: 1}})
	require.NoError(t, err)

	assert.Zero(t, res.DeadheadMeters)
	assert.InDelta(t, 2.0, res.TotalMeters, 1e-9)
	require.Len(t, res.Circuit, 4)
	assert.Equal(t, uint32(2), res.Circuit[0].From)
	assert.Len(t, res.Fleets["plow"].Segments[0].Steps, 4)
}

func TestPlanSeveralFleets(t *testing.T) {
	drone := cost.DefaultVehicleTypes()[2]
	res, err := New(Options{}).Plan(context.Background(), District{Name: "line", Graph: line(t), Start: -1},
		[]FleetRequest{{Vehicle: plow(), Count: 3}, {Vehicle: drone, Count: 1}})
	require.NoError(t, err)

	require.Len(t, res.Fleets, 2)
	assert.Len(t, res.Fleets["plow"].Segments, 3)
	assert.Len(t, res.Fleets[drone.Name].Segments, 1)
	assert.InDelta(t, res.TotalMeters, res.Fleets[drone.Name].Segments[0].Meters, 1e-9)
}

func TestPlanRejectsBadFleets(t *testing.T) {
	d := District{Name: "line", Graph: line(t), Start: -1}
	p := New(Options{})

	_, err := p.Plan(context.Background(), d, []FleetRequest{{Vehicle: plow(), Count: 0}})
	assert.ErrorIs(t, err, postman.ErrInvalidFleet)

	_, err = p.Plan(context.Background(), d, []FleetRequest{{Vehicle: plow(), Count: cost.MaxVehicles + 1}})
	assert.ErrorIs(t, err, postman.ErrInvalidFleet)

	_, err = p.Plan(context.Background(), d, []FleetRequest{{Vehicle: plow(), Count: 1}, {Vehicle: plow(), Count: 2}})
	assert.ErrorIs(t, err, ErrDuplicateFleet)

	bad := plow()
	bad.SpeedKmh = 0
	_, err = p.Plan(context.Background(), d, []FleetRequest{{Vehicle: bad, Count: 1}})
	assert.ErrorIs(t, err, cost.ErrInvalidVehicle)

	_, err = p.Plan(context.Background(), District{Name: "none", Start: -1}, nil)
	assert.ErrorIs(t, err, postman.ErrInvalidGraph)
}

func TestPlanDisconnected(t *testing.T) {
	g := newGraph(t, 4, edgeDef{0, 1, 1000}, edgeDef{2, 3, 1000})
	_, err := New(Options{}).Plan(context.Background(), District{Name: "split", Graph: g, Start: -1}, nil)
	assert.ErrorIs(t, err, postman.ErrDisconnectedGraph)
}

func TestPlanAllIsolatesFailures(t *testing.T) {
	bad := newGraph(t, 4, edgeDef{0, 1, 1000}, edgeDef{2, 3, 1000})
	districts := []District{
		{Name: "good", Graph: line(t), Start: -1},
		{Name: "bad", Graph: bad, Start: -1},
		{Name: "also-good", Graph: line(t), Start: -1},
	}
	results := New(Options{Workers: 2}).PlanAll(context.Background(), districts,
		[]FleetRequest{{Vehicle: plow(), Count: 1}})

	require.Len(t, results, 3)
	assert.Equal(t, "good", results[0].District)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Plan)

	assert.Equal(t, "bad", results[1].District)
	assert.ErrorIs(t, results[1].Err, postman.ErrDisconnectedGraph)
	assert.Nil(t, results[1].Plan)

	assert.NoError(t, results[2].Err)
	assert.InDelta(t, results[0].Plan.TotalMeters, results[2].Plan.TotalMeters, 1e-9)
	assert.NotEqual(t, results[0].Plan.ID, results[2].Plan.ID)
}

func TestPlanAllPerComponent(t *testing.T) {
	g := newGraph(t, 5, edgeDef{0, 1, 1000}, edgeDef{2, 3, 4000}, edgeDef{3, 4, 4000}, edgeDef{4, 2, 4000})
	results := New(Options{PerComponent: true}).PlanAll(context.Background(),
		[]District{{Name: "d", Graph: g, Start: 3}},
		[]FleetRequest{{Vehicle: plow(), Count: 1}})

	require.Len(t, results, 2)
	assert.Equal(t, "d/1", results[0].District)
	assert.Equal(t, "d/2", results[1].District)
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	// The single street is driven there and back.
	assert.InDelta(t, 2.0, results[0].Plan.TotalMeters, 1e-9)
	assert.InDelta(t, 1.0, results[0].Plan.DeadheadMeters, 1e-9)
	// The triangle is already Eulerian and starts at the requested node.
	assert.InDelta(t, 12.0, results[1].Plan.TotalMeters, 1e-9)
	assert.Zero(t, results[1].Plan.DeadheadMeters)
	first := results[1].Plan.Circuit[0].From
	assert.Equal(t, graph.NodeID(103), g.NodeIDs[3])
	assert.Equal(t, uint32(1), first, "node 103 is the second node of its component")
}

func TestSplitComponentsConnected(t *testing.T) {
	d := District{Name: "line", Graph: line(t), Start: 1}
	parts := SplitComponents(d)
	require.Len(t, parts, 1)
	assert.Equal(t, d, parts[0])
}

func TestRequests(t *testing.T) {
	cfg, err := cost.ParseFleet([]byte("fleets:\n  - vehicle: plow_type_1\n    count: 2\n  - vehicle: drone\n    count: 1\n"))
	require.NoError(t, err)

	reqs, err := Requests(cfg)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "plow_type_1", reqs[0].Vehicle.Name)
	assert.Equal(t, 2, reqs[0].Count)
	assert.Equal(t, "drone", reqs[1].Vehicle.Name)

	cfg.Fleets = append(cfg.Fleets, cost.Fleet{Vehicle: "snowcat", Count: 1})
	_, err = Requests(cfg)
	assert.ErrorIs(t, err, cost.ErrInvalidConfig)
}

func TestServicePlanFrom(t *testing.T) {
	g := line(t)
	s := NewService(New(Options{}), "line", g)

	res, err := s.PlanFrom(context.Background(), &routing.LatLng{Lat: 45.50201, Lng: -73.6},
		[]FleetRequest{{Vehicle: plow(), Count: 1}})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Circuit[0].From)

	geom := s.Geometry(res.Circuit)
	require.Len(t, geom, len(res.Circuit)+1)
	assert.Equal(t, geom[0], geom[len(geom)-1])
	assert.InDelta(t, 45.502, geom[0].Lat, 1e-9)

	res, err = s.PlanFrom(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), res.Circuit[0].From)
	assert.Empty(t, res.Fleets)

	_, err = s.PlanFrom(context.Background(), &routing.LatLng{Lat: 10, Lng: 10}, nil)
	assert.ErrorIs(t, err, routing.ErrPointTooFar)
}

package api

import (
	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/plan"
)

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	TotalDistanceMeters float64       `json:"total_distance_meters"`
	Segments            []SegmentJSON `json:"segments"`
}

// SegmentJSON represents a road segment in the response.
type SegmentJSON struct {
	DistanceMeters float64      `json:"distance_meters"`
	Geometry       []LatLngJSON `json:"geometry"`
}

// PlanRequest is the JSON body for POST /api/v1/plan. Fleets name vehicle
// types known to the server; VehicleTypes may add or override types for
// this request only.
type PlanRequest struct {
	Fleets          []cost.Fleet       `json:"fleets"`
	VehicleTypes    []cost.VehicleType `json:"vehicle_types,omitempty"`
	Start           *LatLngJSON        `json:"start,omitempty"`
	IncludeGeometry bool               `json:"include_geometry,omitempty"`
}

// PlanResponse is the JSON response for a successful plan.
type PlanResponse struct {
	ID             string          `json:"id"`
	District       string          `json:"district"`
	Stats          plan.Stats      `json:"stats"`
	TotalMeters    float64         `json:"total_meters"`
	DeadheadMeters float64         `json:"deadhead_meters"`
	Fleets         []FleetPlanJSON `json:"fleets"`
}

// FleetPlanJSON is one fleet of a plan response.
type FleetPlanJSON struct {
	Vehicle      string             `json:"vehicle"`
	Count        int                `json:"count"`
	TotalCost    float64            `json:"total_cost"`
	MaxHours     float64            `json:"max_hours"`
	VehicleHours float64            `json:"vehicle_hours"`
	Vehicles     []VehicleRouteJSON `json:"vehicles"`
}

// VehicleRouteJSON is the route of one vehicle.
type VehicleRouteJSON struct {
	Steps    int          `json:"steps"`
	Meters   float64      `json:"meters"`
	Hours    float64      `json:"hours"`
	Cost     float64      `json:"cost"`
	Geometry []LatLngJSON `json:"geometry,omitempty"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	District     string   `json:"district"`
	NumNodes     uint32   `json:"num_nodes"`
	NumStreets   uint32   `json:"num_streets"`
	OddNodes     int      `json:"odd_nodes"`
	StreetMeters float64  `json:"street_meters"`
	VehicleTypes []string `json:"vehicle_types"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

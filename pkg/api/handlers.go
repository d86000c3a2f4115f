package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"github.com/samber/lo"

	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/plan"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

// Planner plans the loaded district. plan.Service implements it.
type Planner interface {
	PlanFrom(ctx context.Context, start *routing.LatLng, fleets []plan.FleetRequest) (*plan.Plan, error)
	Geometry(c postman.Circuit) []routing.LatLng
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router   routing.Router
	planner  Planner
	vehicles []cost.VehicleType
	stats    StatsResponse
}

// NewHandlers creates handlers. vehicles are the types fleet requests may name.
func NewHandlers(router routing.Router, planner Planner, vehicles []cost.VehicleType, stats StatsResponse) *Handlers {
	stats.VehicleTypes = lo.Map(vehicles, func(v cost.VehicleType, _ int) string { return v.Name })
	return &Handlers{
		router:   router,
		planner:  planner,
		vehicles: vehicles,
		stats:    stats,
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return
	}

	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start", err.Error())
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end", err.Error())
		return
	}

	result, err := h.router.Route(r.Context(), routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng}, routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng})
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, "", "")
		return
	}

	resp := RouteResponse{
		TotalDistanceMeters: result.TotalDistanceMeters,
	}
	for _, seg := range result.Segments {
		resp.Segments = append(resp.Segments, SegmentJSON{
			DistanceMeters: seg.DistanceMeters,
			Geometry:       toJSON(seg.Geometry),
		})
	}

	writeJSON(w, resp)
}

// HandlePlan handles POST /api/v1/plan.
func (h *Handlers) HandlePlan(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return
	}
	if len(req.Fleets) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "fleets", "at least one fleet is required")
		return
	}

	var start *routing.LatLng
	if req.Start != nil {
		if err := validateCoord(*req.Start); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "start", err.Error())
			return
		}
		start = &routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng}
	}

	cfg := &cost.Config{VehicleTypes: h.vehicleTypes(req.VehicleTypes), Fleets: req.Fleets}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_fleet", "fleets", err.Error())
		return
	}
	fleets, err := plan.Requests(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_fleet", "fleets", err.Error())
		return
	}

	p, err := h.planner.PlanFrom(r.Context(), start, fleets)
	if err != nil {
		status, code := errorStatus(err)
		msg := ""
		if status < http.StatusInternalServerError {
			msg = err.Error()
		}
		writeError(w, status, code, "", msg)
		return
	}

	resp := PlanResponse{
		ID:             p.ID.String(),
		District:       p.District,
		Stats:          p.Stats,
		TotalMeters:    p.TotalMeters,
		DeadheadMeters: p.DeadheadMeters,
		Fleets:         make([]FleetPlanJSON, 0, len(fleets)),
	}
	for _, f := range fleets {
		fp := p.Fleets[f.Vehicle.Name]
		out := FleetPlanJSON{
			Vehicle:      fp.Vehicle,
			Count:        fp.Count,
			TotalCost:    fp.TotalCost,
			MaxHours:     fp.MaxHours,
			VehicleHours: fp.VehicleHours,
			Vehicles:     make([]VehicleRouteJSON, len(fp.Segments)),
		}
		for i, s := range fp.Segments {
			v := VehicleRouteJSON{Steps: len(s.Steps), Meters: s.Meters, Hours: s.Hours, Cost: s.Cost}
			if req.IncludeGeometry {
				v.Geometry = toJSON(h.planner.Geometry(s.Steps))
			}
			out.Vehicles[i] = v
		}
		resp.Fleets = append(resp.Fleets, out)
	}

	writeJSON(w, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats)
}

// vehicleTypes merges request-local types over the server's types.
func (h *Handlers) vehicleTypes(extra []cost.VehicleType) []cost.VehicleType {
	defined := lo.SliceToMap(extra, func(v cost.VehicleType) (string, bool) { return v.Name, true })
	return append(append([]cost.VehicleType(nil), extra...),
		lo.Reject(h.vehicles, func(v cost.VehicleType, _ int) bool { return defined[v.Name] })...)
}

// errorStatus maps planner and router errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, routing.ErrPointTooFar):
		return http.StatusUnprocessableEntity, "point_too_far_from_road"
	case errors.Is(err, postman.ErrInvalidFleet),
		errors.Is(err, plan.ErrDuplicateFleet),
		errors.Is(err, cost.ErrInvalidVehicle),
		errors.Is(err, cost.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_fleet"
	case errors.Is(err, postman.ErrDisconnectedGraph):
		return http.StatusConflict, "disconnected_graph"
	case errors.Is(err, routing.ErrNoRoute):
		return http.StatusNotFound, "no_route_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func toJSON(geom []routing.LatLng) []LatLngJSON {
	out := make([]LatLngJSON, len(geom))
	for i, ll := range geom {
		out[i] = LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field, Message: msg})
}

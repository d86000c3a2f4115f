package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/plan"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

// mockRouter implements routing.Router for testing.
type mockRouter struct {
	result *routing.RouteResult
	err    error
}

func (m *mockRouter) Route(ctx context.Context, start, end routing.LatLng) (*routing.RouteResult, error) {
	return m.result, m.err
}

// mockPlanner splits a fixed 3 km circuit evenly and records its inputs.
type mockPlanner struct {
	err    error
	start  *routing.LatLng
	fleets []plan.FleetRequest
}

func (m *mockPlanner) PlanFrom(ctx context.Context, start *routing.LatLng, fleets []plan.FleetRequest) (*plan.Plan, error) {
	m.start, m.fleets = start, fleets
	if m.err != nil {
		return nil, m.err
	}
	p := &plan.Plan{
		ID:             uuid.New(),
		District:       "verdun",
		TotalMeters:    3000,
		DeadheadMeters: 500,
		Fleets:         make(map[string]plan.FleetPlan),
	}
	for _, f := range fleets {
		fp := plan.FleetPlan{Vehicle: f.Vehicle.Name, Count: f.Count}
		for range f.Count {
			fp.Segments = append(fp.Segments, plan.SegmentPlan{
				Steps:  postman.Circuit{{From: 0, To: 1}},
				Meters: 3000 / float64(f.Count),
			})
		}
		p.Fleets[f.Vehicle.Name] = fp
	}
	return p, nil
}

func (m *mockPlanner) Geometry(c postman.Circuit) []routing.LatLng {
	return []routing.LatLng{{Lat: 45.45, Lng: -73.57}, {Lat: 45.46, Lng: -73.56}}
}

func newTestHandlers(router routing.Router, planner Planner) *Handlers {
	return NewHandlers(router, planner, cost.DefaultVehicleTypes(), StatsResponse{District: "verdun", NumNodes: 100})
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleRoute_Success(t *testing.T) {
	mock := &mockRouter{
		result: &routing.RouteResult{
			TotalDistanceMeters: 1234.5,
			Segments: []routing.Segment{
				{
					DistanceMeters: 1234.5,
					Geometry: []routing.LatLng{
						{Lat: 45.50, Lng: -73.57},
						{Lat: 45.51, Lng: -73.56},
					},
				},
			},
		},
	}
	h := newTestHandlers(mock, &mockPlanner{})

	w := httptest.NewRecorder()
	h.HandleRoute(w, postJSON("/api/v1/route", `{"start":{"lat":45.5,"lng":-73.57},"end":{"lat":45.51,"lng":-73.56}}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	var resp RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalDistanceMeters != 1234.5 {
		t.Errorf("TotalDistanceMeters = %f, want 1234.5", resp.TotalDistanceMeters)
	}
	if len(resp.Segments) != 1 || len(resp.Segments[0].Geometry) != 2 {
		t.Errorf("Segments = %+v, want one segment with 2 points", resp.Segments)
	}
}

func TestHandleRoute_InvalidJSON(t *testing.T) {
	h := newTestHandlers(&mockRouter{}, &mockPlanner{})

	w := httptest.NewRecorder()
	h.HandleRoute(w, postJSON("/api/v1/route", "not json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRoute_MissingContentType(t *testing.T) {
	h := newTestHandlers(&mockRouter{}, &mockPlanner{})

	body := `{"start":{"lat":45.5,"lng":-73.57},"end":{"lat":45.51,"lng":-73.56}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRoute_OutOfBounds(t *testing.T) {
	h := newTestHandlers(&mockRouter{}, &mockPlanner{})

	w := httptest.NewRecorder()
	h.HandleRoute(w, postJSON("/api/v1/route", `{"start":{"lat":91.0,"lng":-73.57},"end":{"lat":45.51,"lng":-73.56}}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Field != "start" {
		t.Errorf("field = %q, want start", resp.Field)
	}
}

func TestHandleRoute_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no route", routing.ErrNoRoute, http.StatusNotFound},
		{"point too far", routing.ErrPointTooFar, http.StatusUnprocessableEntity},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(&mockRouter{err: tt.err}, &mockPlanner{})
			w := httptest.NewRecorder()
			h.HandleRoute(w, postJSON("/api/v1/route", `{"start":{"lat":45.5,"lng":-73.57},"end":{"lat":45.51,"lng":-73.56}}`))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandlePlan_Success(t *testing.T) {
	planner := &mockPlanner{}
	h := newTestHandlers(&mockRouter{}, planner)

	body := `{"fleets":[{"vehicle":"plow_type_1","count":3},{"vehicle":"drone","count":1}],
		"start":{"lat":45.46,"lng":-73.57},"include_geometry":true}`
	w := httptest.NewRecorder()
	h.HandlePlan(w, postJSON("/api/v1/plan", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	var resp PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Errorf("id %q is not a uuid: %v", resp.ID, err)
	}
	if len(resp.Fleets) != 2 {
		t.Fatalf("fleets = %d, want 2", len(resp.Fleets))
	}
	if resp.Fleets[0].Vehicle != "plow_type_1" || len(resp.Fleets[0].Vehicles) != 3 {
		t.Errorf("first fleet = %+v, want 3 plow_type_1 vehicles", resp.Fleets[0])
	}
	if resp.Fleets[1].Vehicle != "drone" {
		t.Errorf("second fleet = %q, want drone", resp.Fleets[1].Vehicle)
	}
	if len(resp.Fleets[0].Vehicles[0].Geometry) != 2 {
		t.Errorf("geometry missing from vehicle route")
	}

	if planner.start == nil || planner.start.Lat != 45.46 {
		t.Errorf("start = %+v, want 45.46,-73.57", planner.start)
	}
	if planner.fleets[0].Vehicle.SpeedKmh != 10 {
		t.Errorf("plow_type_1 speed = %v, want built-in 10", planner.fleets[0].Vehicle.SpeedKmh)
	}
}

func TestHandlePlan_RequestVehicleTypes(t *testing.T) {
	planner := &mockPlanner{}
	h := newTestHandlers(&mockRouter{}, planner)

	body := `{"fleets":[{"vehicle":"plow_type_1","count":1}],
		"vehicle_types":[{"name":"plow_type_1","speed_kmh":25,"fixed_cost":10}]}`
	w := httptest.NewRecorder()
	h.HandlePlan(w, postJSON("/api/v1/plan", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	if planner.start != nil {
		t.Errorf("start = %+v, want nil", planner.start)
	}
	if got := planner.fleets[0].Vehicle.SpeedKmh; got != 25 {
		t.Errorf("speed = %v, want request override 25", got)
	}

	var resp PlanResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Fleets[0].Vehicles[0].Geometry != nil {
		t.Errorf("geometry returned without include_geometry")
	}
}

func TestHandlePlan_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", "{", "invalid_request"},
		{"no fleets", `{"fleets":[]}`, "invalid_request"},
		{"unknown vehicle", `{"fleets":[{"vehicle":"snowcat","count":1}]}`, "invalid_fleet"},
		{"zero count", `{"fleets":[{"vehicle":"drone","count":0}]}`, "invalid_fleet"},
		{"too many vehicles", `{"fleets":[{"vehicle":"drone","count":5000000000}]}`, "invalid_fleet"},
		{"bad start", `{"fleets":[{"vehicle":"drone","count":1}],"start":{"lat":100,"lng":0}}`, "invalid_coordinates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &mockPlanner{}
			h := newTestHandlers(&mockRouter{}, planner)
			w := httptest.NewRecorder()
			h.HandlePlan(w, postJSON("/api/v1/plan", tt.body))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400. body: %s", w.Code, w.Body.String())
			}
			if planner.fleets != nil {
				t.Errorf("planner ran for a rejected request: %+v", planner.fleets)
			}
			var resp ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error != tt.code {
				t.Errorf("error = %q, want %q", resp.Error, tt.code)
			}
		})
	}
}

func TestHandlePlan_PlannerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"disconnected", fmt.Errorf("district x: %w: %w", postman.ErrDisconnectedGraph, routing.ErrNoRoute), http.StatusConflict},
		{"point too far", routing.ErrPointTooFar, http.StatusUnprocessableEntity},
		{"duplicate fleet", plan.ErrDuplicateFleet, http.StatusBadRequest},
		{"invariant", postman.ErrInternalInvariant, http.StatusInternalServerError},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(&mockRouter{}, &mockPlanner{err: tt.err})
			w := httptest.NewRecorder()
			h.HandlePlan(w, postJSON("/api/v1/plan", `{"fleets":[{"vehicle":"drone","count":1}]}`))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(&mockRouter{}, &mockPlanner{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	stats := StatsResponse{District: "verdun", NumNodes: 5000, NumStreets: 7200, OddNodes: 1800}
	h := NewHandlers(&mockRouter{}, &mockPlanner{}, cost.DefaultVehicleTypes(), stats)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.NumNodes != 5000 || resp.OddNodes != 1800 {
		t.Errorf("stats = %+v, want 5000 nodes and 1800 odd nodes", resp)
	}
	if len(resp.VehicleTypes) != len(cost.DefaultVehicleTypes()) {
		t.Errorf("vehicle types = %v", resp.VehicleTypes)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Rayandri/deneigement-montreal/pkg/api"
	"github.com/Rayandri/deneigement-montreal/pkg/cost"
)

var httpClient = &http.Client{Timeout: 3 * time.Minute}

func main() {
	serverURL := flag.String("server-url", "http://localhost:8080", "Planner server URL")
	fleets := flag.String("fleets", "plow_type_1:1", "Comma-separated vehicle:count list")
	start := flag.String("start", "", "Start point lat,lng (optional)")
	output := flag.String("output", "plan.geojson", "Output GeoJSON file ('-' for stdout)")
	flag.Parse()

	req, err := buildRequest(*fleets, *start)
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	log.Printf("Requesting plan from %s...", *serverURL)
	resp, err := requestPlan(*serverURL, req)
	if err != nil {
		log.Fatalf("Plan request failed: %v", err)
	}
	log.Printf("Plan %s: %.1f km, deadhead %.1f km", resp.ID, resp.TotalMeters/1000, resp.DeadheadMeters/1000)

	data, err := toGeoJSON(resp).MarshalJSON()
	if err != nil {
		log.Fatalf("Failed to encode GeoJSON: %v", err)
	}
	if *output == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("Wrote %s (%d bytes)", *output, len(data))
}

// buildRequest parses "vehicle:count,..." and an optional "lat,lng".
func buildRequest(fleets, start string) (api.PlanRequest, error) {
	req := api.PlanRequest{IncludeGeometry: true}
	for _, part := range strings.Split(fleets, ",") {
		name, count, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return req, fmt.Errorf("fleet %q: expected vehicle:count", part)
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return req, fmt.Errorf("fleet %q: %w", part, err)
		}
		req.Fleets = append(req.Fleets, cost.Fleet{Vehicle: name, Count: n})
	}
	if start != "" {
		var ll api.LatLngJSON
		if _, err := fmt.Sscanf(start, "%f,%f", &ll.Lat, &ll.Lng); err != nil {
			return req, fmt.Errorf("start %q: expected lat,lng: %w", start, err)
		}
		req.Start = &ll
	}
	return req, nil
}

func requestPlan(serverURL string, req api.PlanRequest) (*api.PlanResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpResp, err := httpClient.Post(strings.TrimRight(serverURL, "/")+"/api/v1/plan", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 256<<20))
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("HTTP %d: %s %s", httpResp.StatusCode, apiErr.Error, apiErr.Message)
		}
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, truncate(string(data), 200))
	}

	var resp api.PlanResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &resp, nil
}

// toGeoJSON emits one LineString feature per vehicle route.
func toGeoJSON(p *api.PlanResponse) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range p.Fleets {
		for i, v := range f.Vehicles {
			if len(v.Geometry) < 2 {
				continue
			}
			line := make(orb.LineString, len(v.Geometry))
			for j, ll := range v.Geometry {
				line[j] = orb.Point{ll.Lng, ll.Lat}
			}
			feat := geojson.NewFeature(line)
			feat.Properties["plan"] = p.ID
			feat.Properties["district"] = p.District
			feat.Properties["fleet"] = f.Vehicle
			feat.Properties["vehicle"] = i + 1
			feat.Properties["meters"] = v.Meters
			feat.Properties["hours"] = v.Hours
			feat.Properties["cost"] = v.Cost
			fc.Append(feat)
		}
	}
	return fc
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/plan"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

func main() {
	graphs := flag.String("graph", "district.bin", "Comma-separated district graph binaries")
	fleetPath := flag.String("fleet", "", "YAML fleet file (default: one vehicle of each built-in type)")
	startFlag := flag.String("start", "", "Start point lat,lng for every district (default: lowest node)")
	perComponent := flag.Bool("per-component", false, "Plan each connected component of a disconnected district separately")
	matching := flag.String("matching", "auto", "Odd-node matching: auto, exact or greedy")
	workers := flag.Int("workers", 0, "Concurrent shortest-path queries per district (default: GOMAXPROCS)")
	asJSON := flag.Bool("json", false, "Print plans as JSON instead of a summary")
	flag.Parse()

	fleets, err := loadFleets(*fleetPath)
	if err != nil {
		log.Fatalf("Failed to load fleets: %v", err)
	}

	strategy, err := postman.ParseMatchStrategy(*matching)
	if err != nil {
		log.Fatalf("Invalid --matching: %v", err)
	}
	opts := plan.Options{Postman: postman.DefaultOptions(), PerComponent: *perComponent}
	opts.Postman.Matching = strategy
	if *workers > 0 {
		opts.Postman.Workers = *workers
	}

	var start *routing.LatLng
	if *startFlag != "" {
		var ll routing.LatLng
		if _, err := fmt.Sscanf(*startFlag, "%f,%f", &ll.Lat, &ll.Lng); err != nil {
			log.Fatalf("Invalid --start (expected lat,lng): %v", err)
		}
		start = &ll
	}

	var districts []plan.District
	for _, path := range strings.Split(*graphs, ",") {
		path = strings.TrimSpace(path)
		g, err := graph.ReadBinary(path)
		if err != nil {
			log.Fatalf("Failed to load graph %s: %v", path, err)
		}
		d := plan.District{
			Name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Graph: g,
			Start: -1,
		}
		if start != nil {
			engine := routing.NewEngine(g)
			snap, err := engine.Snap(*start)
			if err != nil {
				log.Fatalf("District %s: start point: %v", d.Name, err)
			}
			d.Oracle, d.Start = engine, int(snap.Node)
		}
		log.Printf("Loaded %s: %d nodes, %d streets", d.Name, g.NumNodes, g.NumEdges())
		districts = append(districts, d)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	began := time.Now()
	results := plan.New(opts).PlanAll(ctx, districts, fleets)
	log.Printf("Planned %d districts in %s", len(results), time.Since(began).Round(time.Millisecond))

	failed := 0
	if *asJSON {
		failed = writeJSON(os.Stdout, results)
	} else {
		failed = writeSummary(os.Stdout, results)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func loadFleets(path string) ([]plan.FleetRequest, error) {
	if path == "" {
		var reqs []plan.FleetRequest
		for _, v := range cost.DefaultVehicleTypes() {
			reqs = append(reqs, plan.FleetRequest{Vehicle: v, Count: 1})
		}
		return reqs, nil
	}
	cfg, err := cost.LoadFleet(path)
	if err != nil {
		return nil, err
	}
	return plan.Requests(cfg)
}

type jsonResult struct {
	District string     `json:"district"`
	Plan     *plan.Plan `json:"plan,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func writeJSON(w io.Writer, results []plan.Result) int {
	failed := 0
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{District: r.District, Plan: r.Plan}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			failed++
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Printf("Failed to write JSON: %v", err)
		return len(results)
	}
	return failed
}

func writeSummary(w io.Writer, results []plan.Result) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "District %s: FAILED: %v\n\n", r.District, r.Err)
			failed++
			continue
		}
		p := r.Plan
		matching := "exact"
		if p.Stats.Approximate {
			matching = "approximate"
		}
		deadheadPct := 0.0
		if p.TotalMeters > 0 {
			deadheadPct = p.DeadheadMeters / p.TotalMeters * 100
		}

		fmt.Fprintf(w, "District %s (plan %s)\n", p.District, p.ID)
		fmt.Fprintf(w, "  streets: %s (%s km), odd intersections: %s, matching: %s\n",
			humanize.Comma(int64(p.Stats.Streets)), km(p.Stats.StreetMeters),
			humanize.Comma(int64(p.Stats.OddNodes)), matching)
		fmt.Fprintf(w, "  circuit: %s km, deadhead: %s km (%.1f%%)\n",
			km(p.TotalMeters), km(p.DeadheadMeters), deadheadPct)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  FLEET\tVEHICLES\tTOTAL COST\tFLEET HOURS\tVEHICLE HOURS\tLONGEST ROUTE")
		for _, name := range fleetOrder(p) {
			fp := p.Fleets[name]
			longest := 0.0
			for _, s := range fp.Segments {
				longest = max(longest, s.Meters)
			}
			fmt.Fprintf(tw, "  %s\t%d\t%s\t%.2f\t%.2f\t%s km\n",
				fp.Vehicle, fp.Count, humanize.FormatFloat("#,###.##", fp.TotalCost),
				fp.MaxHours, fp.VehicleHours, km(longest))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
	return failed
}

// fleetOrder lists fleets by name so output is stable.
func fleetOrder(p *plan.Plan) []string {
	names := make([]string, 0, len(p.Fleets))
	for name := range p.Fleets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func km(meters float64) string {
	return humanize.FormatFloat("#,###.#", meters/1000)
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rayandri/deneigement-montreal/pkg/api"
	"github.com/Rayandri/deneigement-montreal/pkg/cost"
	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/plan"
	"github.com/Rayandri/deneigement-montreal/pkg/postman"
)

func main() {
	graphPath := flag.String("graph", "district.bin", "Path to preprocessed district graph binary")
	district := flag.String("district", "", "District name reported in plans (default: graph file name)")
	fleetPath := flag.String("fleet", "", "YAML fleet file with extra vehicle types (optional)")
	port := flag.Int("port", 0, "HTTP port (default: $PORT or 8080)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	matching := flag.String("matching", "auto", "Odd-node matching: auto, exact or greedy")
	rateLimit := flag.Float64("rate-limit", 20, "Requests per second across all clients (0 = unlimited)")
	flag.Parse()

	start := time.Now()

	log.Printf("Loading graph from %s...", *graphPath)
	g, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	odd := len(g.OddNodes())
	log.Printf("Loaded: %d nodes, %d streets, %d odd intersections", g.NumNodes, g.NumEdges(), odd)
	if !graph.IsConnected(g) {
		log.Printf("Warning: graph is disconnected; plans will fail until it is preprocessed to one component")
	}

	vehicles := cost.DefaultVehicleTypes()
	if *fleetPath != "" {
		cfg, err := cost.LoadFleet(*fleetPath)
		if err != nil {
			log.Fatalf("Failed to load fleet file: %v", err)
		}
		vehicles = cfg.VehicleTypes
	}

	strategy, err := postman.ParseMatchStrategy(*matching)
	if err != nil {
		log.Fatalf("Invalid --matching: %v", err)
	}
	opts := plan.Options{Postman: postman.DefaultOptions()}
	opts.Postman.Matching = strategy

	name := *district
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(*graphPath), filepath.Ext(*graphPath))
	}

	log.Println("Building R-tree spatial index...")
	svc := plan.NewService(plan.New(opts), name, g)
	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", listenPort(*port))
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin
	cfg.RateLimit = *rateLimit

	stats := api.StatsResponse{
		District:     name,
		NumNodes:     g.NumNodes,
		NumStreets:   g.NumEdges(),
		OddNodes:     odd,
		StreetMeters: float64(g.TotalWeight()) / 1000,
	}

	handlers := api.NewHandlers(svc.Engine(), svc, vehicles, stats)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

// listenPort prefers the flag, then $PORT, then 8080.
func listenPort(flagPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		return p
	}
	return 8080
}

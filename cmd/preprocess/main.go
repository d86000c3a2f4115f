package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Rayandri/deneigement-montreal/pkg/geo"
	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	osmparser "github.com/Rayandri/deneigement-montreal/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "district.bin", "Output binary graph file path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng or a preset ("+presetNames()+")")
	highways := flag.String("highways", "", "Comma-separated highway=* values to keep (default: all plowed street classes)")
	allComponents := flag.Bool("all-components", false, "Keep every connected component instead of the largest")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output district.bin] [--bbox verdun | --bbox minLat,minLng,maxLat,maxLng] [--all-components]")
		os.Exit(1)
	}

	var opts osmparser.ParseOptions
	if *bbox != "" {
		b, err := geo.ParseBound(*bbox)
		if err != nil {
			log.Fatalf("Invalid bbox: %v", err)
		}
		opts.Bound = b
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]",
			b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon())
	}
	if *highways != "" {
		opts.Highways = make(map[string]bool)
		for _, h := range strings.Split(*highways, ",") {
			opts.Highways[strings.TrimSpace(h)] = true
		}
	}

	start := time.Now()

	// Step 1: Parse OSM data.
	log.Println("Opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Parsing OSM data...")
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to parse OSM data: %v", err)
	}
	oneway := 0
	for _, e := range parseResult.Edges {
		if e.Oneway {
			oneway++
		}
	}
	log.Printf("Parsed %d street segments (%d one-way, planned as two-way), %d nodes",
		len(parseResult.Edges), oneway, len(parseResult.NodeLat))

	// Step 2: Build the undirected street graph.
	log.Println("Building graph...")
	g := graph.Build(parseResult)
	log.Printf("Graph: %d nodes, %d streets, %.1f km", g.NumNodes, g.NumEdges(), float64(g.TotalWeight())/1e6)

	// Step 3: Keep the largest connected component.
	if !*allComponents && g.NumNodes > 0 {
		log.Println("Extracting largest connected component...")
		componentNodes := graph.LargestComponent(g)
		log.Printf("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(g.NumNodes)*100)
		g = graph.FilterToComponent(g, componentNodes)
		log.Printf("Filtered graph: %d nodes, %d streets", g.NumNodes, g.NumEdges())
	} else if n := len(graph.Components(g)); n > 1 {
		log.Printf("Warning: graph has %d components; plan with --per-component", n)
	}
	log.Printf("Odd intersections: %d", len(g.OddNodes()))

	// Step 4: Serialize to binary.
	log.Printf("Writing binary to %s...", *output)
	if err := graph.WriteBinary(*output, g); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}

func presetNames() string {
	names := make([]string, 0, len(geo.Presets))
	for name := range geo.Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

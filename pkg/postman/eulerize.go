package postman

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Rayandri/deneigement-montreal/pkg/graph"
	"github.com/Rayandri/deneigement-montreal/pkg/routing"
)

// Options tunes Eulerization. Zero fields take the values of DefaultOptions.
type Options struct {
	// Workers bounds concurrent shortest-path queries.
	Workers int
	// Matching selects the pairing strategy.
	Matching MatchStrategy
	// ExactLimit is the largest odd-node count MatchAuto solves exactly.
	ExactLimit int
	// ExactBudget caps the DP transitions MatchAuto accepts for the exact matcher.
	ExactBudget uint64
	// ImproveBudget caps pair-exchange evaluations after greedy matching.
	ImproveBudget int
}

// DefaultOptions returns the default Eulerization options.
func DefaultOptions() Options {
	return Options{
		Workers:       runtime.GOMAXPROCS(0),
		Matching:      MatchAuto,
		ExactLimit:    20,
		ExactBudget:   1 << 26,
		ImproveBudget: 1 << 22,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.ExactLimit <= 0 {
		o.ExactLimit = d.ExactLimit
	}
	if o.ExactBudget == 0 {
		o.ExactBudget = d.ExactBudget
	}
	if o.ImproveBudget <= 0 {
		o.ImproveBudget = d.ImproveBudget
	}
	return o
}

// Eulerized is the result of Eulerize.
type Eulerized struct {
	// Graph is the working graph: a clone of the input with one synthetic
	// edge per matched pair appended after the original edges.
	Graph *graph.Graph
	// Added holds the indices of the synthetic edges in Graph.
	Added []uint32
	// AddedLength is the total synthetic length in millimeters.
	AddedLength uint64
	// OddNodes is the number of odd-degree nodes in the input.
	OddNodes int
	// Approximate is set when the pairing came from the greedy matcher
	// and may not be minimal.
	Approximate bool
}

// Eulerize returns a working graph in which every node has even degree.
// Odd-degree nodes are paired by a minimum-weight perfect matching over
// their shortest-path distances, and each pair gets a synthetic edge whose
// weight is that distance. The input graph is never modified.
//
// The oracle must answer over g (or a graph with the same real edges).
// A missing path between two odd nodes fails with ErrDisconnectedGraph.
func Eulerize(ctx context.Context, g *graph.Graph, oracle routing.Oracle, opts Options) (*Eulerized, error) {
	opts = opts.withDefaults()

	if err := g.Validate(); err != nil {
		return nil, err
	}

	odd := g.OddNodes()
	if len(odd)%2 != 0 {
		return nil, fmt.Errorf("%w: %d odd-degree nodes", ErrInvalidGraph, len(odd))
	}

	work := g.Clone()
	res := &Eulerized{Graph: work, OddNodes: len(odd)}
	if len(odd) == 0 {
		return res, nil
	}

	w, err := pairwiseLengths(ctx, oracle, odd, opts.Workers)
	if err != nil {
		return nil, err
	}

	pairs, approx, err := match(ctx, w, opts)
	if err != nil {
		return nil, err
	}
	res.Approximate = approx

	for _, p := range pairs {
		length := w[p[0]][p[1]]
		if length > math.MaxUint32 {
			return nil, fmt.Errorf("%w: path of %d mm between nodes %d and %d overflows edge weight",
				ErrInvalidGraph, length, g.NodeIDs[odd[p[0]]], g.NodeIDs[odd[p[1]]])
		}
		idx, err := work.AddEdge(odd[p[0]], odd[p[1]], uint32(length), true)
		if err != nil {
			return nil, fmt.Errorf("%w: add synthetic edge: %w", ErrInternalInvariant, err)
		}
		res.Added = append(res.Added, idx)
		res.AddedLength += length
	}

	if left := work.OddNodes(); len(left) != 0 {
		return nil, fmt.Errorf("%w: %d odd-degree nodes remain after Eulerization", ErrInternalInvariant, len(left))
	}

	log.Printf("Eulerized: %d odd nodes, %d synthetic edges, +%.1f m (approximate=%v)",
		len(odd), len(res.Added), float64(res.AddedLength)/1000, res.Approximate)
	return res, nil
}

// match picks the matcher for len(w) nodes and returns index pairs.
func match(ctx context.Context, w [][]uint64, opts Options) ([][2]int, bool, error) {
	k := len(w)

	exact := false
	switch opts.Matching {
	case MatchExact:
		exact = k <= maxExactNodes
		if !exact {
			log.Printf("Warning: %d odd nodes exceed the exact matcher's %d-node table; using greedy matching with pair exchange",
				k, maxExactNodes)
		}
	case MatchGreedy:
	default:
		exact = k <= opts.ExactLimit && k <= maxExactNodes && exactTransitions(k) <= opts.ExactBudget
		if !exact {
			log.Printf("Warning: %d odd nodes exceed exact matching limits (limit %d, budget %d); using greedy matching with pair exchange",
				k, opts.ExactLimit, opts.ExactBudget)
		}
	}

	if exact {
		pairs, _, err := matchExact(ctx, w)
		return pairs, false, err
	}

	pairs := matchGreedy(w)
	before := matchingCost(w, pairs)
	if !improvePairs(w, pairs, opts.ImproveBudget) {
		log.Printf("Warning: pair exchange stopped at budget %d", opts.ImproveBudget)
	}
	if after := matchingCost(w, pairs); after < before {
		log.Printf("Pair exchange saved %.1f m over greedy matching", float64(before-after)/1000)
	}
	return pairs, true, nil
}

// pairwiseLengths returns the symmetric matrix of shortest-path lengths
// between the given nodes. Queries run concurrently, at most workers at a
// time; each writes only its own cells.
func pairwiseLengths(ctx context.Context, oracle routing.Oracle, nodes []uint32, workers int) ([][]uint64, error) {
	k := len(nodes)
	w := make([][]uint64, k)
	for i := range w {
		w[i] = make([]uint64, k)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	batch, isBatch := oracle.(routing.BatchOracle)
	for i := range k {
		if isBatch {
			if i == k-1 {
				break
			}
			eg.Go(func() error {
				lengths, err := batch.ShortestPathLengths(gctx, nodes[i], nodes[i+1:])
				if err != nil {
					return wrapNoRoute(err)
				}
				for off, d := range lengths {
					w[i][i+1+off] = d
				}
				return nil
			})
			continue
		}
		for j := i + 1; j < k; j++ {
			eg.Go(func() error {
				d, err := oracle.ShortestPathLength(gctx, nodes[i], nodes[j])
				if err != nil {
					return wrapNoRoute(err)
				}
				w[i][j] = d
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i := range k {
		for j := i + 1; j < k; j++ {
			w[j][i] = w[i][j]
		}
	}
	return w, nil
}

// wrapNoRoute turns a missing path into ErrDisconnectedGraph and leaves
// other errors alone.
func wrapNoRoute(err error) error {
	if errors.Is(err, routing.ErrNoRoute) {
		return fmt.Errorf("%w: %w", ErrDisconnectedGraph, err)
	}
	return err
}

package postman

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// MatchStrategy selects how odd nodes are paired.
type MatchStrategy int

const (
	// MatchAuto uses the exact matcher when it fits the limits in Options
	// and the approximate matcher otherwise.
	MatchAuto MatchStrategy = iota
	// MatchExact uses the exact matcher regardless of the Options limits.
	// Above maxExactNodes it falls back to the approximate matcher.
	MatchExact
	// MatchGreedy always uses the approximate matcher.
	MatchGreedy
)

func (s MatchStrategy) String() string {
	switch s {
	case MatchAuto:
		return "auto"
	case MatchExact:
		return "exact"
	case MatchGreedy:
		return "greedy"
	default:
		return fmt.Sprintf("MatchStrategy(%d)", int(s))
	}
}

// ParseMatchStrategy parses "auto", "exact" or "greedy".
func ParseMatchStrategy(s string) (MatchStrategy, error) {
	switch s {
	case "", "auto":
		return MatchAuto, nil
	case "exact":
		return MatchExact, nil
	case "greedy":
		return MatchGreedy, nil
	}
	return MatchAuto, fmt.Errorf("unknown matching strategy %q", s)
}

// maxExactNodes bounds the subset DP table at 2^24 entries.
const maxExactNodes = 24

const unreachable = math.MaxUint64

// exactTransitions returns the number of DP transitions for k odd nodes:
// every subset times the partners tried for its lowest free node.
func exactTransitions(k int) uint64 {
	if k <= 0 {
		return 0
	}
	return (uint64(1) << k) * uint64(k) / 2
}

// matchExact computes a minimum-weight perfect matching over k = len(w)
// nodes with a subset DP: dp[mask] is the cheapest way to match exactly the
// nodes in mask, and each step pairs the lowest unmatched node. Ties keep
// the first pairing found, so the result is deterministic.
func matchExact(ctx context.Context, w [][]uint64) ([][2]int, uint64, error) {
	k := len(w)
	if k == 0 {
		return nil, 0, nil
	}
	if k > maxExactNodes {
		return nil, 0, fmt.Errorf("%w: exact matching over %d nodes exceeds limit %d", ErrInternalInvariant, k, maxExactNodes)
	}

	full := uint32(1)<<k - 1
	dp := make([]uint64, full+1)
	lo := make([]uint8, full+1)
	hi := make([]uint8, full+1)
	for i := range dp {
		dp[i] = unreachable
	}
	dp[0] = 0

	for mask := uint32(0); mask < full; mask++ {
		if mask&0xFFFF == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		if dp[mask] == unreachable {
			continue
		}
		i := bits.TrailingZeros32(^mask)
		for j := i + 1; j < k; j++ {
			if mask&(1<<j) != 0 {
				continue
			}
			next := mask | 1<<i | 1<<j
			if c := dp[mask] + w[i][j]; c < dp[next] {
				dp[next] = c
				lo[next] = uint8(i)
				hi[next] = uint8(j)
			}
		}
	}

	pairs := make([][2]int, 0, k/2)
	for mask := full; mask != 0; {
		i, j := int(lo[mask]), int(hi[mask])
		pairs = append(pairs, [2]int{i, j})
		mask &^= 1<<i | 1<<j
	}
	slices.SortFunc(pairs, func(a, b [2]int) int { return cmp.Compare(a[0], b[0]) })
	return pairs, dp[full], nil
}

// matchGreedy pairs nodes globally cheapest-first: all candidate pairs are
// sorted by weight (ties by index) and taken while both ends are free.
// On metric weights the result is within (4/3)·k^log2(3/2) of optimum
// (Reingold and Tarjan, 1981).
func matchGreedy(w [][]uint64) [][2]int {
	k := len(w)
	type cand struct {
		i, j int
		w    uint64
	}
	cands := make([]cand, 0, k*(k-1)/2)
	for i := range k {
		for j := i + 1; j < k; j++ {
			cands = append(cands, cand{i, j, w[i][j]})
		}
	}
	slices.SortFunc(cands, func(a, b cand) int {
		if c := cmp.Compare(a.w, b.w); c != 0 {
			return c
		}
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})

	matched := make([]bool, k)
	pairs := make([][2]int, 0, k/2)
	for _, c := range cands {
		if matched[c.i] || matched[c.j] {
			continue
		}
		matched[c.i], matched[c.j] = true, true
		pairs = append(pairs, [2]int{c.i, c.j})
		if len(pairs) == k/2 {
			break
		}
	}
	return pairs
}

// improvePairs runs pair-exchange passes over pairs: for two pairs (a,b)
// and (c,d) it tries (a,c)(b,d) and (a,d)(b,c) and keeps the cheapest.
// Each accepted swap strictly lowers the cost, so the cost never rises.
// budget bounds the number of pair-pair evaluations. It reports whether
// the search reached a local optimum before the budget ran out.
func improvePairs(w [][]uint64, pairs [][2]int, budget int) bool {
	for {
		improved := false
		for x := 0; x < len(pairs); x++ {
			for y := x + 1; y < len(pairs); y++ {
				if budget <= 0 {
					return false
				}
				budget--

				a, b := pairs[x][0], pairs[x][1]
				c, d := pairs[y][0], pairs[y][1]
				cur := w[a][b] + w[c][d]
				alt1 := w[a][c] + w[b][d]
				alt2 := w[a][d] + w[b][c]

				switch {
				case alt1 < cur && alt1 <= alt2:
					pairs[x], pairs[y] = [2]int{a, c}, [2]int{b, d}
					improved = true
				case alt2 < cur:
					pairs[x], pairs[y] = [2]int{a, d}, [2]int{b, c}
					improved = true
				}
			}
		}
		if !improved {
			return true
		}
	}
}

func matchingCost(w [][]uint64, pairs [][2]int) uint64 {
	var total uint64
	for _, p := range pairs {
		total += w[p[0]][p[1]]
	}
	return total
}

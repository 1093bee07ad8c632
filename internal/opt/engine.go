// Package opt implements the multi-objective route search: seeded candidate
// orderings refined by neighborhood moves under iteration and wall-clock
// budgets, scored by a composite of fairness and quantity.
package opt

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// Termination reasons reported in Result.
const (
	TermBudget    = "iteration_budget"
	TermEarly     = "early_threshold"
	TermDeadline  = "deadline"
	TermResources = "resource_limit"
)

// Result is the outcome of one search run. Best is populated even when the
// run was cut short; Evaluated is a capped diagnostic log.
type Result struct {
	Best        model.RouteSolution
	Evaluated   []model.RouteSolution
	Iterations  int
	Elapsed     time.Duration
	Termination string
}

// CheckFunc is invoked every iteration; a non-nil return aborts the search.
// The governor uses it to enforce resource ceilings.
type CheckFunc func(iteration int) error

// Solve runs the search. On deadline or check failure it returns the best
// solution found so far together with the terminating error, so callers can
// salvage a partial result within a grace period.
func Solve(ctx context.Context, p Problem, cfg Config, check CheckFunc) (Result, error) {
	cfg = cfg.withDefaults()
	start := time.Now()
	rng := rand.New(rand.NewSource(seedOf(cfg)))

	res := Result{}
	if len(p.Clusters) == 0 {
		res.Termination = TermBudget
		res.Elapsed = time.Since(start)
		return res, nil
	}

	// multi-start: input order, nearest-neighbor, preference-greedy
	curr := buildSolution(p, cfg, seedOrder(p, len(p.Clusters)))
	for _, seed := range [][]int{NearestNeighborOrder(p), PreferenceOrder(p)} {
		if s := buildSolution(p, cfg, seed); better(s, curr) {
			curr = s
		}
	}
	currSel := selectionOf(p, curr)
	best := curr
	res.logEval(cfg, curr)

	temp := cfg.InitialTemp
	for res.Iterations < cfg.MaxIterations {
		select {
		case <-ctx.Done():
			res.Best, res.Elapsed, res.Termination = best, time.Since(start), TermDeadline
			return res, ctx.Err()
		default:
		}
		res.Iterations++
		if check != nil {
			if err := check(res.Iterations); err != nil {
				res.Best, res.Elapsed, res.Termination = best, time.Since(start), TermResources
				return res, err
			}
		}

		cand := mutate(currSel, len(p.Clusters), rng)
		sol := buildSolution(p, cfg, cand)
		res.logEval(cfg, sol)

		if better(sol, curr) {
			curr, currSel = sol, cand
		} else if temp > 0 {
			// annealing-style acceptance of slightly worse neighbors
			delta := curr.CompositeScore - sol.CompositeScore
			if rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
				curr, currSel = sol, cand
			}
		}
		if better(curr, best) {
			best = curr
		}
		temp *= cfg.Cooling

		if best.Feasible && best.CompositeScore >= cfg.EarlyTerminationThreshold {
			res.Best, res.Elapsed, res.Termination = polish(p, cfg, best), time.Since(start), TermEarly
			return res, nil
		}
	}
	res.Best, res.Elapsed, res.Termination = polish(p, cfg, best), time.Since(start), TermBudget
	return res, nil
}

// polish runs a short 2-opt pass over the winning order; the selection is
// kept as-is.
func polish(p Problem, cfg Config, best model.RouteSolution) model.RouteSolution {
	if len(best.Clusters) < 4 {
		return best
	}
	sel := ImproveOrder2Opt(p.Clusters, selectionOf(p, best), 2)
	if s := buildSolution(p, cfg, sel); better(s, best) {
		return s
	}
	return best
}

func (r *Result) logEval(cfg Config, s model.RouteSolution) {
	if len(r.Evaluated) < cfg.KeepEvaluated {
		r.Evaluated = append(r.Evaluated, s)
	}
}

func seedOf(cfg Config) int64 {
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

func seedOrder(_ Problem, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// NearestNeighborOrder walks clusters greedily from the departure point.
func NearestNeighborOrder(p Problem) []int {
	n := len(p.Clusters)
	used := make([]bool, n)
	out := make([]int, 0, n)
	cur := p.Departure
	for len(out) < n {
		bestIdx, bestDist := -1, math.MaxFloat64
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			if d := geo.HaversineKm(cur, p.Clusters[i].Centroid); d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		used[bestIdx] = true
		out = append(out, bestIdx)
		cur = p.Clusters[bestIdx].Centroid
	}
	return out
}

// PreferenceOrder ranks clusters by total preference mass across members.
func PreferenceOrder(p Problem) []int {
	n := len(p.Clusters)
	mass := make([]float64, n)
	for i, c := range p.Clusters {
		ids := make([]string, 0, len(c.Destinations))
		for _, d := range c.Destinations {
			ids = append(ids, d.ID)
		}
		sat := p.Evaluator.Satisfaction(ids)
		for _, v := range sat {
			mass[i] += v
		}
	}
	out := seedOrder(p, n)
	sort.SliceStable(out, func(a, b int) bool { return mass[out[a]] > mass[out[b]] })
	return out
}

func selectionOf(p Problem, s model.RouteSolution) []int {
	idx := map[string]int{}
	for i, c := range p.Clusters {
		idx[c.ID] = i
	}
	out := make([]int, 0, len(s.Clusters))
	for _, c := range s.Clusters {
		out = append(out, idx[c.ID])
	}
	return out
}

// mutate produces a neighbor selection: swap, reverse a segment (2-opt),
// drop a cluster, or re-add an excluded one.
func mutate(sel []int, total int, rng *rand.Rand) []int {
	out := append([]int(nil), sel...)
	switch rng.Intn(4) {
	case 0: // swap
		if len(out) >= 2 {
			i, j := rng.Intn(len(out)), rng.Intn(len(out))
			out[i], out[j] = out[j], out[i]
		}
	case 1: // reverse segment
		if len(out) >= 3 {
			i := rng.Intn(len(out) - 1)
			j := i + 1 + rng.Intn(len(out)-i-1)
			for a, b := i, j; a < b; a, b = a+1, b-1 {
				out[a], out[b] = out[b], out[a]
			}
		}
	case 2: // drop one
		if len(out) >= 2 {
			i := rng.Intn(len(out))
			out = append(out[:i], out[i+1:]...)
		}
	case 3: // re-add an excluded cluster at a random position
		in := map[int]bool{}
		for _, i := range out {
			in[i] = true
		}
		var excl []int
		for i := 0; i < total; i++ {
			if !in[i] {
				excl = append(excl, i)
			}
		}
		if len(excl) > 0 {
			c := excl[rng.Intn(len(excl))]
			pos := rng.Intn(len(out) + 1)
			out = append(out[:pos], append([]int{c}, out[pos:]...)...)
		}
	}
	return out
}

// Package fallback implements the ordered chain of degraded strategies that
// takes over when the primary pipeline fails or times out. The dispatcher
// tries each applicable strategy in priority order and returns the first
// non-error result; exception-driven control flow is deliberately absent.
package fallback

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"tripnav/internal/fairness"
	"tripnav/internal/geo"
	"tripnav/internal/model"
	"tripnav/internal/opt"
	"tripnav/internal/triperr"
)

// Input carries the data a strategy may reuse. Upstream results already
// computed (clusters, evaluator) are preserved so strategies never
// recompute them.
type Input struct {
	Data      model.TripData
	Clusters  []model.Cluster
	Evaluator *fairness.Evaluator

	DailyBudgetMin int
	OptConfig      opt.Config
}

// problem rebuilds an optimizer problem from whatever survived upstream.
func (in *Input) problem() opt.Problem {
	if len(in.Clusters) == 0 {
		// clustering never ran; treat each destination as its own cluster
		for i, d := range in.Data.Destinations {
			in.Clusters = append(in.Clusters, model.Cluster{
				ID:           fmt.Sprintf("cl_fb_%d", i+1),
				Destinations: []model.Destination{d},
				Centroid:     d.Location,
			})
		}
	}
	if in.Evaluator == nil {
		in.Evaluator = fairness.NewEvaluator(in.Data.Members, in.Data.Destinations, in.Data.Preferences)
	}
	return opt.Problem{
		Clusters:        in.Clusters,
		Departure:       in.Data.Departure,
		Return:          in.Data.ReturnPoint(),
		Window:          in.Data.Window,
		DailyBudgetMin:  in.DailyBudgetMin,
		Evaluator:       in.Evaluator,
		TotalCandidates: len(in.Data.Destinations),
	}
}

// Strategy is one degraded algorithm with its applicability filter.
type Strategy struct {
	Name    string
	Warning string
	// Applies filters by originating error kind; nil applies to all kinds.
	Applies map[triperr.Kind]bool
	Run     func(ctx context.Context, in *Input) (model.RouteSolution, error)
}

func (s Strategy) appliesTo(kind triperr.Kind) bool {
	return s.Applies == nil || s.Applies[kind]
}

// Outcome is a successful degraded result.
type Outcome struct {
	Solution model.RouteSolution
	Strategy string
	Warnings []string
}

// Chain is the ordered strategy list plus per-strategy time budget.
type Chain struct {
	strategies []Strategy
	perTry     time.Duration
}

// NewChain builds the default five-strategy chain.
func NewChain(perTry time.Duration) *Chain {
	if perTry <= 0 {
		perTry = 500 * time.Millisecond
	}
	heavy := map[triperr.Kind]bool{
		triperr.KindOptimizationTimeout:    true,
		triperr.KindResourceExceeded:       true,
		triperr.KindRouteCalculationFailed: true,
		triperr.KindNoFeasibleSolution:     true,
		triperr.KindUnknown:                true,
	}
	return &Chain{
		perTry: perTry,
		strategies: []Strategy{
			{
				Name:    "relaxed_optimization",
				Warning: "fairness balancing and multi-day scheduling were simplified to meet the time budget",
				Applies: heavy,
				Run:     runRelaxed,
			},
			{
				Name:    "greedy",
				Warning: "destinations were picked greedily by preference per travel effort",
				Run:     runGreedy,
			},
			{
				Name:    "preference_ordering",
				Warning: "destinations were ordered purely by group preference",
				Run:     runPreference,
			},
			{
				Name:    "distance_ordering",
				Warning: "destinations were ordered by proximity only; preferences were not considered",
				Run:     runDistance,
			},
			{
				Name:    "input_order",
				Warning: "destinations were kept in their original order with default visit durations",
				Run:     runInputOrder,
			},
		},
	}
}

// Execute dispatches the chain for the given originating error. The first
// strategy returning a usable solution wins. When every applicable strategy
// fails, a structured error with remediation suggestions is returned.
func (c *Chain) Execute(ctx context.Context, cause *triperr.Error, in *Input) (*Outcome, *triperr.Error) {
	kind := triperr.KindUnknown
	if cause != nil {
		kind = cause.Kind
	}
	attempts := 0
	for _, s := range c.strategies {
		if !s.appliesTo(kind) {
			continue
		}
		attempts++
		tryCtx, cancel := context.WithTimeout(ctx, c.perTry)
		sol, err := s.Run(tryCtx, in)
		cancel()
		if err != nil {
			log.Printf("[FALLBACK] strategy=%s failed: %v", s.Name, err)
			continue
		}
		if len(sol.Clusters) == 0 {
			log.Printf("[FALLBACK] strategy=%s produced an empty selection", s.Name)
			continue
		}
		return &Outcome{
			Solution: sol,
			Strategy: s.Name,
			Warnings: []string{fmt.Sprintf("degraded result (%s): %s", s.Name, s.Warning)},
		}, nil
	}

	msg := fmt.Sprintf("all %d applicable fallback strategies failed", attempts)
	out := triperr.New(triperr.KindNoFeasibleSolution, msg).WithSuggestions(
		"reduce the number of destinations",
		"add preference scores for more destinations",
		"extend the trip duration",
		"increase the optimization timeout",
	)
	if cause != nil {
		out = out.WithCause(cause)
	}
	return nil, out
}

// runRelaxed reruns the optimizer with fairness zeroed and a reduced
// iteration budget; the dispatcher's context bounds its wall clock.
func runRelaxed(ctx context.Context, in *Input) (model.RouteSolution, error) {
	p := in.problem()
	cfg := in.OptConfig
	cfg.FairnessWeight = 0
	cfg.QuantityWeight = 1
	cfg.MaxIterations = 200
	res, err := opt.Solve(ctx, p, cfg, nil)
	if err != nil && len(res.Best.Clusters) == 0 {
		return model.RouteSolution{}, err
	}
	return res.Best, nil
}

// runGreedy ranks destinations by preference score per unit of distance from
// the departure point and keeps the top-K that fit the trip window.
func runGreedy(_ context.Context, in *Input) (model.RouteSolution, error) {
	p := in.problem()
	type ranked struct {
		idx   int
		score float64
	}
	rank := make([]ranked, len(p.Clusters))
	for i, c := range p.Clusters {
		ids := make([]string, 0, len(c.Destinations))
		for _, d := range c.Destinations {
			ids = append(ids, d.ID)
		}
		mass := 0.0
		for _, v := range in.Evaluator.Satisfaction(ids) {
			mass += v
		}
		dist := geo.HaversineKm(p.Departure, c.Centroid)
		rank[i] = ranked{idx: i, score: mass / (1 + dist)}
	}
	sort.SliceStable(rank, func(a, b int) bool { return rank[a].score > rank[b].score })

	budget := p.Window.Days() * in.DailyBudgetMin
	if budget <= 0 {
		budget = p.Window.Days() * 720
	}
	var sel []int
	used := 0
	for _, r := range rank {
		stay := p.Clusters[r.idx].StayMinutes()
		if used+stay > budget && len(sel) > 0 {
			continue
		}
		used += stay
		sel = append(sel, r.idx)
	}
	return opt.Materialize(p, in.OptConfig, sel), nil
}

func runPreference(_ context.Context, in *Input) (model.RouteSolution, error) {
	p := in.problem()
	return opt.Materialize(p, in.OptConfig, opt.PreferenceOrder(p)), nil
}

func runDistance(_ context.Context, in *Input) (model.RouteSolution, error) {
	p := in.problem()
	return opt.Materialize(p, in.OptConfig, opt.NearestNeighborOrder(p)), nil
}

func runInputOrder(_ context.Context, in *Input) (model.RouteSolution, error) {
	p := in.problem()
	sel := make([]int, len(p.Clusters))
	for i := range sel {
		sel[i] = i
	}
	return opt.Materialize(p, in.OptConfig, sel), nil
}

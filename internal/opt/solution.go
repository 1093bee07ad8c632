package opt

import (
	"tripnav/internal/fairness"
	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// Problem is the optimizer's immutable input for one run.
type Problem struct {
	Clusters  []model.Cluster
	Departure model.GeoPoint
	Return    model.GeoPoint
	Window    model.TripWindow
	// DailyBudgetMin bounds active minutes per day when judging feasibility.
	DailyBudgetMin int
	Evaluator      *fairness.Evaluator
	// TotalCandidates is the destination count before clustering/truncation;
	// the quantity score is measured against it.
	TotalCandidates int
}

// Config holds the search knobs.
type Config struct {
	MaxIterations             int
	FairnessWeight            float64
	QuantityWeight            float64
	EarlyTerminationThreshold float64
	InitialTemp               float64
	Cooling                   float64
	Seed                      int64
	// KeepEvaluated caps the diagnostic log of evaluated solutions.
	KeepEvaluated int
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 2000
	}
	if c.FairnessWeight == 0 && c.QuantityWeight == 0 {
		c.FairnessWeight, c.QuantityWeight = 0.6, 0.4
	}
	if c.EarlyTerminationThreshold <= 0 {
		c.EarlyTerminationThreshold = 0.98
	}
	if c.InitialTemp <= 0 {
		c.InitialTemp = 0.05
	}
	if c.Cooling <= 0 || c.Cooling >= 1 {
		c.Cooling = 0.995
	}
	if c.KeepEvaluated <= 0 {
		c.KeepEvaluated = 64
	}
	return c
}

// Materialize scores an ordered cluster selection without running the
// search. Fallback strategies use it to turn their hand-built orderings into
// full RouteSolutions.
func Materialize(p Problem, cfg Config, sel []int) model.RouteSolution {
	return buildSolution(p, cfg.withDefaults(), sel)
}

// buildSolution materializes an ordered cluster selection into a scored
// RouteSolution. Segments run departure -> destinations (walking within a
// cluster, banded mode between clusters) -> return.
func buildSolution(p Problem, cfg Config, sel []int) model.RouteSolution {
	sol := model.RouteSolution{Clusters: make([]model.Cluster, 0, len(sel))}
	for _, ci := range sel {
		sol.Clusters = append(sol.Clusters, p.Clusters[ci])
	}

	type stop struct {
		id  string
		loc model.GeoPoint
	}
	stops := []stop{{id: "departure", loc: p.Departure}}
	for _, c := range sol.Clusters {
		for _, d := range c.Destinations {
			stops = append(stops, stop{id: d.ID, loc: d.Location})
		}
	}
	stops = append(stops, stop{id: "return", loc: p.Return})

	stayMin := 0
	for _, c := range sol.Clusters {
		stayMin += c.StayMinutes()
	}
	for i := 0; i+1 < len(stops); i++ {
		seg := geo.SegmentBetween(stops[i].id, stops[i].loc, stops[i+1].id, stops[i+1].loc)
		sol.Segments = append(sol.Segments, seg)
		sol.TotalDistanceKm += seg.DistanceKm
		sol.TotalTravelMin += seg.DurationMin
	}

	ids := sol.DestinationIDs()
	sol.FairnessScore, sol.MemberSatisfaction = p.Evaluator.Evaluate(ids)
	if p.TotalCandidates > 0 {
		sol.QuantityScore = float64(len(ids)) / float64(p.TotalCandidates)
	}
	sol.CompositeScore = composite(cfg, sol.FairnessScore, sol.QuantityScore)
	sol.Feasible = feasible(p, stayMin+sol.TotalTravelMin)
	if !sol.Feasible {
		sol.Issues = append(sol.Issues, "selection does not fit the trip window at the configured daily budget")
	}
	return sol
}

func composite(cfg Config, fairness, quantity float64) float64 {
	wsum := cfg.FairnessWeight + cfg.QuantityWeight
	if wsum == 0 {
		return 0
	}
	return (cfg.FairnessWeight*fairness + cfg.QuantityWeight*quantity) / wsum
}

func feasible(p Problem, activeMin int) bool {
	budget := p.DailyBudgetMin
	if budget <= 0 {
		budget = 720
	}
	return activeMin <= p.Window.Days()*budget
}

// better decides whether a beats b. Composite score wins; ties break to the
// shorter route, then the smaller cluster count. Deterministic so reruns
// with the same seed agree.
func better(a, b model.RouteSolution) bool {
	const eps = 1e-9
	if a.Feasible != b.Feasible {
		return a.Feasible
	}
	if a.CompositeScore > b.CompositeScore+eps {
		return true
	}
	if b.CompositeScore > a.CompositeScore+eps {
		return false
	}
	if a.TotalDistanceKm != b.TotalDistanceKm {
		return a.TotalDistanceKm < b.TotalDistanceKm
	}
	return len(a.Clusters) < len(b.Clusters)
}

// Package pipeline orchestrates one optimization request: edge-case
// handling, preprocessing, route search, multi-day scheduling, and
// persistence, every stage under the governor, with the fallback chain as
// the safety net. Stages run strictly in order; concurrency exists across
// requests, not within one.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"tripnav/internal/config"
	"tripnav/internal/edgecase"
	"tripnav/internal/fairness"
	"tripnav/internal/fallback"
	"tripnav/internal/geo"
	"tripnav/internal/governor"
	"tripnav/internal/metrics"
	"tripnav/internal/model"
	"tripnav/internal/opt"
	"tripnav/internal/preprocess"
	"tripnav/internal/schedule"
	"tripnav/internal/store"
	"tripnav/internal/triperr"
)

// ProgressFunc receives stage progress events for a group. Implementations
// must be non-blocking; the pipeline fires and forgets.
type ProgressFunc func(groupID, stage string, percent int, message string)

type Pipeline struct {
	Store    store.Store
	Gov      *governor.Governor
	Cfg      config.Config
	Chain    *fallback.Chain
	Progress ProgressFunc
}

func New(s store.Store, gov *governor.Governor, cfg config.Config) *Pipeline {
	return &Pipeline{
		Store: s,
		Gov:   gov,
		Cfg:   cfg,
		Chain: fallback.NewChain(time.Duration(cfg.Fallback.PerStrategyMs) * time.Millisecond),
	}
}

// Optimize runs the full pipeline for one group. It always returns a
// classified result; errors never escape unclassified.
func (p *Pipeline) Optimize(ctx context.Context, groupID, requester string, req model.OptimizeRequest) model.OptimizeResult {
	start := time.Now()
	session := &model.OptimizationSession{
		ID:        "ses_" + uuid.New().String()[:8],
		GroupID:   groupID,
		StartedAt: start,
	}
	res := p.runSafe(ctx, session, groupID, requester, req)
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	res.SessionID = session.ID
	session.Status = string(res.Status)
	metrics.OptimizeRequests.WithLabelValues(string(res.Status)).Inc()
	log.Printf("[PIPELINE] group=%s session=%s status=%s strategy=%s took=%dms",
		groupID, session.ID, res.Status, res.Strategy, res.ProcessingTimeMs)
	return res
}

// runSafe converts a panic anywhere in the run into a classified error
// result instead of tearing down the request.
func (p *Pipeline) runSafe(ctx context.Context, session *model.OptimizationSession, groupID, requester string, req model.OptimizeRequest) (res model.OptimizeResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] group=%s session=%s recovered: %v", groupID, session.ID, r)
			res = errorResult(triperr.Newf(triperr.KindUnknown, "internal failure: %v", r), nil)
		}
	}()
	return p.run(ctx, session, groupID, requester, req)
}

func (p *Pipeline) run(ctx context.Context, session *model.OptimizationSession, groupID, requester string, req model.OptimizeRequest) model.OptimizeResult {
	var warnings []string

	// fetch
	p.report(groupID, "fetch", 5, "loading trip data")
	var data model.TripData
	sr := p.stage(ctx, session, "fetch", p.Gov.Config().BaseTimeout, func(c context.Context) error {
		d, err := p.Store.FetchTripData(c, groupID, requester)
		if err != nil {
			return classifyFetch(err)
		}
		data = d
		return nil
	})
	if sr.Err != nil {
		return errorResult(triperr.Classify(sr.Err).WithSuggestions("verify the trip exists and you are a member of the group"), warnings)
	}

	// edge cases; the stage result is only safe to read after a clean run
	p.report(groupID, "edge_cases", 15, "checking input shape")
	var report *edgecase.Report
	sr = p.stage(ctx, session, "edge_cases", p.Gov.Config().BaseTimeout, func(context.Context) error {
		data, report = edgecase.Apply(data)
		return nil
	})
	if sr.Err != nil {
		return errorResult(triperr.Classify(sr.Err), warnings)
	}
	warnings = append(warnings, report.Warnings...)

	// normalize + cluster; hard issues short-circuit before the optimizer
	p.report(groupID, "preprocess", 30, "normalizing preferences and clustering")
	var pre *preprocess.Result
	sr = p.stage(ctx, session, "preprocess", p.Gov.Config().BaseTimeout, func(context.Context) error {
		pre = preprocess.Run(data, p.Cfg.Planner.ClusterRadiusKm)
		return nil
	})
	if sr.Err != nil {
		return errorResult(triperr.Classify(sr.Err), warnings)
	}
	warnings = append(warnings, pre.Warnings...)
	if len(pre.Issues) > 0 {
		err := triperr.Newf(triperr.KindInsufficientData, "trip data is not optimizable: %s", pre.Issues[0]).
			WithSuggestions("add at least one destination with valid coordinates")
		return errorResult(err, warnings)
	}
	data = pre.Data

	evaluator := fairness.NewEvaluator(data.Members, data.Destinations, data.Preferences)
	problem := opt.Problem{
		Clusters:        pre.Clusters,
		Departure:       data.Departure,
		Return:          data.ReturnPoint(),
		Window:          data.Window,
		DailyBudgetMin:  p.Cfg.Schedule.DailyBudgetMin,
		Evaluator:       evaluator,
		TotalCandidates: len(data.Destinations),
	}
	optCfg := p.optConfig(req)

	// route search under adaptive deadline
	p.report(groupID, "optimize", 45, "searching routes")
	timeout := p.Gov.AdaptiveTimeout("optimize", profileOf(data))
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	monitor := p.Gov.NewMonitor()
	var optRes opt.Result
	sr = p.stage(ctx, session, "optimize", timeout, func(c context.Context) error {
		r, err := opt.Solve(c, problem, optCfg, monitor.Check)
		optRes = r // keep the best partial even on error
		return err
	})
	session.Iterations = optRes.Iterations
	session.PeakHeapBytes = monitor.PeakHeap

	fbInput := &fallback.Input{
		Data:           data,
		Clusters:       pre.Clusters,
		Evaluator:      evaluator,
		DailyBudgetMin: p.Cfg.Schedule.DailyBudgetMin,
		OptConfig:      optCfg,
	}

	var solution model.RouteSolution
	partial := false
	switch {
	case sr.Err == nil && !sr.Partial:
		solution = optRes.Best
	case sr.Partial && len(optRes.Best.Clusters) > 0:
		// deadline fired but a usable best arrived within the grace window
		solution = optRes.Best
		partial = true
		warnings = append(warnings, "optimization hit its deadline; returning the best route found so far")
	default:
		serr := sr.Err
		if serr == nil {
			// partial with an empty best: the deadline passed before any
			// candidate route materialized
			serr = triperr.New(triperr.KindOptimizationTimeout, "optimization deadline passed without a usable route")
		}
		cause := triperr.Classify(serr)
		if !cause.Retryable() {
			return errorResult(cause, warnings)
		}
		p.report(groupID, "fallback", 60, "primary optimization failed; trying degraded strategies")
		outcome, ferr := p.Chain.Execute(ctx, cause, fbInput)
		if ferr != nil {
			return errorResult(ferr, warnings)
		}
		metrics.FallbackUses.WithLabelValues(outcome.Strategy).Inc()
		solution = outcome.Solution
		warnings = append(warnings, outcome.Warnings...)
		return p.finish(ctx, session, groupID, model.OptimizeResult{
			Status:   model.StatusPartialSuccess,
			Solution: &solution,
			Strategy: outcome.Strategy,
			Warnings: warnings,
		})
	}

	result := model.OptimizeResult{Solution: &solution, Warnings: warnings}
	if partial {
		result.Status = model.StatusPartialSuccess
	} else {
		result.Status = model.StatusSuccess
	}

	// multi-day scheduling; a route without a day plan beats no route
	if req.MultiDay() && len(solution.Clusters) > 0 {
		p.report(groupID, "schedule", 80, "building day-by-day itinerary")
		var days []model.DaySchedule
		var schedIssues []string
		ssr := p.stage(ctx, session, "schedule", p.Gov.Config().BaseTimeout, func(context.Context) error {
			days, schedIssues = schedule.Build(solution, data.Window, schedule.Config{
				DailyBudgetMin:       p.Cfg.Schedule.DailyBudgetMin,
				DayStartHour:         p.Cfg.Schedule.DayStartHour,
				DayEndHour:           p.Cfg.Schedule.DayEndHour,
				AccommodationQuality: req.AccommodationQuality,
			})
			return nil
		})
		if ssr.Err == nil {
			result.Schedules = days
			if len(schedIssues) > 0 {
				solution.Issues = append(solution.Issues, schedIssues...)
				result.Warnings = append(result.Warnings, schedIssues...)
			}
		} else {
			result.Warnings = append(result.Warnings, "multi-day scheduling was skipped: "+triperr.Classify(ssr.Err).Message)
		}
	}

	return p.finish(ctx, session, groupID, result)
}

// finish persists the result; persistence failure degrades to a warning,
// never to a lost itinerary.
func (p *Pipeline) finish(ctx context.Context, session *model.OptimizationSession, groupID string, res model.OptimizeResult) model.OptimizeResult {
	p.report(groupID, "persist", 95, "saving result")
	sr := p.stage(ctx, session, "persist", p.Gov.Config().BaseTimeout, func(c context.Context) error {
		if err := p.Store.SaveResult(c, groupID, res); err != nil {
			return triperr.Wrap(err, triperr.KindUpstreamDataError, "save result")
		}
		return nil
	})
	if sr.Err != nil {
		log.Printf("[PIPELINE] group=%s persist failed after %d attempt(s): %v", groupID, sr.Attempts, sr.Err)
		res.Warnings = append(res.Warnings, "result could not be persisted; it is returned in this response only")
	}
	p.report(groupID, "done", 100, "finished")
	return res
}

// stage runs fn under the governor and records timing/metrics.
func (p *Pipeline) stage(ctx context.Context, session *model.OptimizationSession, name string, timeout time.Duration, fn governor.StageFunc) governor.StageResult {
	sr := p.Gov.Run(ctx, name, timeout, fn)
	session.RecordStage(name, sr.Elapsed)
	metrics.StageDuration.WithLabelValues(name).Observe(sr.Elapsed.Seconds())
	if sr.TimedOut {
		metrics.StageTimeouts.WithLabelValues(name).Inc()
	}
	return sr
}

func (p *Pipeline) report(groupID, stage string, percent int, msg string) {
	if p.Progress == nil {
		return
	}
	defer func() { _ = recover() }() // a broken progress sink must not abort the run
	p.Progress(groupID, stage, percent, msg)
}

func (p *Pipeline) optConfig(req model.OptimizeRequest) opt.Config {
	cfg := opt.Config{
		MaxIterations:             p.Cfg.Planner.MaxIterations,
		FairnessWeight:            p.Cfg.Planner.FairnessWeight,
		QuantityWeight:            p.Cfg.Planner.QuantityWeight,
		EarlyTerminationThreshold: p.Cfg.Planner.EarlyTerminationThreshold,
	}
	if req.MaxIterations > 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	return cfg
}

func profileOf(d model.TripData) governor.LoadProfile {
	pts := make([]model.GeoPoint, 0, len(d.Destinations))
	for _, dst := range d.Destinations {
		pts = append(pts, dst.Location)
	}
	density := 0.0
	if n := len(d.Members) * len(d.Destinations); n > 0 {
		seen := map[string]bool{}
		for _, pr := range d.Preferences {
			seen[pr.MemberID+"\x00"+pr.DestinationID] = true
		}
		density = float64(len(seen)) / float64(n)
	}
	return governor.LoadProfile{
		Destinations:      len(d.Destinations),
		Members:           len(d.Members),
		SpreadKm:          geo.SpreadKm(pts),
		PreferenceDensity: density,
	}
}

func classifyFetch(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return triperr.Wrap(err, triperr.KindValidation, "unknown group")
	case errors.Is(err, store.ErrForbidden):
		return triperr.Wrap(err, triperr.KindPermissionDenied, "requester is not a member of this group")
	default:
		return triperr.Wrap(err, triperr.KindUpstreamDataError, "fetch trip data")
	}
}

func errorResult(err *triperr.Error, warnings []string) model.OptimizeResult {
	return model.OptimizeResult{
		Status:   model.StatusError,
		Warnings: warnings,
		Error: &model.ErrorPayload{
			Kind:             string(err.Kind),
			Message:          err.Message,
			Retryable:        err.Retryable(),
			SuggestedActions: err.SuggestedActions,
		},
	}
}

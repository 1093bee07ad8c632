// Package edgecase rewrites degenerate trip inputs into a tractable form
// before optimization. It detects, it transforms, it never fails: the worst
// outcome is the input unchanged plus warnings.
package edgecase

import (
	"fmt"
	"sort"
	"time"

	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// Case identifiers surfaced in the detection report.
const (
	CaseInvalidCoordinates    = "invalid_coordinates"
	CaseSingleDestination     = "single_destination"
	CaseSingleMember          = "single_member"
	CaseColocatedDestinations = "colocated_destinations"
	CaseLowCoverage           = "low_preference_coverage"
	CaseSparseCoverage        = "sparse_preference_coverage"
	CaseTooManyDestinations   = "too_many_destinations"
	CaseNonPositiveWindow     = "non_positive_trip_window"
)

const (
	// ColocationRadiusKm bounds "all destinations in one place".
	ColocationRadiusKm = 1.0
	// MaxDestinations is the cap beyond which the candidate set is truncated.
	MaxDestinations = 50
	// coverage thresholds over the member x destination preference matrix
	lowCoverage    = 0.30
	sparseCoverage = 0.50
)

type Detection struct {
	Case   string `json:"case"`
	Detail string `json:"detail,omitempty"`
}

// Report lists what was detected and which of it the caller should surface.
type Report struct {
	Detections []Detection
	Warnings   []string
}

func (r *Report) add(c, detail string, warn bool) {
	r.Detections = append(r.Detections, Detection{Case: c, Detail: detail})
	if warn {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", c, detail))
	}
}

// Has reports whether a case was detected.
func (r *Report) Has(c string) bool {
	for _, d := range r.Detections {
		if d.Case == c {
			return true
		}
	}
	return false
}

// Apply sanitizes data and returns the transformed copy plus a report.
// The input is never mutated.
func Apply(in model.TripData) (model.TripData, *Report) {
	out := in
	out.Destinations = append([]model.Destination(nil), in.Destinations...)
	out.Preferences = append([]model.PreferenceRecord(nil), in.Preferences...)
	rep := &Report{}

	out = dropInvalidCoordinates(out, rep)
	out = forceWindow(out, rep)
	out = truncateExcess(out, rep)
	detectColocation(out, rep)
	detectCardinality(out, rep)
	out = fillCoverage(out, rep)
	return out, rep
}

func dropInvalidCoordinates(d model.TripData, rep *Report) model.TripData {
	kept := d.Destinations[:0]
	dropped := 0
	for _, dest := range d.Destinations {
		if geo.ValidCoordinate(dest.Location) {
			kept = append(kept, dest)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		d.Destinations = kept
		rep.add(CaseInvalidCoordinates, fmt.Sprintf("dropped %d destination(s) with invalid coordinates", dropped), true)
	}
	return d
}

func forceWindow(d model.TripData, rep *Report) model.TripData {
	if d.Window.End.After(d.Window.Start) {
		return d
	}
	start := d.Window.Start
	if start.IsZero() {
		start = time.Now().Truncate(24 * time.Hour)
	}
	d.Window = model.TripWindow{Start: start, End: start.Add(24 * time.Hour)}
	rep.add(CaseNonPositiveWindow, "trip window was zero or negative; forced a 1-day window", true)
	return d
}

func truncateExcess(d model.TripData, rep *Report) model.TripData {
	if len(d.Destinations) <= MaxDestinations {
		return d
	}
	mean := meanScores(d)
	sort.SliceStable(d.Destinations, func(i, j int) bool {
		return mean[d.Destinations[i].ID] > mean[d.Destinations[j].ID]
	})
	cut := len(d.Destinations) - MaxDestinations
	d.Destinations = d.Destinations[:MaxDestinations]
	rep.add(CaseTooManyDestinations, fmt.Sprintf("truncated %d destination(s) with lowest mean preference", cut), true)
	return d
}

func detectColocation(d model.TripData, rep *Report) {
	if len(d.Destinations) < 2 {
		return
	}
	for i := 0; i < len(d.Destinations); i++ {
		for j := i + 1; j < len(d.Destinations); j++ {
			if geo.HaversineKm(d.Destinations[i].Location, d.Destinations[j].Location) >= ColocationRadiusKm {
				return
			}
		}
	}
	// all pairwise distances below the radius; clustering will merge them
	// into a single walking-only cluster
	rep.add(CaseColocatedDestinations, "all destinations lie within the colocation radius", false)
}

func detectCardinality(d model.TripData, rep *Report) {
	if len(d.Destinations) == 1 {
		rep.add(CaseSingleDestination, "single destination is accepted at full selection", false)
	}
	if len(d.Members) == 1 {
		rep.add(CaseSingleMember, "single member's preferences are treated as absolute", false)
	}
}

// fillCoverage injects neutral defaults for missing (member, destination)
// pairs when coverage is thin, so the fairness evaluator always has a full
// matrix to work with.
func fillCoverage(d model.TripData, rep *Report) model.TripData {
	if len(d.Members) == 0 || len(d.Destinations) == 0 {
		return d
	}
	have := map[string]bool{}
	for _, p := range d.Preferences {
		have[p.MemberID+"\x00"+p.DestinationID] = true
	}
	total := len(d.Members) * len(d.Destinations)
	coverage := float64(len(have)) / float64(total)
	switch {
	case coverage < lowCoverage:
		rep.add(CaseLowCoverage, fmt.Sprintf("preference coverage %.0f%% is below %.0f%%; neutral defaults injected", coverage*100, lowCoverage*100), true)
	case coverage < sparseCoverage:
		rep.add(CaseSparseCoverage, fmt.Sprintf("preference coverage %.0f%% is below %.0f%%", coverage*100, sparseCoverage*100), true)
	default:
		return d
	}
	for _, m := range d.Members {
		for _, dest := range d.Destinations {
			if !have[m.ID+"\x00"+dest.ID] {
				d.Preferences = append(d.Preferences, model.PreferenceRecord{
					MemberID:      m.ID,
					DestinationID: dest.ID,
					Score:         3,
				})
			}
		}
	}
	return d
}

func meanScores(d model.TripData) map[string]float64 {
	sum := map[string]float64{}
	cnt := map[string]int{}
	for _, p := range d.Preferences {
		sum[p.DestinationID] += p.Score
		cnt[p.DestinationID]++
	}
	out := make(map[string]float64, len(d.Destinations))
	for _, dest := range d.Destinations {
		if c := cnt[dest.ID]; c > 0 {
			out[dest.ID] = sum[dest.ID] / float64(c)
		} else {
			out[dest.ID] = 3
		}
	}
	return out
}

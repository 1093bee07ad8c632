// Package fairness scores candidate solutions by how evenly they satisfy
// group members. Pure functions over a prebuilt preference index; the
// optimizer calls these on every candidate.
package fairness

import (
	"sort"

	"tripnav/internal/model"
)

// Evaluator holds the preference index for one optimization pass. Build it
// once; Evaluate is O(members x selected destinations) per call.
type Evaluator struct {
	members []model.GroupMember
	scores  map[string]map[string]float64 // member -> destination -> score
	total   map[string]float64            // member -> max achievable mass
}

// NeutralScore is assumed for (member, destination) pairs with no record.
const NeutralScore = 3.0

// NewEvaluator indexes normalized preferences against the candidate
// destination set.
func NewEvaluator(members []model.GroupMember, dests []model.Destination, prefs []model.PreferenceRecord) *Evaluator {
	e := &Evaluator{
		members: members,
		scores:  make(map[string]map[string]float64, len(members)),
		total:   make(map[string]float64, len(members)),
	}
	byPair := map[string]map[string]float64{}
	for _, p := range prefs {
		m := byPair[p.MemberID]
		if m == nil {
			m = map[string]float64{}
			byPair[p.MemberID] = m
		}
		m[p.DestinationID] = p.Score
	}
	for _, mem := range members {
		row := make(map[string]float64, len(dests))
		total := 0.0
		for _, d := range dests {
			s, ok := byPair[mem.ID][d.ID]
			if !ok {
				s = NeutralScore
			}
			row[d.ID] = s
			total += s
		}
		e.scores[mem.ID] = row
		e.total[mem.ID] = total
	}
	return e
}

// Satisfaction computes each member's normalized preference mass over the
// selected destinations. 1.0 means everything the member could want is in.
func (e *Evaluator) Satisfaction(selected []string) map[string]float64 {
	out := make(map[string]float64, len(e.members))
	for _, mem := range e.members {
		row := e.scores[mem.ID]
		got := 0.0
		for _, id := range selected {
			got += row[id]
		}
		if t := e.total[mem.ID]; t > 0 {
			out[mem.ID] = got / t
		} else {
			out[mem.ID] = 1
		}
	}
	return out
}

// Evaluate returns the aggregate fairness score, 1 - Gini over member
// satisfactions, plus the per-member breakdown.
func (e *Evaluator) Evaluate(selected []string) (float64, map[string]float64) {
	sat := e.Satisfaction(selected)
	return 1 - e.gini(sat), sat
}

// gini is the weighted Gini coefficient of the satisfaction distribution.
// Invariant under member relabeling; 0 for a single member or a perfectly
// even split. Computed over the sorted distribution, so a pass costs
// O(members log members) rather than a pairwise quadratic sweep.
func (e *Evaluator) gini(sat map[string]float64) float64 {
	if len(e.members) < 2 {
		return 0
	}
	type point struct{ w, x float64 }
	pts := make([]point, 0, len(e.members))
	var sumW, mean float64
	for _, mem := range e.members {
		w := weightOf(mem)
		pts = append(pts, point{w: w, x: sat[mem.ID]})
		sumW += w
		mean += w * sat[mem.ID]
	}
	if sumW == 0 {
		return 0
	}
	mean /= sumW
	if mean == 0 {
		return 0
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })
	// with x ascending, sum_{i,j} w_i w_j |x_i - x_j| folds into a single
	// pass over cumulative weight and weighted-satisfaction sums
	var diff, cumW, cumWX float64
	for _, p := range pts {
		diff += 2 * p.w * (p.x*cumW - cumWX)
		cumW += p.w
		cumWX += p.w * p.x
	}
	return diff / (2 * sumW * sumW * mean)
}

func weightOf(m model.GroupMember) float64 {
	if m.Weight > 0 {
		return m.Weight
	}
	return 1
}

package fairness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tripnav/internal/model"
)

func members(ids ...string) []model.GroupMember {
	out := make([]model.GroupMember, len(ids))
	for i, id := range ids {
		out[i] = model.GroupMember{ID: id}
	}
	return out
}

func dests(ids ...string) []model.Destination {
	out := make([]model.Destination, len(ids))
	for i, id := range ids {
		out[i] = model.Destination{ID: id}
	}
	return out
}

func TestSingleMemberFairnessIsOne(t *testing.T) {
	e := NewEvaluator(members("a"), dests("d1", "d2"), []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 5},
		{MemberID: "a", DestinationID: "d2", Score: 1},
	})
	f, sat := e.Evaluate([]string{"d1"})
	require.Equal(t, 1.0, f)
	require.InDelta(t, 5.0/6.0, sat["a"], 1e-9)
}

func TestFullSelectionSatisfiesEveryone(t *testing.T) {
	e := NewEvaluator(members("a", "b"), dests("d1", "d2"), []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 5},
		{MemberID: "b", DestinationID: "d2", Score: 2},
	})
	f, sat := e.Evaluate([]string{"d1", "d2"})
	require.Equal(t, 1.0, f)
	require.Equal(t, 1.0, sat["a"])
	require.Equal(t, 1.0, sat["b"])
}

func TestFairnessPermutationInvariant(t *testing.T) {
	prefs := []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 5},
		{MemberID: "a", DestinationID: "d2", Score: 1},
		{MemberID: "b", DestinationID: "d1", Score: 1},
		{MemberID: "b", DestinationID: "d2", Score: 5},
		{MemberID: "c", DestinationID: "d1", Score: 3},
	}
	ds := dests("d1", "d2")
	f1, _ := NewEvaluator(members("a", "b", "c"), ds, prefs).Evaluate([]string{"d1"})
	// relabel members: a<->c, b stays
	relabeled := make([]model.PreferenceRecord, len(prefs))
	for i, p := range prefs {
		switch p.MemberID {
		case "a":
			p.MemberID = "c"
		case "c":
			p.MemberID = "a"
		}
		relabeled[i] = p
	}
	f2, _ := NewEvaluator(members("c", "b", "a"), ds, relabeled).Evaluate([]string{"d1"})
	require.InDelta(t, f1, f2, 1e-12)
}

func TestSkewedSelectionScoresBelowEvenOne(t *testing.T) {
	// d1 only member a wants; d2 only member b wants
	prefs := []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 5},
		{MemberID: "a", DestinationID: "d2", Score: 1},
		{MemberID: "b", DestinationID: "d1", Score: 1},
		{MemberID: "b", DestinationID: "d2", Score: 5},
	}
	e := NewEvaluator(members("a", "b"), dests("d1", "d2"), prefs)
	skewed, _ := e.Evaluate([]string{"d1"})
	even, _ := e.Evaluate([]string{"d1", "d2"})
	require.Less(t, skewed, even)
}

func TestMissingPreferencesDefaultNeutral(t *testing.T) {
	e := NewEvaluator(members("a", "b"), dests("d1", "d2"), []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 3},
	})
	// b has no records at all; both members see identical neutral rows
	f, sat := e.Evaluate([]string{"d1"})
	require.Equal(t, 1.0, f)
	require.InDelta(t, sat["a"], sat["b"], 1e-12)
}

func TestGiniMatchesPairwiseDefinition(t *testing.T) {
	mems := []model.GroupMember{
		{ID: "a", Weight: 2},
		{ID: "b"},
		{ID: "c", Weight: 0.5},
		{ID: "d", Weight: 3},
	}
	prefs := []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 5},
		{MemberID: "a", DestinationID: "d3", Score: 1},
		{MemberID: "b", DestinationID: "d2", Score: 4},
		{MemberID: "c", DestinationID: "d1", Score: 2},
		{MemberID: "c", DestinationID: "d2", Score: 5},
		{MemberID: "d", DestinationID: "d3", Score: 4},
	}
	e := NewEvaluator(mems, dests("d1", "d2", "d3"), prefs)
	for _, sel := range [][]string{{"d1"}, {"d1", "d2"}, {"d2", "d3"}, {"d1", "d2", "d3"}} {
		f, sat := e.Evaluate(sel)

		// textbook form: mean absolute difference over all ordered pairs,
		// normalized by twice the weighted mean
		var sumW, mean float64
		for _, m := range mems {
			w := weightOf(m)
			sumW += w
			mean += w * sat[m.ID]
		}
		mean /= sumW
		var diff float64
		for _, x := range mems {
			for _, y := range mems {
				d := sat[x.ID] - sat[y.ID]
				if d < 0 {
					d = -d
				}
				diff += weightOf(x) * weightOf(y) * d
			}
		}
		want := 1 - diff/(2*sumW*sumW*mean)
		require.InDelta(t, want, f, 1e-12, "selection %v", sel)
	}
}

func TestMemberWeightsShiftGini(t *testing.T) {
	prefs := []model.PreferenceRecord{
		{MemberID: "a", DestinationID: "d1", Score: 5},
		{MemberID: "b", DestinationID: "d1", Score: 1},
		{MemberID: "a", DestinationID: "d2", Score: 1},
		{MemberID: "b", DestinationID: "d2", Score: 5},
	}
	ds := dests("d1", "d2")
	equal := NewEvaluator([]model.GroupMember{{ID: "a"}, {ID: "b"}}, ds, prefs)
	heavyA := NewEvaluator([]model.GroupMember{{ID: "a", Weight: 10}, {ID: "b", Weight: 1}}, ds, prefs)
	fEqual, _ := equal.Evaluate([]string{"d1"})
	fHeavy, _ := heavyA.Evaluate([]string{"d1"})
	// weighting toward the satisfied member reduces measured inequality
	require.Greater(t, fHeavy, fEqual)
}

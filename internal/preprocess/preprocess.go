// Package preprocess standardizes preference scores and groups destinations
// into clusters, the unit the optimizer reasons about.
package preprocess

import (
	"fmt"

	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// DefaultClusterRadiusKm matches the colocation threshold: destinations this
// close are visited on foot as one unit.
const DefaultClusterRadiusKm = 1.0

// Result carries the normalized data, the clustering, and the validation
// split. Non-empty Issues mean the pipeline must not proceed to the
// optimizer.
type Result struct {
	Data     model.TripData
	Clusters []model.Cluster
	Issues   []string
	Warnings []string
}

// Run normalizes preferences and clusters destinations. radiusKm <= 0 uses
// the default.
func Run(in model.TripData, radiusKm float64) *Result {
	if radiusKm <= 0 {
		radiusKm = DefaultClusterRadiusKm
	}
	res := &Result{Data: in}

	if len(in.Destinations) == 0 {
		res.Issues = append(res.Issues, "no destinations to optimize")
		return res
	}
	if len(in.Members) == 0 {
		// a memberless group still gets an itinerary: synthesize one neutral
		// member so fairness math stays defined
		res.Data.Members = []model.GroupMember{{ID: "group", DisplayName: "Group"}}
		res.Warnings = append(res.Warnings, "no group members supplied; using neutral group preferences")
	}

	res.Data.Preferences = normalize(res.Data)
	if len(res.Data.Preferences) == 0 {
		res.Warnings = append(res.Warnings, "no preferences supplied; all destinations scored neutrally")
	}
	res.Clusters = clusterize(res.Data.Destinations, radiusKm)
	return res
}

// normalize averages duplicate (member, destination) records and clamps
// scores onto [1,5].
func normalize(d model.TripData) []model.PreferenceRecord {
	type acc struct {
		score float64
		min   int
		n     int
	}
	byPair := map[[2]string]*acc{}
	var order [][2]string
	for _, p := range d.Preferences {
		k := [2]string{p.MemberID, p.DestinationID}
		a, ok := byPair[k]
		if !ok {
			a = &acc{}
			byPair[k] = a
			order = append(order, k)
		}
		a.score += clampScore(p.Score)
		a.min += p.PreferredMin
		a.n++
	}
	out := make([]model.PreferenceRecord, 0, len(order))
	for _, k := range order {
		a := byPair[k]
		out = append(out, model.PreferenceRecord{
			MemberID:      k[0],
			DestinationID: k[1],
			Score:         a.score / float64(a.n),
			PreferredMin:  a.min / a.n,
		})
	}
	return out
}

func clampScore(s float64) float64 {
	if s < 1 {
		return 1
	}
	if s > 5 {
		return 5
	}
	return s
}

// clusterize greedily assigns each destination to the first cluster whose
// centroid is within radiusKm, recomputing the centroid after each
// assignment. Deterministic for a given input order.
func clusterize(dests []model.Destination, radiusKm float64) []model.Cluster {
	var clusters []model.Cluster
	for _, dest := range dests {
		placed := false
		for i := range clusters {
			if geo.HaversineKm(clusters[i].Centroid, dest.Location) <= radiusKm {
				clusters[i].Destinations = append(clusters[i].Destinations, dest)
				clusters[i].Centroid = centroidOf(clusters[i].Destinations)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, model.Cluster{
				ID:           fmt.Sprintf("cl_%d", len(clusters)+1),
				Destinations: []model.Destination{dest},
				Centroid:     dest.Location,
			})
		}
	}
	return clusters
}

func centroidOf(dests []model.Destination) model.GeoPoint {
	pts := make([]model.GeoPoint, len(dests))
	for i, d := range dests {
		pts[i] = d.Location
	}
	return geo.Centroid(pts)
}

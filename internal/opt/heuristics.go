package opt

import (
	"tripnav/internal/geo"
	"tripnav/internal/model"
)

// ImproveOrder2Opt applies a bounded 2-opt pass over cluster centroids to
// reduce total route distance without changing the selection.
func ImproveOrder2Opt(clusters []model.Cluster, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestDist := orderDistance(clusters, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-2; i++ {
			for k := i + 1; k < n-1; k++ {
				cand := twoOptSwap(best, i, k)
				if d := orderDistance(clusters, cand); d+1e-6 < bestDist {
					best, bestDist = cand, d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func orderDistance(clusters []model.Cluster, order []int) float64 {
	total := 0.0
	for i := 0; i+1 < len(order); i++ {
		total += geo.HaversineKm(clusters[order[i]].Centroid, clusters[order[i+1]].Centroid)
	}
	return total
}

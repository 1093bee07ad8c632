package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripnav/internal/model"
)

func lineClusters(lats ...float64) []model.Cluster {
	out := make([]model.Cluster, len(lats))
	for i, lat := range lats {
		out[i] = model.Cluster{ID: string(rune('a' + i)), Centroid: model.GeoPoint{Lat: lat, Lng: 0}}
	}
	return out
}

func TestImproveOrder2OptUncrossesRoute(t *testing.T) {
	// clusters on a line; visiting them out of order doubles back
	clusters := lineClusters(0, 1, 2, 3)
	improved := ImproveOrder2Opt(clusters, []int{0, 2, 1, 3}, 3)
	require.Len(t, improved, 4)
	assert.LessOrEqual(t,
		orderDistance(clusters, improved),
		orderDistance(clusters, []int{0, 2, 1, 3}))
	assert.Equal(t, []int{0, 1, 2, 3}, improved)
}

func TestImproveOrder2OptKeepsSelection(t *testing.T) {
	clusters := lineClusters(0, 5, 2, 8, 1)
	order := []int{3, 0, 4, 2}
	improved := ImproveOrder2Opt(clusters, order, 2)
	require.Len(t, improved, len(order))
	seen := map[int]bool{}
	for _, i := range improved {
		seen[i] = true
	}
	for _, i := range order {
		assert.True(t, seen[i])
	}
}

func TestImproveOrder2OptShortOrderUnchanged(t *testing.T) {
	clusters := lineClusters(0, 1)
	assert.Equal(t, []int{1, 0}, ImproveOrder2Opt(clusters, []int{1, 0}, 1))
}

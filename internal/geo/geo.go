package geo

import (
	"math"

	"tripnav/internal/model"
)

// Distances are great-circle (haversine); no road network is consulted.

const earthRadiusKm = 6371.0

// Transport mode bands and assumed speeds. A leg at or under WalkingMaxKm is
// walkable; legs beyond DrivingMaxKm fly.
const (
	WalkingMaxKm = 1.0
	DrivingMaxKm = 500.0

	walkingKph = 4.5
	drivingKph = 65.0
	flyingKph  = 700.0

	// fixed overhead for airport transfer, boarding etc.
	flyingOverheadMin = 120
)

func HaversineKm(a, b model.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ModeFor infers the transport mode from the leg distance.
func ModeFor(distKm float64) model.TransportMode {
	switch {
	case distKm <= WalkingMaxKm:
		return model.ModeWalking
	case distKm <= DrivingMaxKm:
		return model.ModeDriving
	default:
		return model.ModeFlying
	}
}

// TravelMinutes estimates leg duration for a mode, minimum one minute for a
// non-zero distance.
func TravelMinutes(distKm float64, mode model.TransportMode) int {
	var speed float64
	overhead := 0
	switch mode {
	case model.ModeWalking:
		speed = walkingKph
	case model.ModeFlying:
		speed = flyingKph
		overhead = flyingOverheadMin
	default:
		speed = drivingKph
	}
	min := int(math.Round(distKm/speed*60)) + overhead
	if min < 1 && distKm > 0.01 {
		min = 1
	}
	return min
}

// SegmentBetween builds a travel leg between two named points.
func SegmentBetween(fromID string, from model.GeoPoint, toID string, to model.GeoPoint) model.Segment {
	d := HaversineKm(from, to)
	mode := ModeFor(d)
	return model.Segment{
		FromID:      fromID,
		ToID:        toID,
		Mode:        mode,
		DistanceKm:  d,
		DurationMin: TravelMinutes(d, mode),
	}
}

// SpreadKm is the maximum pairwise distance across points, used by adaptive
// timeout estimation.
func SpreadKm(points []model.GeoPoint) float64 {
	max := 0.0
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if d := HaversineKm(points[i], points[j]); d > max {
				max = d
			}
		}
	}
	return max
}

// ValidCoordinate reports whether p is a usable lat/lng pair.
func ValidCoordinate(p model.GeoPoint) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Centroid is the arithmetic mean of the points. Fine at city scale; nobody
// plans a day trip across the antimeridian.
func Centroid(points []model.GeoPoint) model.GeoPoint {
	if len(points) == 0 {
		return model.GeoPoint{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return model.GeoPoint{Lat: lat / n, Lng: lng / n}
}

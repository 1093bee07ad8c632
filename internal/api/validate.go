package api

import (
	"fmt"

	"tripnav/internal/model"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.TimeoutMs < 0 {
		return fmt.Errorf("timeoutMs must be >= 0")
	}
	if req.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must be >= 0")
	}
	switch req.AccommodationQuality {
	case "", "budget", "standard", "premium":
	default:
		return fmt.Errorf("invalid accommodationQuality: %s (allowed: budget,standard,premium)", req.AccommodationQuality)
	}
	return nil
}

func validateTripData(d *model.TripData) error {
	if len(d.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}
	for i, dest := range d.Destinations {
		if dest.ID == "" {
			return fmt.Errorf("destination[%d] is missing an id", i)
		}
	}
	for i, p := range d.Preferences {
		if p.Score < 0 || p.Score > 5 {
			return fmt.Errorf("preference[%d] score %.1f outside [0,5]", i, p.Score)
		}
	}
	return nil
}

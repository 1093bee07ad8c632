package store

import (
	"context"
	"errors"

	"tripnav/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the requester is not a member of the
	// group being fetched.
	ErrForbidden = errors.New("forbidden")
)

// Store is the persistence interface used by the pipeline and the API
// server. The pipeline treats fetch failures as upstream data errors and
// never assumes a particular backend.
type Store interface {
	// Trips
	CreateTrip(ctx context.Context, data model.TripData) (string, error)
	FetchTripData(ctx context.Context, groupID, requester string) (model.TripData, error)

	// Results
	SaveResult(ctx context.Context, groupID string, res model.OptimizeResult) error
	GetResult(ctx context.Context, groupID string) (model.OptimizeResult, error)

	// Health
	Ping(ctx context.Context) error
}

// requesterAllowed checks group membership. An empty requester is treated as
// an internal/system call and allowed.
func requesterAllowed(data model.TripData, requester string) bool {
	if requester == "" {
		return true
	}
	for _, m := range data.Members {
		if m.ID == requester {
			return true
		}
	}
	return false
}

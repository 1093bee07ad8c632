package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tripnav/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu      sync.Mutex
	trips   map[string]model.TripData
	results map[string]model.OptimizeResult
}

func NewMemory() *Memory {
	return &Memory{
		trips:   map[string]model.TripData{},
		results: map[string]model.OptimizeResult{},
	}
}

func (m *Memory) CreateTrip(ctx context.Context, data model.TripData) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data.GroupID == "" {
		data.GroupID = newGroupID()
	}
	m.trips[data.GroupID] = data
	return data.GroupID, nil
}

func (m *Memory) FetchTripData(ctx context.Context, groupID, requester string) (model.TripData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.trips[groupID]
	if !ok {
		return model.TripData{}, ErrNotFound
	}
	if !requesterAllowed(data, requester) {
		return model.TripData{}, ErrForbidden
	}
	return data, nil
}

func (m *Memory) SaveResult(ctx context.Context, groupID string, res model.OptimizeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[groupID] = res
	return nil
}

func (m *Memory) GetResult(ctx context.Context, groupID string) (model.OptimizeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[groupID]
	if !ok {
		return model.OptimizeResult{}, ErrNotFound
	}
	return res, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func newGroupID() string { return "grp_" + uuid.New().String()[:8] }

package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tripnav/internal/model"
)

func TestMemoryTripRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.CreateTrip(ctx, model.TripData{
		Destinations: []model.Destination{{ID: "d1"}},
		Members:      []model.GroupMember{{ID: "alice"}},
	})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if !strings.HasPrefix(id, "grp_") {
		t.Fatalf("group id = %q", id)
	}
	data, err := m.FetchTripData(ctx, id, "")
	if err != nil {
		t.Fatalf("FetchTripData: %v", err)
	}
	if data.GroupID != id || len(data.Destinations) != 1 {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestMemoryFetchUnknownGroup(t *testing.T) {
	_, err := NewMemory().FetchTripData(context.Background(), "grp_missing", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryMembershipEnforced(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, _ := m.CreateTrip(ctx, model.TripData{Members: []model.GroupMember{{ID: "alice"}}})

	if _, err := m.FetchTripData(ctx, id, "alice"); err != nil {
		t.Fatalf("member fetch: %v", err)
	}
	if _, err := m.FetchTripData(ctx, id, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// empty requester is an internal call
	if _, err := m.FetchTripData(ctx, id, ""); err != nil {
		t.Fatalf("internal fetch: %v", err)
	}
}

func TestMemoryResultRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.GetResult(ctx, "grp_x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	res := model.OptimizeResult{Status: model.StatusSuccess, SessionID: "ses_1"}
	if err := m.SaveResult(ctx, "grp_x", res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, err := m.GetResult(ctx, "grp_x")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Status != model.StatusSuccess || got.SessionID != "ses_1" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

package model

import (
	"testing"
	"time"
)

func TestTripWindowDays(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want int
	}{
		{start, 1},                      // zero window still counts one day
		{start.Add(-24 * time.Hour), 1}, // inverted window
		{start.Add(24 * time.Hour), 1},
		{start.Add(36 * time.Hour), 2}, // rounds to nearest day
		{start.Add(7 * 24 * time.Hour), 7},
		{start.Add(10 * 24 * time.Hour), 10},
	}
	for _, c := range cases {
		w := TripWindow{Start: start, End: c.end}
		if got := w.Days(); got != c.want {
			t.Fatalf("Days(%v) = %d, want %d", c.end.Sub(start), got, c.want)
		}
	}
}

func TestClusterStayMinutes(t *testing.T) {
	c := Cluster{Destinations: []Destination{
		{ID: "a", PreferredStayMin: 120},
		{ID: "b", MinStayMin: 45},
		{ID: "c"}, // falls back to the default
	}}
	if got := c.StayMinutes(); got != 120+45+DefaultStayMin {
		t.Fatalf("StayMinutes = %d", got)
	}
}

func TestReturnPointDefaultsToDeparture(t *testing.T) {
	d := TripData{Departure: GeoPoint{Lat: 1, Lng: 2}}
	if d.ReturnPoint() != d.Departure {
		t.Fatal("expected the departure point")
	}
	ret := GeoPoint{Lat: 3, Lng: 4}
	d.Return = &ret
	if d.ReturnPoint() != ret {
		t.Fatal("expected the explicit return point")
	}
}

func TestOptimizeRequestMultiDayDefault(t *testing.T) {
	if !(OptimizeRequest{}).MultiDay() {
		t.Fatal("multi-day scheduling defaults on")
	}
	off := false
	if (OptimizeRequest{EnableMultiDayScheduling: &off}).MultiDay() {
		t.Fatal("explicit false must win")
	}
}

func TestRouteSolutionDestinationIDs(t *testing.T) {
	s := RouteSolution{Clusters: []Cluster{
		{Destinations: []Destination{{ID: "a"}, {ID: "b"}}},
		{Destinations: []Destination{{ID: "c"}}},
	}}
	ids := s.DestinationIDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("ids = %v", ids)
	}
}

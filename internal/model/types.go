package model

import "time"

// Core domain types for trip optimization.

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Destination is a candidate place to visit. Immutable for the duration of
// one optimization pass.
type Destination struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Location         GeoPoint `json:"location"`
	Category         string   `json:"category,omitempty"`
	MinStayMin       int      `json:"minStayMin,omitempty"`
	PreferredStayMin int      `json:"preferredStayMin,omitempty"`
}

type GroupMember struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName,omitempty"`
	Weight      float64 `json:"weight,omitempty"` // 0 means equal weight
}

// PreferenceRecord scores one (member, destination) pair on [1,5].
// Multiple records for the same pair are averaged; a missing pair defaults
// to the neutral score 3.
type PreferenceRecord struct {
	MemberID      string  `json:"memberId"`
	DestinationID string  `json:"destinationId"`
	Score         float64 `json:"score"`
	PreferredMin  int     `json:"preferredMin,omitempty"`
}

type TripWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days reports the number of calendar days covered by the window, minimum 1.
func (w TripWindow) Days() int {
	d := int(w.End.Sub(w.Start).Hours()/24 + 0.5)
	if d < 1 {
		return 1
	}
	return d
}

// TripData is the full read-only input for one optimization request.
type TripData struct {
	GroupID      string             `json:"groupId"`
	Destinations []Destination      `json:"destinations"`
	Members      []GroupMember      `json:"members"`
	Preferences  []PreferenceRecord `json:"preferences"`
	Departure    GeoPoint           `json:"departure"`
	Return       *GeoPoint          `json:"return,omitempty"` // nil means return to departure
	Window       TripWindow         `json:"window"`
}

// ReturnPoint resolves the return location, defaulting to the departure.
func (t TripData) ReturnPoint() GeoPoint {
	if t.Return != nil {
		return *t.Return
	}
	return t.Departure
}

// DefaultStayMin is assumed when a destination declares no stay duration.
const DefaultStayMin = 90

// Cluster groups destinations within the colocation radius. The optimizer
// selects and orders clusters, not raw destinations.
type Cluster struct {
	ID           string        `json:"id"`
	Destinations []Destination `json:"destinations"`
	Centroid     GeoPoint      `json:"centroid"`
}

// StayMinutes is the total preferred stay across the cluster's destinations.
func (c Cluster) StayMinutes() int {
	total := 0
	for _, d := range c.Destinations {
		m := d.PreferredStayMin
		if m <= 0 {
			m = d.MinStayMin
		}
		if m <= 0 {
			m = DefaultStayMin
		}
		total += m
	}
	return total
}

type TransportMode string

const (
	ModeWalking TransportMode = "walking"
	ModeDriving TransportMode = "driving"
	ModeFlying  TransportMode = "flying"
)

// Segment is one travel leg between consecutive stops in a route.
type Segment struct {
	FromID      string        `json:"fromId"`
	ToID        string        `json:"toId"`
	Mode        TransportMode `json:"mode"`
	DistanceKm  float64       `json:"distanceKm"`
	DurationMin int           `json:"durationMin"`
}

// RouteSolution is an ordered selection of clusters with scoring metadata.
type RouteSolution struct {
	Clusters           []Cluster          `json:"clusters"`
	Segments           []Segment          `json:"segments"`
	FairnessScore      float64            `json:"fairnessScore"`
	QuantityScore      float64            `json:"quantityScore"`
	CompositeScore     float64            `json:"compositeScore"`
	Feasible           bool               `json:"feasible"`
	MemberSatisfaction map[string]float64 `json:"memberSatisfaction,omitempty"`
	TotalDistanceKm    float64            `json:"totalDistanceKm"`
	TotalTravelMin     int                `json:"totalTravelMin"`
	Issues             []string           `json:"issues,omitempty"`
}

// DestinationIDs returns the ids of all included destinations in route order.
func (s RouteSolution) DestinationIDs() []string {
	var ids []string
	for _, c := range s.Clusters {
		for _, d := range c.Destinations {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PacePacked   Pace = "packed"
)

type Visit struct {
	Destination Destination `json:"destination"`
	Arrival     time.Time   `json:"arrival"`
	Departure   time.Time   `json:"departure"`
	TravelIn    *Segment    `json:"travelIn,omitempty"`
}

type MealBreak struct {
	Kind        string    `json:"kind"` // breakfast, lunch, dinner
	Start       time.Time `json:"start"`
	DurationMin int       `json:"durationMin"`
}

type AccommodationSlot struct {
	NearClusterID string    `json:"nearClusterId"`
	Location      GeoPoint  `json:"location"`
	Quality       string    `json:"quality,omitempty"`
	CheckIn       time.Time `json:"checkIn"`
}

type DaySchedule struct {
	Day           int                `json:"day"` // 1-based
	Date          time.Time          `json:"date"`
	Visits        []Visit            `json:"visits"`
	Meals         []MealBreak        `json:"meals,omitempty"`
	Accommodation *AccommodationSlot `json:"accommodation,omitempty"`
	Pace          Pace               `json:"pace"`
	ActiveMinutes int                `json:"activeMinutes"`
}

// OptimizationSession records per-stage timings and resource usage for one
// request. It lives for the duration of the request only.
type OptimizationSession struct {
	ID             string                   `json:"id"`
	GroupID        string                   `json:"groupId"`
	StartedAt      time.Time                `json:"startedAt"`
	StageDurations map[string]time.Duration `json:"-"`
	Iterations     int                      `json:"iterations"`
	PeakHeapBytes  uint64                   `json:"peakHeapBytes,omitempty"`
	Status         string                   `json:"status"`
}

func (s *OptimizationSession) RecordStage(name string, d time.Duration) {
	if s.StageDurations == nil {
		s.StageDurations = map[string]time.Duration{}
	}
	s.StageDurations[name] += d
}

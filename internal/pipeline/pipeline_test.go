package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tripnav/internal/config"
	"tripnav/internal/governor"
	"tripnav/internal/model"
	"tripnav/internal/store"
	"tripnav/internal/triperr"
)

func newTestPipeline(st store.Store) *Pipeline {
	gov := governor.New(governor.Config{
		BackoffBase: time.Millisecond,
		Grace:       200 * time.Millisecond,
	}, nil)
	return New(st, gov, config.Default())
}

func window(days int) model.TripWindow {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return model.TripWindow{Start: start, End: start.Add(time.Duration(days) * 24 * time.Hour)}
}

// parisTrip is the happy-path fixture: three destinations, three members,
// a fully covered preference matrix.
func parisTrip() model.TripData {
	dests := []model.Destination{
		{ID: "louvre", Name: "Louvre", Location: model.GeoPoint{Lat: 48.8606, Lng: 2.3376}, PreferredStayMin: 120},
		{ID: "tower", Name: "Eiffel Tower", Location: model.GeoPoint{Lat: 48.8584, Lng: 2.2945}, PreferredStayMin: 90},
		{ID: "sacre", Name: "Sacre-Coeur", Location: model.GeoPoint{Lat: 48.8867, Lng: 2.3431}, PreferredStayMin: 60},
	}
	members := []model.GroupMember{{ID: "alice"}, {ID: "bob"}, {ID: "carol"}}
	var prefs []model.PreferenceRecord
	for i, m := range members {
		for j, d := range dests {
			prefs = append(prefs, model.PreferenceRecord{
				MemberID:      m.ID,
				DestinationID: d.ID,
				Score:         float64(2 + (i+j)%3),
			})
		}
	}
	return model.TripData{
		Destinations: dests,
		Members:      members,
		Preferences:  prefs,
		Departure:    dests[0].Location, // the group starts at its first pick
		Window:       window(2),
	}
}

func mustCreate(t *testing.T, st store.Store, data model.TripData) string {
	t.Helper()
	id, err := st.CreateTrip(context.Background(), data)
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return id
}

func TestOptimizeHappyPath(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	p.Cfg.Schedule.DailyBudgetMin = 480 // 8-hour days
	id := mustCreate(t, st, parisTrip())

	res := p.Optimize(context.Background(), id, "alice", model.OptimizeRequest{})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s, error = %+v", res.Status, res.Error)
	}
	if res.Solution == nil {
		t.Fatal("nil solution")
	}
	ids := res.Solution.DestinationIDs()
	if len(ids) != 3 {
		t.Fatalf("selected %v, want all three", ids)
	}
	if !res.Solution.Feasible {
		t.Fatal("expected a feasible route")
	}
	if n := len(res.Schedules); n < 1 || n > 2 {
		t.Fatalf("schedules span %d days, want 1 or 2", n)
	}
	if res.SessionID == "" {
		t.Fatal("missing session id")
	}
	// result is persisted and retrievable
	saved, err := st.GetResult(context.Background(), id)
	if err != nil || saved.Status != model.StatusSuccess {
		t.Fatalf("saved result: %+v err=%v", saved, err)
	}
}

func TestOptimizeSingleDestination(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	data := parisTrip()
	data.Destinations = data.Destinations[:1]
	data.Preferences = nil
	id := mustCreate(t, st, data)

	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s, error = %+v", res.Status, res.Error)
	}
	if res.Solution.FairnessScore != 1.0 {
		t.Fatalf("fairness = %v, want 1.0", res.Solution.FairnessScore)
	}
	if res.Solution.QuantityScore != 1.0 {
		t.Fatalf("quantity = %v, want 1.0", res.Solution.QuantityScore)
	}
	segs := res.Solution.Segments
	if len(segs) < 2 || segs[0].FromID != "departure" || segs[len(segs)-1].ToID != "return" {
		t.Fatalf("segments do not form a round trip: %+v", segs)
	}
}

func TestOptimizeColocatedDestinations(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	loc := model.GeoPoint{Lat: 48.8606, Lng: 2.3376}
	data := parisTrip()
	data.Destinations = []model.Destination{
		{ID: "d1", Location: loc, PreferredStayMin: 60},
		{ID: "d2", Location: loc, PreferredStayMin: 60},
	}
	data.Preferences = nil
	id := mustCreate(t, st, data)

	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s, error = %+v", res.Status, res.Error)
	}
	if len(res.Solution.Clusters) != 1 {
		t.Fatalf("clusters = %d, want both destinations merged into one", len(res.Solution.Clusters))
	}
	var between *model.Segment
	for i := range res.Solution.Segments {
		s := res.Solution.Segments[i]
		if s.FromID == "d1" && s.ToID == "d2" || s.FromID == "d2" && s.ToID == "d1" {
			between = &s
		}
	}
	if between == nil {
		t.Fatalf("no segment between the colocated pair: %+v", res.Solution.Segments)
	}
	if between.Mode != model.ModeWalking {
		t.Fatalf("mode = %s, want walking", between.Mode)
	}
	if between.DistanceKm > 0.01 {
		t.Fatalf("distance = %v, want about zero", between.DistanceKm)
	}
}

func TestOptimizeTinyTimeoutDegradesGracefully(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	// enough spread-out destinations that nothing close to a perfect composite
	// exists inside a one-day window, so the search runs into its deadline
	var dests []model.Destination
	for i := 0; i < 8; i++ {
		dests = append(dests, model.Destination{
			ID:               fmt.Sprintf("d%d", i),
			Location:         model.GeoPoint{Lat: 44 + float64(i), Lng: float64(i) * 1.5},
			PreferredStayMin: 300,
		})
	}
	id := mustCreate(t, st, model.TripData{
		Destinations: dests,
		Members:      []model.GroupMember{{ID: "a"}},
		Departure:    model.GeoPoint{Lat: 44, Lng: 0},
		Window:       window(1),
	})

	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{
		TimeoutMs:     1,
		MaxIterations: 1_000_000_000,
	})
	if res.Status != model.StatusPartialSuccess {
		t.Fatalf("status = %s, error = %+v", res.Status, res.Error)
	}
	if res.Solution == nil || len(res.Solution.Clusters) == 0 {
		t.Fatal("expected a usable degraded solution")
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected warnings explaining the degradation")
	}
}

func TestOptimizeUnknownGroup(t *testing.T) {
	p := newTestPipeline(store.NewMemory())
	res := p.Optimize(context.Background(), "grp_nope", "", model.OptimizeRequest{})
	if res.Status != model.StatusError {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Error.Kind != string(triperr.KindValidation) {
		t.Fatalf("kind = %s", res.Error.Kind)
	}
	if res.Error.Retryable {
		t.Fatal("unknown group must not be retryable")
	}
}

func TestOptimizePermissionDenied(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	id := mustCreate(t, st, parisTrip())
	res := p.Optimize(context.Background(), id, "mallory", model.OptimizeRequest{})
	if res.Status != model.StatusError {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Error.Kind != string(triperr.KindPermissionDenied) {
		t.Fatalf("kind = %s", res.Error.Kind)
	}
}

func TestOptimizeNoDestinations(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	id := mustCreate(t, st, model.TripData{
		Members: []model.GroupMember{{ID: "a"}},
		Window:  window(1),
	})
	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusError {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Error.Kind != string(triperr.KindInsufficientData) {
		t.Fatalf("kind = %s", res.Error.Kind)
	}
	if len(res.Error.SuggestedActions) == 0 {
		t.Fatal("expected remediation suggestions")
	}
}

func TestOptimizeSkipsSchedulingWhenDisabled(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	id := mustCreate(t, st, parisTrip())
	off := false
	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{EnableMultiDayScheduling: &off})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Schedules) != 0 {
		t.Fatalf("schedules = %d, want none", len(res.Schedules))
	}
}

type failingSaveStore struct {
	store.Store
}

func (f *failingSaveStore) SaveResult(ctx context.Context, groupID string, res model.OptimizeResult) error {
	return errors.New("disk on fire")
}

func TestOptimizePersistFailureDegradesToWarning(t *testing.T) {
	mem := store.NewMemory()
	p := newTestPipeline(&failingSaveStore{Store: mem})
	id := mustCreate(t, mem, parisTrip())
	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s, error = %+v", res.Status, res.Error)
	}
	found := false
	for _, w := range res.Warnings {
		if w == "result could not be persisted; it is returned in this response only" {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings = %v", res.Warnings)
	}
}

func TestOptimizeReportsProgress(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	id := mustCreate(t, st, parisTrip())

	var stages []string
	p.Progress = func(groupID, stage string, percent int, message string) {
		if groupID != id {
			t.Errorf("group = %s, want %s", groupID, id)
		}
		stages = append(stages, stage)
	}
	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s", res.Status)
	}
	if len(stages) == 0 || stages[0] != "fetch" || stages[len(stages)-1] != "done" {
		t.Fatalf("stages = %v", stages)
	}
}

func TestOptimizeCanceledMidRunIsClassified(t *testing.T) {
	// a client can hang up between stages; with no grace window the governor
	// reports the cancellation immediately and the pipeline must return a
	// classified result instead of reading stage output that never arrived
	st := store.NewMemory()
	gov := governor.New(governor.Config{BackoffBase: time.Millisecond}, nil)
	p := New(st, gov, config.Default())
	id := mustCreate(t, st, parisTrip())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Progress = func(groupID, stage string, percent int, message string) {
		if stage == "edge_cases" {
			cancel()
		}
	}
	res := p.Optimize(ctx, id, "alice", model.OptimizeRequest{})
	switch res.Status {
	case model.StatusSuccess, model.StatusPartialSuccess:
		// the stage can still win the race against the cancellation
	case model.StatusError:
		if res.Error == nil || res.Error.Kind == "" {
			t.Fatalf("unclassified error result: %+v", res)
		}
	default:
		t.Fatalf("status = %q", res.Status)
	}
}

type panickingStore struct {
	store.Store
}

func (p *panickingStore) FetchTripData(ctx context.Context, groupID, requester string) (model.TripData, error) {
	panic("corrupt trip record")
}

func TestOptimizePanickingStageIsClassified(t *testing.T) {
	mem := store.NewMemory()
	p := newTestPipeline(&panickingStore{Store: mem})
	id := mustCreate(t, mem, parisTrip())
	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusError {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Error == nil || res.Error.Kind != string(triperr.KindUnknown) {
		t.Fatalf("error = %+v", res.Error)
	}
}

func TestOptimizeSurvivesPanickingProgressSink(t *testing.T) {
	st := store.NewMemory()
	p := newTestPipeline(st)
	id := mustCreate(t, st, parisTrip())
	p.Progress = func(groupID, stage string, percent int, message string) {
		panic("broken sink")
	}
	res := p.Optimize(context.Background(), id, "", model.OptimizeRequest{})
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s, error = %+v", res.Status, res.Error)
	}
}

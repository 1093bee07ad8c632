// Package schedule expands a linear route into day-bounded itineraries with
// meal breaks and overnight accommodation slots.
package schedule

import (
	"fmt"
	"time"

	"tripnav/internal/model"
)

type Config struct {
	// DailyBudgetMin caps active minutes per day (travel + visits + meals).
	DailyBudgetMin int
	DayStartHour   int
	DayEndHour     int

	BreakfastMin int
	LunchMin     int
	DinnerMin    int

	// pace thresholds in active minutes per day
	RelaxedMaxMin  int
	ModerateMaxMin int

	AccommodationQuality string
}

func (c Config) withDefaults() Config {
	if c.DailyBudgetMin <= 0 {
		c.DailyBudgetMin = 720
	}
	if c.DayStartHour <= 0 {
		c.DayStartHour = 8
	}
	if c.DayEndHour <= 0 {
		c.DayEndHour = 22
	}
	if c.BreakfastMin <= 0 {
		c.BreakfastMin = 30
	}
	if c.LunchMin <= 0 {
		c.LunchMin = 60
	}
	if c.DinnerMin <= 0 {
		c.DinnerMin = 60
	}
	if c.RelaxedMaxMin <= 0 {
		c.RelaxedMaxMin = 360
	}
	if c.ModerateMaxMin <= 0 {
		c.ModerateMaxMin = 540
	}
	return c
}

// Meal anchor hours; breaks are inserted when the running clock crosses one.
const (
	lunchHour  = 12
	dinnerHour = 18
)

// Build packs the solution's destinations into days. Destinations that fit
// no day within the trip window are dropped and reported in the returned
// issues, never silently lost.
func Build(sol model.RouteSolution, window model.TripWindow, cfg Config) ([]model.DaySchedule, []string) {
	cfg = cfg.withDefaults()
	var issues []string

	type stop struct {
		dest      model.Destination
		clusterID string
		travelIn  model.Segment
	}
	var stops []stop
	segIdx := 0
	for _, c := range sol.Clusters {
		for _, d := range c.Destinations {
			var seg model.Segment
			if segIdx < len(sol.Segments) {
				seg = sol.Segments[segIdx]
			}
			segIdx++
			stops = append(stops, stop{dest: d, clusterID: c.ID, travelIn: seg})
		}
	}
	if len(stops) == 0 {
		return nil, issues
	}

	maxDays := window.Days()
	day := newDay(1, dayStart(window.Start, cfg), cfg)
	var days []model.DaySchedule
	cur := day.cursor

	closeDay := func(overnight bool, lastClusterID string, lastLoc model.GeoPoint) {
		day.sched.Pace = paceFor(day.active, cfg)
		day.sched.ActiveMinutes = day.active
		if overnight {
			day.sched.Accommodation = &model.AccommodationSlot{
				NearClusterID: lastClusterID,
				Location:      lastLoc,
				Quality:       cfg.AccommodationQuality,
				CheckIn:       cur,
			}
		}
		days = append(days, day.sched)
	}

	lastClusterID := ""
	lastLoc := model.GeoPoint{}
	for i := 0; i < len(stops); i++ {
		st := stops[i]
		stay := stayMinutes(st.dest)
		travel := st.travelIn.DurationMin
		needed := travel + stay

		for placed := false; !placed; {
			// meals due before this visit count against the same budget, so
			// they are only committed once the visit is known to fit
			mealMin, afterMeals := day.pendingMeals(cur, cfg)
			arrival := afterMeals.Add(time.Duration(travel) * time.Minute)
			departure := arrival.Add(time.Duration(stay) * time.Minute)

			if day.active+mealMin+needed <= cfg.DailyBudgetMin && !departure.After(dayEnd(day.sched.Date, cfg)) {
				cur = day.insertMeals(cur, cfg)
				seg := st.travelIn
				day.sched.Visits = append(day.sched.Visits, model.Visit{
					Destination: st.dest,
					Arrival:     arrival,
					Departure:   departure,
					TravelIn:    &seg,
				})
				day.active += needed
				cur = departure
				lastClusterID, lastLoc = st.clusterID, st.dest.Location
				placed = true
				continue
			}
			if len(day.sched.Visits) == 0 {
				// the stop alone exceeds a full fresh day; it can never fit
				issues = append(issues, fmt.Sprintf("destination %s dropped: exceeds the daily time budget", st.dest.ID))
				placed = true
				continue
			}
			if day.sched.Day >= maxDays {
				for _, rest := range stops[i:] {
					issues = append(issues, fmt.Sprintf("destination %s dropped: does not fit the trip window", rest.dest.ID))
				}
				closeDay(false, lastClusterID, lastLoc)
				return days, issues
			}
			// roll to the next day and re-run the fit check there
			closeDay(true, lastClusterID, lastLoc)
			day = newDay(day.sched.Day+1, dayStart(day.sched.Date.Add(24*time.Hour), cfg), cfg)
			cur = day.cursor
		}
	}
	closeDay(false, lastClusterID, lastLoc)
	return days, issues
}

type dayState struct {
	sched    model.DaySchedule
	cursor   time.Time
	active   int
	hadLunch bool
	hadDin   bool
}

func newDay(n int, start time.Time, cfg Config) *dayState {
	d := &dayState{
		sched:  model.DaySchedule{Day: n, Date: start.Truncate(24 * time.Hour)},
		cursor: start,
	}
	// breakfast anchors the day start
	d.sched.Meals = append(d.sched.Meals, model.MealBreak{Kind: "breakfast", Start: start, DurationMin: cfg.BreakfastMin})
	d.cursor = start.Add(time.Duration(cfg.BreakfastMin) * time.Minute)
	d.active = cfg.BreakfastMin
	return d
}

// pendingMeals reports the meal minutes insertMeals would commit at cur,
// and where the clock lands after them, without mutating the day.
func (d *dayState) pendingMeals(cur time.Time, cfg Config) (int, time.Time) {
	total := 0
	if !d.hadLunch && cur.Hour() >= lunchHour {
		total += cfg.LunchMin
		cur = cur.Add(time.Duration(cfg.LunchMin) * time.Minute)
	}
	if !d.hadDin && cur.Hour() >= dinnerHour {
		total += cfg.DinnerMin
		cur = cur.Add(time.Duration(cfg.DinnerMin) * time.Minute)
	}
	return total, cur
}

// insertMeals adds lunch/dinner once the clock passes their anchors.
func (d *dayState) insertMeals(cur time.Time, cfg Config) time.Time {
	if !d.hadLunch && cur.Hour() >= lunchHour {
		d.sched.Meals = append(d.sched.Meals, model.MealBreak{Kind: "lunch", Start: cur, DurationMin: cfg.LunchMin})
		cur = cur.Add(time.Duration(cfg.LunchMin) * time.Minute)
		d.active += cfg.LunchMin
		d.hadLunch = true
	}
	if !d.hadDin && cur.Hour() >= dinnerHour {
		d.sched.Meals = append(d.sched.Meals, model.MealBreak{Kind: "dinner", Start: cur, DurationMin: cfg.DinnerMin})
		cur = cur.Add(time.Duration(cfg.DinnerMin) * time.Minute)
		d.active += cfg.DinnerMin
		d.hadDin = true
	}
	return cur
}

func stayMinutes(d model.Destination) int {
	if d.PreferredStayMin > 0 {
		return d.PreferredStayMin
	}
	if d.MinStayMin > 0 {
		return d.MinStayMin
	}
	return model.DefaultStayMin
}

func dayStart(t time.Time, cfg Config) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, cfg.DayStartHour, 0, 0, 0, t.Location())
}

func dayEnd(date time.Time, cfg Config) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, cfg.DayEndHour, 0, 0, 0, date.Location())
}

func paceFor(activeMin int, cfg Config) model.Pace {
	switch {
	case activeMin <= cfg.RelaxedMaxMin:
		return model.PaceRelaxed
	case activeMin <= cfg.ModerateMaxMin:
		return model.PaceModerate
	default:
		return model.PacePacked
	}
}

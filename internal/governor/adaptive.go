package governor

import "time"

// LoadProfile summarizes one request's input shape for timeout estimation.
type LoadProfile struct {
	Destinations int
	Members      int
	SpreadKm     float64
	// PreferenceDensity is filled coverage of the member x destination
	// matrix, in [0,1].
	PreferenceDensity float64
}

// AdaptiveTimeout scales the base timeout by the input shape, seeded by the
// historical mean for the stage when enough samples exist, and clamps the
// result to [MinTimeout, MaxTimeout].
func (g *Governor) AdaptiveTimeout(stage string, p LoadProfile) time.Duration {
	base := g.cfg.BaseTimeout
	if est, ok := g.hist.Estimate(stage); ok && g.hist.Count(stage) >= 5 {
		// headroom over the observed mean
		base = est * 2
	}

	factor := 1.0
	factor *= 1 + float64(p.Destinations)/25.0
	factor *= 1 + float64(p.Members)/10.0
	if p.SpreadKm > 50 {
		f := 1 + p.SpreadKm/1000.0
		if f > 2 {
			f = 2
		}
		factor *= f
	}
	if p.PreferenceDensity > 0 && p.PreferenceDensity < 0.5 {
		// sparse preferences make the fairness landscape flatter and the
		// search slower to converge
		factor *= 1.2
	}

	d := time.Duration(float64(base) * factor)
	if d < g.cfg.MinTimeout {
		d = g.cfg.MinTimeout
	}
	if d > g.cfg.MaxTimeout {
		d = g.cfg.MaxTimeout
	}
	return d
}

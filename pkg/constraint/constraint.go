// Package constraint implements the ConstraintEvaluator: it decides, for a
// given job and instant, whether every enabled feasibility constraint
// (weather, twilight, altitude, artificial horizon, Moon) is satisfied, and
// searches forward for the next instant a job could start or the next
// instant its current window would end.
package constraint

import (
	"fmt"
	"time"

	"astroscheduler/pkg/astro"
	"astroscheduler/pkg/job"
	"astroscheduler/pkg/modulestate"
)

// DefaultStepMinutes is the default search step, per spec.md's
// SCHEDULE_RESOLUTION_MINUTES default.
const DefaultStepMinutes = 2

// SearchHorizon bounds how far into the future NextPossibleStartTime and
// NextEndTime will look before giving up.
const SearchHorizon = 3 * 24 * time.Hour

// Evaluator evaluates and searches feasibility windows for jobs against a
// shared ModuleState (clock, geolocation, horizon, cached twilight).
type Evaluator struct {
	state *modulestate.State
}

// New returns an Evaluator bound to state.
func New(state *modulestate.State) *Evaluator {
	return &Evaluator{state: state}
}

// Satisfied evaluates every enabled constraint for j at instant when, in
// increasing cost order (weather, twilight, altitude, artificial horizon,
// Moon), short-circuiting on the first failure.
func (e *Evaluator) Satisfied(j *job.Job, when time.Time) (bool, string) {
	if j.GetEnforceWeather() && e.state.WeatherConfigured() && !e.state.WeatherOK() {
		return false, "weather not acceptable"
	}

	dawn, dusk, haveTwilight := e.twilightFor(when)
	if j.GetEnforceTwilight() {
		if !haveTwilight {
			return false, "twilight window unavailable"
		}
		if ok, _ := j.RunsDuringAstronomicalNightTime(when, dawn, dusk); !ok {
			return false, fmt.Sprintf("outside astronomical night (dusk %s, dawn %s)", dusk.Format(time.RFC3339), dawn.Format(time.RFC3339))
		}
	}

	geo := e.state.GeoLocation()
	az, alt := e.horizontalPosition(j, when, geo)

	if ok, reason := j.SatisfiesAltitudeConstraint(az, alt, e.state.Horizon()); !ok {
		return false, reason
	}

	if ok, reason := j.MoonConstraintsOK(when, geo.Latitude, geo.Longitude); !ok {
		return false, reason
	}

	return true, ""
}

func (e *Evaluator) horizontalPosition(j *job.Job, when time.Time, geo modulestate.GeoLocation) (az, alt float64) {
	target := j.GetTargetCoords()
	lst := astro.LocalSiderealTime(astro.GreenwichSiderealTime(astro.JulianDate(when)), astro.Degrees(geo.Longitude))
	azDeg, altDeg := astro.EquatorialToHorizontal(astro.Hours(target.RAHours), astro.Degrees(target.DecDeg), lst, astro.Degrees(geo.Latitude))

	if e.state.Config() != nil && e.state.Config().Scheduler.ApplyRefraction {
		altDeg = astro.ApparentAltitude(altDeg)
	}

	return float64(azDeg), float64(altDeg)
}

func (e *Evaluator) twilightFor(when time.Time) (dawn, dusk time.Time, ok bool) {
	dawn, dawnOK := e.state.Dawn(when)
	dusk, duskOK := e.state.Dusk(when)
	return dawn, dusk, dawnOK && duskOK
}

// NextPossibleStartTime searches forward from `from`, in stepMinutes
// increments, for the next instant all of j's enabled constraints are
// satisfied, never looking past `until` (if non-zero) or SearchHorizon
// beyond `from`. Results are memoized in j's StartTimeCache keyed on the
// exact (from, until) pair.
func (e *Evaluator) NextPossibleStartTime(j *job.Job, from, until time.Time, stepMinutes int) (time.Time, bool) {
	if entry, present := j.Cache().Get(from, until); present {
		return entry.Result(), entry.Found()
	}

	limit := from.Add(SearchHorizon)
	if !until.IsZero() && until.Before(limit) {
		limit = until
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	step := time.Duration(stepMinutes) * time.Minute

	for t := from; !t.After(limit); t = t.Add(step) {
		if ok, _ := e.Satisfied(j, t); ok {
			j.Cache().Set(from, until, t, "", true)
			return t, true
		}
	}

	j.Cache().Set(from, until, time.Time{}, "no feasible window found", false)
	return time.Time{}, false
}

// NextEndTime searches forward from `from` (assumed to already satisfy all
// constraints) for the first instant at which any constraint breaks,
// never looking past `until` (if non-zero) or SearchHorizon beyond `from`.
// If no break is found within that span, it returns `until` (or the
// horizon limit) and an empty reason, meaning "runs to the edge of the
// search window uninterrupted". Results are not memoized.
func (e *Evaluator) NextEndTime(j *job.Job, from, until time.Time, stepMinutes int) (time.Time, string) {
	limit := from.Add(SearchHorizon)
	if !until.IsZero() && until.Before(limit) {
		limit = until
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	step := time.Duration(stepMinutes) * time.Minute

	for t := from.Add(step); !t.After(limit); t = t.Add(step) {
		if ok, reason := e.Satisfied(j, t); !ok {
			return t, reason
		}
	}

	return limit, ""
}

package constraint

import (
	"testing"
	"time"

	"astroscheduler/pkg/config"
	"astroscheduler/pkg/job"
	"astroscheduler/pkg/modulestate"
)

func newTestState(t *testing.T) *modulestate.State {
	t.Helper()
	cfg := config.DefaultConfig()
	geo := modulestate.GeoLocation{Latitude: 48.2, Longitude: 11.6, Elevation: 500}
	return modulestate.New(cfg, geo, nil, "test")
}

func TestSatisfiedRequiresTwilightWhenEnforced(t *testing.T) {
	state := newTestState(t)
	e := New(state)

	j := job.New("target")
	j.SetEnforceTwilight(true)
	j.SetTargetCoords(job.Coordinates{RAHours: 5, DecDeg: 45})

	noon := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, 7, 29, 23, 30, 0, 0, time.UTC)

	if ok, reason := e.Satisfied(j, noon); ok {
		t.Errorf("expected daytime to fail the twilight constraint, got ok with reason %q", reason)
	}
	if ok, _ := e.Satisfied(j, midnight); !ok {
		// With dec=45 at 48N the target is circumpolar-ish and should be up;
		// astronomical night should hold near local midnight in July.
		t.Error("expected nighttime instant to satisfy the twilight constraint")
	}
}

func TestSatisfiedHonorsWeatherFlag(t *testing.T) {
	state := newTestState(t)
	e := New(state)

	j := job.New("target")
	j.SetEnforceWeather(true)
	j.SetEnforceTwilight(false)

	state.SetWeatherOK(false)
	if ok, reason := e.Satisfied(j, time.Now()); ok {
		t.Errorf("expected bad weather to fail, got ok (reason %q)", reason)
	}

	state.SetWeatherOK(true)
	if ok, _ := e.Satisfied(j, time.Now()); !ok {
		t.Error("expected good weather to pass when no other constraints are enforced")
	}
}

func TestNextPossibleStartTimeIsCached(t *testing.T) {
	state := newTestState(t)
	e := New(state)

	j := job.New("target")
	j.SetEnforceTwilight(false)

	from := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	until := from.Add(48 * time.Hour)

	first, ok := e.NextPossibleStartTime(j, from, until, 2)
	if !ok {
		t.Fatal("expected a feasible start time with no constraints enforced")
	}
	if !first.Equal(from) {
		t.Errorf("expected immediate start at %v, got %v", from, first)
	}

	entry, present := j.Cache().Get(from, until)
	if !present {
		t.Fatal("expected cache entry after NextPossibleStartTime")
	}
	if !entry.Found() || !entry.Result().Equal(first) {
		t.Error("expected cache entry to mirror the returned result")
	}
}

func TestNextEndTimeRunsToLimitWithoutConstraints(t *testing.T) {
	state := newTestState(t)
	e := New(state)

	j := job.New("target")
	j.SetEnforceTwilight(false)

	from := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	until := from.Add(6 * time.Hour)

	end, reason := e.NextEndTime(j, from, until, 2)
	if !end.Equal(until) {
		t.Errorf("expected end time to reach until-bound %v, got %v (reason %q)", until, end, reason)
	}
	if reason != "" {
		t.Errorf("expected no interruption reason, got %q", reason)
	}
}

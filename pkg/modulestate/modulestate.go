// Package modulestate holds the shared, mutable context the scheduler
// components read from rather than each owning their own copy: the clock,
// the observing site, the artificial horizon, the cached dawn/dusk window,
// and the active profile name.
//
// Grounded on the teacher's habit of threading a small interface-typed
// context (sim.Client, POIProvider) through components instead of reaching
// for package-level globals, so tests can substitute their own.
package modulestate

import (
	"sync"
	"time"

	"astroscheduler/pkg/astro"
	"astroscheduler/pkg/config"
	"astroscheduler/pkg/horizon"
)

// Clock abstracts time.Now so scheduling passes can be driven by a fixed
// instant in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// GeoLocation is the observing site: latitude/longitude in degrees (east
// and north positive) and elevation in meters. Elevation is carried for
// completeness but does not currently affect any computation.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
	Elevation float64
}

// twilightWindow is the cached dawn/dusk pair for one calendar day.
type twilightWindow struct {
	date time.Time
	dawn time.Time
	dusk time.Time
	ok   bool
}

// State is the shared scheduling context. Zero value is not usable; build
// one with New.
type State struct {
	clock   Clock
	geo     GeoLocation
	horizon *horizon.Horizon
	profile string
	cfg     *config.Config

	mu         sync.Mutex
	cached     twilightWindow
	weatherOK  bool
	weatherSet bool
}

// New builds a State for the given config, geolocation and artificial
// horizon. h may be nil, in which case the artificial-horizon constraint
// never blocks.
func New(cfg *config.Config, geo GeoLocation, h *horizon.Horizon, profile string) *State {
	return &State{
		clock:     systemClock{},
		geo:       geo,
		horizon:   h,
		profile:   profile,
		cfg:       cfg,
		weatherOK: true,
	}
}

// SetClock overrides the clock, for deterministic tests.
func (s *State) SetClock(c Clock) { s.clock = c }

// Now returns the current instant per the configured clock.
func (s *State) Now() time.Time { return s.clock.Now() }

// GeoLocation returns the observing site.
func (s *State) GeoLocation() GeoLocation { return s.geo }

// Horizon returns the configured artificial horizon, or nil if none was
// supplied.
func (s *State) Horizon() *horizon.Horizon { return s.horizon }

// Profile returns the active observatory profile name.
func (s *State) Profile() string { return s.profile }

// Config returns the module's configuration.
func (s *State) Config() *config.Config { return s.cfg }

// SetWeatherOK records whether the most recent weather observation allows
// observing. Defaults to true until set, since weather monitoring is an
// external collaborator this core only consumes a boolean from.
func (s *State) SetWeatherOK(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weatherOK = ok
	s.weatherSet = true
}

// WeatherOK reports the last recorded weather-acceptable flag.
func (s *State) WeatherOK() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weatherOK
}

// WeatherConfigured reports whether SetWeatherOK has ever been called.
func (s *State) WeatherConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weatherSet
}

// Dawn returns the astronomical dawn (sun altitude crossing -18 degrees,
// rising) that follows the dusk Dusk returns for the same when, i.e. the
// end of the night that begins on when's UTC calendar day, applying the
// configured dawn offset. Recomputed once per UTC calendar day and cached.
func (s *State) Dawn(when time.Time) (time.Time, bool) {
	dawn, _, ok := s.twilight(when)
	return dawn, ok
}

// Dusk returns the astronomical dusk (the first setting -18 degree crossing
// after 12:00 UTC on when's UTC calendar day), applying the configured dusk
// offset. Recomputed once per UTC calendar day and cached.
func (s *State) Dusk(when time.Time) (time.Time, bool) {
	_, dusk, ok := s.twilight(when)
	return dusk, ok
}

func (s *State) twilight(when time.Time) (dawn, dusk time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := when.UTC().Truncate(24 * time.Hour)
	if s.cached.ok && s.cached.date.Equal(day) {
		return s.cached.dawn, s.cached.dusk, true
	}

	lat := astro.Degrees(s.geo.Latitude)
	lon := astro.Degrees(s.geo.Longitude)

	noon := day.Add(12 * time.Hour)
	duskT, duskOK := astro.FindSunCrossing(noon, 24*time.Hour, lat, lon, -18, false)
	dawnT, dawnOK := astro.FindSunCrossing(duskT, 24*time.Hour, lat, lon, -18, true)
	if !duskOK || !dawnOK {
		s.cached = twilightWindow{date: day, ok: false}
		return time.Time{}, time.Time{}, false
	}

	if s.cfg != nil {
		duskT = duskT.Add(time.Duration(s.cfg.Scheduler.DuskOffsetMinutes) * time.Minute)
		dawnT = dawnT.Add(time.Duration(s.cfg.Scheduler.DawnOffsetMinutes) * time.Minute)
	}

	s.cached = twilightWindow{date: day, dawn: dawnT, dusk: duskT, ok: true}
	return dawnT, duskT, true
}

package job

import (
	"fmt"
	"time"

	"astroscheduler/pkg/astro"
	"astroscheduler/pkg/horizon"
)

// SatisfiesAltitudeConstraint checks the job's minimum-altitude and
// artificial-horizon constraints against a computed azimuth/altitude. h may
// be nil, in which case the artificial horizon never blocks.
func (j *Job) SatisfiesAltitudeConstraint(azimuthDeg, altitudeDeg float64, h *horizon.Horizon) (bool, string) {
	if j.HasAltitudeConstraint() && altitudeDeg < j.GetMinAltitude() {
		return false, fmt.Sprintf("altitude %.1f below minimum %.1f", altitudeDeg, j.GetMinAltitude())
	}

	if j.GetEnforceArtificialHorizon() && h != nil {
		minAlt := h.MinAltitudeAt(azimuthDeg)
		if altitudeDeg < minAlt {
			return false, fmt.Sprintf("altitude %.1f below artificial horizon %.1f at az %.1f", altitudeDeg, minAlt, azimuthDeg)
		}
	}

	return true, ""
}

// MoonConstraintsOK checks the job's minimum Moon separation and maximum
// Moon altitude constraints at the given instant and observing site.
func (j *Job) MoonConstraintsOK(when time.Time, latDeg, lonDeg float64) (bool, string) {
	minSep := j.GetMinMoonSeparation()
	maxMoonAlt := j.GetMaxMoonAltitude()

	if minSep < 0 && maxMoonAlt >= 90 {
		return true, ""
	}

	moonRA, moonDec := astro.MoonPosition(when)

	if minSep >= 0 {
		target := j.GetTargetCoords()
		sep := astro.AngularSeparation(astro.Hours(moonRA), astro.Degrees(moonDec), astro.Hours(target.RAHours), astro.Degrees(target.DecDeg))
		if float64(sep) < minSep {
			return false, fmt.Sprintf("Moon separation %.1f below minimum %.1f", float64(sep), minSep)
		}
	}

	if maxMoonAlt < 90 {
		lst := astro.LocalSiderealTime(astro.GreenwichSiderealTime(astro.JulianDate(when)), astro.Degrees(lonDeg))
		_, moonAlt := astro.EquatorialToHorizontal(astro.Hours(moonRA), astro.Degrees(moonDec), lst, astro.Degrees(latDeg))
		if float64(moonAlt) > maxMoonAlt {
			return false, fmt.Sprintf("Moon altitude %.1f above maximum %.1f", float64(moonAlt), maxMoonAlt)
		}
	}

	return true, ""
}

// RunsDuringAstronomicalNightTime reports whether when falls inside the
// dusk-to-dawn night window. The returned instant is dusk when `when` is
// before dusk (the window has not opened yet) and dawn otherwise (inside
// the window, or already past it, or when twilight is not enforced).
// dawn/dusk are the caller's (typically ConstraintEvaluator's,
// via ModuleState) precomputed astronomical twilight instants for the
// relevant night.
func (j *Job) RunsDuringAstronomicalNightTime(when, dawn, dusk time.Time) (bool, time.Time) {
	if !j.GetEnforceTwilight() {
		return true, dawn
	}

	if when.Before(dusk) {
		return false, dusk
	}
	if !when.Before(dawn) {
		return false, dawn
	}
	return true, dawn
}

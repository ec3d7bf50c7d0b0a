package astro

import (
	"math"
	"time"
)

// SunPosition returns a low-precision geocentric equatorial position of the
// Sun for t (Meeus's low-precision solar series, chapter 25), good to about
// one arcminute. Used only to locate dawn/dusk, not for pointing.
func SunPosition(t time.Time) (ra Hours, dec Degrees) {
	d := JulianDate(t) - 2451545.0

	meanLon := normDeg(280.460 + 0.9856474*d)
	meanAnom := normDeg(357.528+0.9856003*d) * degToRad

	eclLon := meanLon + 1.915*math.Sin(meanAnom) + 0.020*math.Sin(2*meanAnom)
	eclLonR := eclLon * degToRad

	eps := (23.439 - 0.0000004*d) * degToRad

	sinDec := math.Sin(eps) * math.Sin(eclLonR)
	decR := math.Asin(clamp(sinDec, -1, 1))

	y := math.Cos(eps) * math.Sin(eclLonR)
	x := math.Cos(eclLonR)
	raR := math.Atan2(y, x)

	return NormalizeHours(Hours(raR * radToDeg / hoursToDegrees)), Degrees(decR * radToDeg)
}

// SunAltitude returns the Sun's altitude above the horizon at t for an
// observer at latDeg/lonDeg (east positive).
func SunAltitude(t time.Time, latDeg, lonDeg Degrees) Degrees {
	ra, dec := SunPosition(t)
	lst := LocalSiderealTime(GreenwichSiderealTime(JulianDate(t)), lonDeg)
	_, alt := EquatorialToHorizontal(ra, dec, lst, latDeg)
	return alt
}

// FindSunCrossing searches forward from start for the instant the Sun's
// altitude crosses targetAlt in the given direction (rising or setting). It uses a coarse linear scan followed by bisection, and gives up
// after searching span; ok is false if no crossing was found in that span.
func FindSunCrossing(start time.Time, span time.Duration, latDeg, lonDeg, targetAlt Degrees, rising bool) (crossing time.Time, ok bool) {
	const step = 5 * time.Minute

	prevT := start
	prevAlt := SunAltitude(prevT, latDeg, lonDeg)

	for elapsed := time.Duration(0); elapsed < span; elapsed += step {
		nextT := prevT.Add(step)
		nextAlt := SunAltitude(nextT, latDeg, lonDeg)

		crossed := (rising && prevAlt < targetAlt && nextAlt >= targetAlt) ||
			(!rising && prevAlt > targetAlt && nextAlt <= targetAlt)

		if crossed {
			return bisectCrossing(prevT, nextT, latDeg, lonDeg, targetAlt), true
		}

		prevT, prevAlt = nextT, nextAlt
	}

	return time.Time{}, false
}

func bisectCrossing(lo, hi time.Time, latDeg, lonDeg, targetAlt Degrees) time.Time {
	const iterations = 24
	for i := 0; i < iterations; i++ {
		mid := lo.Add(hi.Sub(lo) / 2)
		midAlt := SunAltitude(mid, latDeg, lonDeg)
		loAlt := SunAltitude(lo, latDeg, lonDeg)

		if (midAlt < targetAlt) == (loAlt < targetAlt) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2)
}

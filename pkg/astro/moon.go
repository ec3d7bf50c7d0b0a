package astro

import (
	"math"
	"time"
)

// MoonPosition returns a low-precision geocentric equatorial position of the
// Moon for t, truncated from Meeus's low-precision lunar series (chapter 47
// without the perturbation terms beyond the dominant few). Good to roughly
// one degree, which is adequate for the separation and altitude gates the
// scheduler applies; it is not a pointing ephemeris.
func MoonPosition(t time.Time) (ra Hours, dec Degrees) {
	d := JulianDate(t) - 2451545.0

	// Fundamental arguments (degrees), Meeus ch. 47 truncated to linear terms.
	lPrime := normDeg(218.316 + 13.176396*d)  // mean longitude
	m := normDeg(134.963 + 13.064993*d)       // mean anomaly
	f := normDeg(93.272 + 13.229350*d)        // argument of latitude

	mR := m * degToRad
	fR := f * degToRad

	// Dominant periodic terms for longitude and latitude, in degrees.
	lon := lPrime + 6.289*math.Sin(mR)
	lat := 5.128 * math.Sin(fR)

	// Mean obliquity of the ecliptic.
	eps := 23.439 * degToRad

	lonR := lon * degToRad
	latR := lat * degToRad

	sinDec := math.Sin(latR)*math.Cos(eps) + math.Cos(latR)*math.Sin(eps)*math.Sin(lonR)
	decR := math.Asin(clamp(sinDec, -1, 1))

	y := math.Sin(lonR)*math.Cos(eps) - math.Tan(latR)*math.Sin(eps)
	x := math.Cos(lonR)
	raR := math.Atan2(y, x)

	return NormalizeHours(Hours(raR * radToDeg / hoursToDegrees)), Degrees(decR * radToDeg)
}

func normDeg(d float64) float64 {
	v := math.Mod(d, 360)
	if v < 0 {
		v += 360
	}
	return v
}

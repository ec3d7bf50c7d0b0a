// Package astro provides the small set of spherical-astronomy primitives the
// scheduler needs: Julian date and sidereal time conversions, equatorial to
// horizontal coordinate transforms, atmospheric refraction, a low-precision
// Moon and Sun ephemeris, and angular separation.
//
// None of the retrieved example repos carry a real ephemeris library, so
// this package stands in for the "provided library" the scheduler assumes.
// Accuracy is bounded by the truncated Moon/Sun series (Meeus, low-precision
// variants) and is adequate for altitude/separation gating, not pointing.
package astro

import (
	"math"
	"time"
)

// Hours is an angle expressed in hours (0-24), used for right ascension and
// sidereal time.
type Hours float64

// Degrees is an angle expressed in degrees, used for declination, azimuth,
// altitude and latitude/longitude.
type Degrees float64

const (
	hoursToDegrees = 15.0
	degToRad       = math.Pi / 180
	radToDeg       = 180 / math.Pi
)

// NormalizeHours folds an hour angle into [0, 24).
func NormalizeHours(h Hours) Hours {
	v := math.Mod(float64(h), 24)
	if v < 0 {
		v += 24
	}
	return Hours(v)
}

// NormalizeDegrees folds an angle into [-180, 180).
func NormalizeDegrees(d Degrees) Degrees {
	v := math.Mod(float64(d)+180, 360)
	if v < 0 {
		v += 360
	}
	return Degrees(v - 180)
}

// NormalizeAzimuth folds an azimuth into [0, 360).
func NormalizeAzimuth(d Degrees) Degrees {
	v := math.Mod(float64(d), 360)
	if v < 0 {
		v += 360
	}
	return Degrees(v)
}

// JulianDate returns the Julian date for t, evaluated in UTC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y, m, d := t.Date()
	year, month := float64(y), float64(m)
	day := float64(d) + (float64(t.Hour())+float64(t.Minute())/60+float64(t.Second())/3600)/24

	if month <= 2 {
		year--
		month += 12
	}

	a := math.Floor(year / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(year+4716)) + math.Floor(30.6001*(month+1)) + day + b - 1524.5
}

// GreenwichSiderealTime returns the mean sidereal time at Greenwich, in
// hours, for the given Julian date.
func GreenwichSiderealTime(jd float64) Hours {
	t := (jd - 2451545.0) / 36525.0

	gst := 280.46061837 + 360.98564736629*(jd-2451545.0) +
		0.000387933*t*t - t*t*t/38710000.0

	return NormalizeHours(Hours(gst / hoursToDegrees))
}

// LocalSiderealTime converts Greenwich sidereal time to local sidereal time
// at the given longitude (east positive, degrees).
func LocalSiderealTime(gst Hours, lon Degrees) Hours {
	return NormalizeHours(gst + Hours(float64(lon)/hoursToDegrees))
}

// EquatorialToHorizontal converts right ascension/declination, at a given
// local sidereal time and observer latitude, to azimuth/altitude. Azimuth is
// measured from north, through east.
func EquatorialToHorizontal(ra Hours, dec Degrees, lst Hours, lat Degrees) (az, alt Degrees) {
	haDeg := (float64(lst)-float64(ra))*hoursToDegrees
	ha := haDeg * degToRad
	decR := float64(dec) * degToRad
	latR := float64(lat) * degToRad

	sinAlt := math.Sin(decR)*math.Sin(latR) + math.Cos(decR)*math.Cos(latR)*math.Cos(ha)
	altR := math.Asin(clamp(sinAlt, -1, 1))

	cosAz := (math.Sin(decR) - math.Sin(altR)*math.Sin(latR)) / (math.Cos(altR) * math.Cos(latR))
	azR := math.Acos(clamp(cosAz, -1, 1))

	azDeg := azR * radToDeg
	if math.Sin(ha) > 0 {
		azDeg = 360 - azDeg
	}

	return NormalizeAzimuth(Degrees(azDeg)), Degrees(altR * radToDeg)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApparentAltitude applies Bennett's refraction formula to a true (airless)
// altitude, returning the apparent altitude as seen from the ground. Below
// -1 degree the formula is unreliable and the input is returned unchanged.
func ApparentAltitude(trueAlt Degrees) Degrees {
	if trueAlt < -1 {
		return trueAlt
	}
	h := float64(trueAlt)
	r := 1.0 / math.Tan((h+7.31/(h+4.4))*degToRad)
	// Bennett's formula yields refraction in arcminutes.
	return trueAlt + Degrees(r/60.0)
}

// AngularSeparation returns the great-circle angle between two equatorial
// positions.
func AngularSeparation(ra1 Hours, dec1 Degrees, ra2 Hours, dec2 Degrees) Degrees {
	ra1R := float64(ra1) * hoursToDegrees * degToRad
	ra2R := float64(ra2) * hoursToDegrees * degToRad
	dec1R := float64(dec1) * degToRad
	dec2R := float64(dec2) * degToRad

	cosSep := math.Sin(dec1R)*math.Sin(dec2R) + math.Cos(dec1R)*math.Cos(dec2R)*math.Cos(ra1R-ra2R)
	return Degrees(math.Acos(clamp(cosSep, -1, 1)) * radToDeg)
}

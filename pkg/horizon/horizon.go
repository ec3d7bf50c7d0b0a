// Package horizon models the artificial-horizon constraint: a piecewise
// azimuth-to-minimum-altitude function that blocks part of the sky (a roof
// line, a tree, a neighboring building) independent of the geometric
// horizon.
//
// The blocked region below the line is additionally represented as an orb
// polygon so it can be asked point-in-polygon style, the way the teacher's
// pkg/geo/helpers.go answers geofence containment queries with
// planar.PolygonContains.
package horizon

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point is one vertex of the artificial horizon line: the minimum
// observable altitude at a given azimuth.
type Point struct {
	AzimuthDeg     float64
	MinAltitudeDeg float64
}

// Horizon is an ordered-by-azimuth artificial horizon line, wrapping at
// 360 degrees.
type Horizon struct {
	points  []Point
	blocked orb.Polygon
}

// New builds a Horizon from an unordered set of points, sorting them by
// azimuth and constructing the underlying blocked-region polygon. At least
// two points are required; with fewer, MinAltitudeAt always returns -90
// (unconstrained).
func New(points []Point) *Horizon {
	h := &Horizon{points: append([]Point(nil), points...)}
	sort.Slice(h.points, func(i, j int) bool { return h.points[i].AzimuthDeg < h.points[j].AzimuthDeg })

	if len(h.points) < 2 {
		return h
	}

	ring := make(orb.Ring, 0, len(h.points)*2+1)
	for _, p := range h.points {
		ring = append(ring, orb.Point{p.AzimuthDeg, p.MinAltitudeDeg})
	}
	for i := len(h.points) - 1; i >= 0; i-- {
		ring = append(ring, orb.Point{h.points[i].AzimuthDeg, -90})
	}
	ring = append(ring, ring[0])
	h.blocked = orb.Polygon{ring}

	return h
}

// MinAltitudeAt returns the minimum observable altitude at azimuthDeg,
// linearly interpolating between the bracketing vertices and wrapping
// across the 0/360 seam. Returns -90 (unconstrained) when fewer than two
// points are defined.
func (h *Horizon) MinAltitudeAt(azimuthDeg float64) float64 {
	n := len(h.points)
	if n < 2 {
		return -90
	}

	az := normalizeAz(azimuthDeg)

	for i := 0; i < n; i++ {
		a := h.points[i]
		b := h.points[(i+1)%n]

		aAz := a.AzimuthDeg
		bAz := b.AzimuthDeg
		if bAz <= aAz {
			bAz += 360
		}
		span := az
		if span < aAz {
			span += 360
		}
		if span < aAz || span > bAz {
			continue
		}

		if bAz == aAz {
			return a.MinAltitudeDeg
		}
		frac := (span - aAz) / (bAz - aAz)
		return a.MinAltitudeDeg + frac*(b.MinAltitudeDeg-a.MinAltitudeDeg)
	}

	return h.points[n-1].MinAltitudeDeg
}

// Blocks reports whether the point at (azimuthDeg, altitudeDeg) lies below
// the artificial horizon line, using the polygon-containment form of the
// same data. The polygon spans only the azimuths from the lowest to the
// highest vertex; the segment that wraps across 0/360 (which MinAltitudeAt
// does interpolate) is not part of it, so points there are never reported
// as blocked.
func (h *Horizon) Blocks(azimuthDeg, altitudeDeg float64) bool {
	if len(h.points) < 2 {
		return false
	}
	return planar.PolygonContains(h.blocked, orb.Point{normalizeAz(azimuthDeg), altitudeDeg})
}

func normalizeAz(az float64) float64 {
	v := math.Mod(az, 360)
	if v < 0 {
		v += 360
	}
	return v
}

package horizon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinAltitudeAtInterpolates(t *testing.T) {
	h := New([]Point{
		{AzimuthDeg: 0, MinAltitudeDeg: 10},
		{AzimuthDeg: 90, MinAltitudeDeg: 20},
		{AzimuthDeg: 180, MinAltitudeDeg: 10},
		{AzimuthDeg: 270, MinAltitudeDeg: 0},
	})

	require.InDelta(t, 10, h.MinAltitudeAt(0), 0.01)
	require.InDelta(t, 15, h.MinAltitudeAt(45), 0.01)
	require.InDelta(t, 20, h.MinAltitudeAt(90), 0.01)
}

func TestMinAltitudeAtWrapsSeam(t *testing.T) {
	h := New([]Point{
		{AzimuthDeg: 270, MinAltitudeDeg: 0},
		{AzimuthDeg: 0, MinAltitudeDeg: 10},
	})

	// Halfway between 270 and 360 (i.e. 315) should interpolate.
	require.InDelta(t, 5, h.MinAltitudeAt(315), 0.01)
}

func TestMinAltitudeAtUnconstrainedWithoutEnoughPoints(t *testing.T) {
	h := New(nil)
	require.Equal(t, -90.0, h.MinAltitudeAt(45))

	h2 := New([]Point{{AzimuthDeg: 10, MinAltitudeDeg: 5}})
	require.Equal(t, -90.0, h2.MinAltitudeAt(45))
}

func TestBlocksBelowLine(t *testing.T) {
	h := New([]Point{
		{AzimuthDeg: 0, MinAltitudeDeg: 20},
		{AzimuthDeg: 90, MinAltitudeDeg: 20},
		{AzimuthDeg: 180, MinAltitudeDeg: 20},
		{AzimuthDeg: 270, MinAltitudeDeg: 20},
	})

	require.True(t, h.Blocks(45, 10))
	require.False(t, h.Blocks(45, 30))
}

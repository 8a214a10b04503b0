package geometry

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCornerPoints_ZeroHeading(t *testing.T) {
	got := CornerPoints(0.5, 0.5, 1, 1, 0)
	want := [4]Point{
		{X: 0, Y: 1}, // front left
		{X: 0, Y: 0}, // rear left
		{X: 1, Y: 0}, // rear right
		{X: 1, Y: 1}, // front right
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("CornerPoints mismatch (-want +got):\n%s", diff)
	}
}

func TestCornerPoints_DiagonalAtIndices1And3(t *testing.T) {
	for _, heading := range []float64{0, 0.3, -0.7, math.Pi / 4, 2.5} {
		c := CornerPoints(3, -2, 1.8, 4.5, heading)
		// opposite corners share the centre as midpoint
		midX := (c[1].X + c[3].X) / 2
		midY := (c[1].Y + c[3].Y) / 2
		assert.InDelta(t, 3.0, midX, 1e-9, "heading %f", heading)
		assert.InDelta(t, -2.0, midY, 1e-9, "heading %f", heading)

		// the diagonal length is sqrt(w²+l²)
		diag := math.Hypot(c[3].X-c[1].X, c[3].Y-c[1].Y)
		assert.InDelta(t, math.Hypot(1.8, 4.5), diag, 1e-9)
	}
}

func TestBoundingBox3D_Corners(t *testing.T) {
	box := BoundingBox3D{CenterX: 1, CenterY: 2, Width: 2, Length: 4}
	assert.Equal(t, CornerPoints(1, 2, 2, 4, 0), box.Corners(nil))

	called := false
	custom := func(x, y, w, l, h float64) [4]Point {
		called = true
		return [4]Point{}
	}
	box.Corners(custom)
	assert.True(t, called)
}

func TestRectPolicies(t *testing.T) {
	c := CornerPoints(0, 0, 2, 4, 0)
	assert.Equal(t, Rect{XMin: -1, YMin: -2, XMax: 1, YMax: 2}, DiagonalRect(c))
	assert.Equal(t, Rect{XMin: -1, YMin: -2, XMax: 1, YMax: 2}, EnvelopeRect(c))

	// At a quarter turn the envelope stays well-formed.
	rotated := CornerPoints(0, 0, 2, 4, math.Pi/2)
	env := RectEnvelope.Rect(rotated)
	assert.InDelta(t, -2, env.XMin, 1e-9)
	assert.InDelta(t, 2, env.XMax, 1e-9)
	assert.InDelta(t, -1, env.YMin, 1e-9)
	assert.InDelta(t, 1, env.YMax, 1e-9)
	assert.Greater(t, RectDiagonal.Rect(rotated).XMin, RectDiagonal.Rect(rotated).XMax)
}

func TestParseRectPolicy(t *testing.T) {
	for in, want := range map[string]RectPolicy{"": RectDiagonal, "diagonal": RectDiagonal, "envelope": RectEnvelope} {
		got, err := ParseRectPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := ParseRectPolicy("rotated")
	assert.Error(t, err)
}

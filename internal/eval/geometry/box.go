package geometry

import (
	"fmt"
	"math"
)

// BoundingBox3D is a 7-DOF box as produced by labelling tools and detectors.
//
//   - CenterX/Y/Z: centre position (metres, sensor frame)
//   - Width: extent perpendicular to heading (metres)
//   - Length: extent along heading (metres)
//   - Height: extent along Z (metres)
//   - Heading: yaw around the Z axis (radians)
type BoundingBox3D struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	CenterZ float64 `json:"center_z"`
	Width   float64 `json:"width"`
	Length  float64 `json:"length"`
	Height  float64 `json:"height"`
	Heading float64 `json:"heading"`
}

// Point is a position in the X-Y plane.
type Point struct {
	X float64
	Y float64
}

// CornerFunc returns the four footprint corners of a box. Implementations
// must return diagonally opposite corners at indices 1 and 3.
type CornerFunc func(centerX, centerY, width, length, heading float64) [4]Point

// CornerPoints is the default CornerFunc. Corners are ordered front-left,
// rear-left, rear-right, front-right; at heading 0 index 1 is the
// (min x, min y) corner and index 3 the (max x, max y) corner.
func CornerPoints(centerX, centerY, width, length, heading float64) [4]Point {
	cosH := math.Cos(heading)
	sinH := math.Sin(heading)
	hw := width / 2
	hl := length / 2

	return [4]Point{
		{X: centerX - hw*cosH - hl*sinH, Y: centerY - hw*sinH + hl*cosH}, // front left
		{X: centerX - hw*cosH + hl*sinH, Y: centerY - hw*sinH - hl*cosH}, // rear left
		{X: centerX + hw*cosH + hl*sinH, Y: centerY + hw*sinH - hl*cosH}, // rear right
		{X: centerX + hw*cosH - hl*sinH, Y: centerY + hw*sinH + hl*cosH}, // front right
	}
}

// Corners returns the footprint corners of b using fn, or CornerPoints when
// fn is nil.
func (b BoundingBox3D) Corners(fn CornerFunc) [4]Point {
	if fn == nil {
		fn = CornerPoints
	}
	return fn(b.CenterX, b.CenterY, b.Width, b.Length, b.Heading)
}

// RectPolicy selects how an axis-aligned rectangle is derived from corners.
type RectPolicy int

const (
	// RectDiagonal spans corners 1 and 3 as given. For headings near ±π/2
	// the spanned rectangle is inverted and never overlaps anything.
	RectDiagonal RectPolicy = iota
	// RectEnvelope takes the min/max over all four corners.
	RectEnvelope
)

func (p RectPolicy) String() string {
	switch p {
	case RectDiagonal:
		return "diagonal"
	case RectEnvelope:
		return "envelope"
	default:
		return fmt.Sprintf("RectPolicy(%d)", int(p))
	}
}

// ParseRectPolicy maps a config string onto a RectPolicy. The empty string
// selects RectDiagonal.
func ParseRectPolicy(s string) (RectPolicy, error) {
	switch s {
	case "", "diagonal":
		return RectDiagonal, nil
	case "envelope":
		return RectEnvelope, nil
	default:
		return RectDiagonal, fmt.Errorf("unknown rect policy %q (want diagonal or envelope)", s)
	}
}

// Rect converts corners into a rectangle according to the policy.
func (p RectPolicy) Rect(c [4]Point) Rect {
	if p == RectEnvelope {
		return EnvelopeRect(c)
	}
	return DiagonalRect(c)
}

// DiagonalRect spans corners 1 and 3 without reordering them.
func DiagonalRect(c [4]Point) Rect {
	return Rect{XMin: c[1].X, YMin: c[1].Y, XMax: c[3].X, YMax: c[3].Y}
}

// EnvelopeRect returns the axis-aligned envelope of the corners.
func EnvelopeRect(c [4]Point) Rect {
	r := Rect{XMin: c[0].X, YMin: c[0].Y, XMax: c[0].X, YMax: c[0].Y}
	for _, p := range c[1:] {
		r.XMin = math.Min(r.XMin, p.X)
		r.YMin = math.Min(r.YMin, p.Y)
		r.XMax = math.Max(r.XMax, p.X)
		r.YMax = math.Max(r.YMax, p.Y)
	}
	return r
}

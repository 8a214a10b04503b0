package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateBox is returned when two rectangles have a zero union area.
var ErrDegenerateBox = errors.New("degenerate box")

// Rect is an axis-aligned rectangle given by its (min, max) corners.
type Rect struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// Area returns (XMax-XMin)*(YMax-YMin). It is negative for inverted rects.
func (r Rect) Area() float64 {
	return (r.XMax - r.XMin) * (r.YMax - r.YMin)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", r.XMin, r.YMin, r.XMax, r.YMax)
}

// ComputeIoU calculates the intersection-over-union of two rectangles.
// Disjoint rectangles yield 0 and identical ones yield 1. A zero union area
// returns ErrDegenerateBox instead of dividing by zero.
func ComputeIoU(a, b Rect) (float64, error) {
	xMin := math.Max(a.XMin, b.XMin)
	yMin := math.Max(a.YMin, b.YMin)
	xMax := math.Min(a.XMax, b.XMax)
	yMax := math.Min(a.YMax, b.YMax)

	intersection := math.Max(0, xMax-xMin) * math.Max(0, yMax-yMin)
	union := a.Area() + b.Area() - intersection

	if union == 0 {
		return 0, fmt.Errorf("%w: zero union area for %s and %s", ErrDegenerateBox, a, b)
	}
	if intersection == 0 {
		return 0, nil
	}
	return intersection / union, nil
}

// Package geometry owns the planar box geometry used by detection
// evaluation: 7-DOF boxes, their footprint corners, the rectangles derived
// from them, and rectangle intersection-over-union.
//
// No matching or dataset logic is allowed in this package.
package geometry

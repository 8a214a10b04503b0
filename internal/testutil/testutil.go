// Package testutil provides shared fixtures for evaluation tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/detection.report/internal/db"
	"github.com/banshee-data/detection.report/internal/eval/geometry"
	"github.com/banshee-data/detection.report/internal/eval/matching"
)

// Box returns a ground-level box centred at (x, y) with unit height.
func Box(x, y, width, length, heading float64) geometry.BoundingBox3D {
	return geometry.BoundingBox3D{
		CenterX: x,
		CenterY: y,
		Width:   width,
		Length:  length,
		Height:  1,
		Heading: heading,
	}
}

// DetectionFor encodes b as a class-1 detection record with the given score.
func DetectionFor(b geometry.BoundingBox3D, score float64) matching.Detection {
	d := make(matching.Detection, matching.DetScore+1)
	d[matching.DetClass] = 1
	d[matching.DetX] = b.CenterX
	d[matching.DetY] = b.CenterY
	d[matching.DetZ] = b.CenterZ
	d[matching.DetHeight] = b.Height
	d[matching.DetWidth] = b.Width
	d[matching.DetLength] = b.Length
	d[matching.DetHeading] = b.Heading
	d[matching.DetScore] = score
	return d
}

// Frame builds a frame whose labels are all valid.
func Frame(id string, dets []matching.Detection, labels ...geometry.BoundingBox3D) matching.Frame {
	f := matching.Frame{ID: id, Detections: dets}
	for _, b := range labels {
		f.Labels = append(f.Labels, matching.Label{Box: b})
		f.Valid = append(f.Valid, true)
	}
	return f
}

// OpenDB opens a migrated database under t.TempDir and closes it when the
// test ends.
func OpenDB(t testing.TB) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "eval.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

package matching

import (
	"errors"
	"fmt"

	"github.com/banshee-data/detection.report/internal/eval/geometry"
)

// ErrValidation is returned for malformed inputs or options.
var ErrValidation = errors.New("validation error")

// Field offsets of a Detection record. The layout is fixed by the upstream
// detector and must not be reordered.
const (
	DetClass   = 0
	DetX       = 1
	DetY       = 2
	DetZ       = 3
	DetHeight  = 4
	DetWidth   = 5
	DetLength  = 6
	DetHeading = 7
	DetScore   = 8

	// MinDetectionFields is the shortest record the matcher accepts.
	MinDetectionFields = 8
)

// Detection is a fixed-layout detector output record. The class and score
// fields are carried along but not interpreted.
type Detection []float64

// Validate checks that the record carries every geometric field.
func (d Detection) Validate() error {
	if len(d) < MinDetectionFields {
		return fmt.Errorf("%w: detection has %d fields, need at least %d", ErrValidation, len(d), MinDetectionFields)
	}
	return nil
}

// Box returns the detection as a BoundingBox3D.
func (d Detection) Box() geometry.BoundingBox3D {
	return geometry.BoundingBox3D{
		CenterX: d[DetX],
		CenterY: d[DetY],
		CenterZ: d[DetZ],
		Width:   d[DetWidth],
		Length:  d[DetLength],
		Height:  d[DetHeight],
		Heading: d[DetHeading],
	}
}

// Score returns the confidence score, or 0 when the record has none.
func (d Detection) Score() float64 {
	if len(d) > DetScore {
		return d[DetScore]
	}
	return 0
}

// Label is a ground-truth box. Validity is passed separately, in a slice
// parallel to the labels.
type Label struct {
	ID  string
	Box geometry.BoundingBox3D
}

// Frame bundles the inputs for one sensor frame.
type Frame struct {
	ID         string
	Detections []Detection
	Labels     []Label
	Valid      []bool
}

// Match is a selected (label, detection) pairing.
type Match struct {
	LabelIndex     int
	DetectionIndex int
	IoU            float64
	// DX, DY, DZ are label centre minus detection centre.
	DX float64
	DY float64
	DZ float64
}

// Deviation returns the centre displacement of the match.
func (m Match) Deviation() Deviation {
	return Deviation{DX: m.DX, DY: m.DY, DZ: m.DZ}
}

// Deviation is a signed centre displacement in input units.
type Deviation struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DZ float64 `json:"dz"`
}

// Counts holds the per-frame (or summed) detection tallies. Under AssignAll
// FalseNegatives and FalsePositives can be negative.
type Counts struct {
	TotalDetections int `json:"total_detections"`
	TruePositives   int `json:"true_positives"`
	FalseNegatives  int `json:"false_negatives"`
	FalsePositives  int `json:"false_positives"`
}

// Add returns the field-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		TotalDetections: c.TotalDetections + o.TotalDetections,
		TruePositives:   c.TruePositives + o.TruePositives,
		FalseNegatives:  c.FalseNegatives + o.FalseNegatives,
		FalsePositives:  c.FalsePositives + o.FalsePositives,
	}
}

// FramePerformance is the immutable result of evaluating one frame.
type FramePerformance struct {
	FrameID    string      `json:"frame_id,omitempty"`
	IoUs       []float64   `json:"ious"`
	CenterDevs []Deviation `json:"center_devs"`
	Counts     Counts      `json:"counts"`
}

// Package dataset reads evaluation frames from JSON Lines files.
//
// Each line holds one frame:
//
//	{"frame_id": "seq-3/000120",
//	 "detections": [[1, x, y, z, h, w, l, yaw, score], ...],
//	 "labels": [{"id": "a1", "center_x": 1.2, "center_y": 3.4, "center_z": 0.9,
//	             "width": 1.9, "length": 4.6, "height": 1.6, "heading": 0.02,
//	             "valid": true}, ...]}
//
// Blank lines are skipped.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/detection.report/internal/eval/geometry"
	"github.com/banshee-data/detection.report/internal/eval/matching"
)

// maxLineBytes bounds a single frame record.
const maxLineBytes = 64 * 1024 * 1024

// FrameRecord is the on-disk form of a frame.
type FrameRecord struct {
	FrameID    string        `json:"frame_id"`
	Detections [][]float64   `json:"detections"`
	Labels     []LabelRecord `json:"labels"`
}

// LabelRecord is the on-disk form of a ground-truth label.
type LabelRecord struct {
	ID string `json:"id,omitempty"`
	geometry.BoundingBox3D
	Valid bool `json:"valid"`
}

// Frame converts the record into matcher input, splitting validity into
// its parallel slice.
func (r FrameRecord) Frame() matching.Frame {
	f := matching.Frame{
		ID:         r.FrameID,
		Detections: make([]matching.Detection, len(r.Detections)),
		Labels:     make([]matching.Label, len(r.Labels)),
		Valid:      make([]bool, len(r.Labels)),
	}
	for i, d := range r.Detections {
		f.Detections[i] = matching.Detection(d)
	}
	for i, l := range r.Labels {
		f.Labels[i] = matching.Label{ID: l.ID, Box: l.BoundingBox3D}
		f.Valid[i] = l.Valid
	}
	return f
}

// ReadFrames decodes every frame from r. A frame without an ID is named
// after its line number.
func ReadFrames(r io.Reader) ([]matching.Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var frames []matching.Frame
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec FrameRecord
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.FrameID == "" {
			rec.FrameID = fmt.Sprintf("line-%d", lineNo)
		}

		f := rec.Frame()
		for j, d := range f.Detections {
			if err := d.Validate(); err != nil {
				return nil, fmt.Errorf("line %d, detection %d: %w", lineNo, j, err)
			}
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return frames, nil
}

// LoadFrames reads a JSON Lines frames file from disk.
func LoadFrames(path string) ([]matching.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frames file: %w", err)
	}
	defer f.Close()

	frames, err := ReadFrames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// WriteFrames encodes frames as JSON Lines. It is the inverse of ReadFrames.
func WriteFrames(w io.Writer, frames []matching.Frame) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		rec := FrameRecord{
			FrameID:    f.ID,
			Detections: make([][]float64, len(f.Detections)),
			Labels:     make([]LabelRecord, len(f.Labels)),
		}
		for i, d := range f.Detections {
			rec.Detections[i] = []float64(d)
		}
		for i, l := range f.Labels {
			valid := i < len(f.Valid) && f.Valid[i]
			rec.Labels[i] = LabelRecord{ID: l.ID, BoundingBox3D: l.Box, Valid: valid}
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode frame %s: %w", f.ID, err)
		}
	}
	return nil
}

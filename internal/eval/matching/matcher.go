package matching

import (
	"fmt"
	"sort"

	"github.com/banshee-data/detection.report/internal/eval/geometry"
	"github.com/banshee-data/detection.report/internal/monitoring"
)

// FrameMatcher evaluates frames with a fixed set of options. It holds no
// per-frame state and is safe for concurrent use.
type FrameMatcher struct {
	opts Options
}

// NewFrameMatcher validates opts and returns a matcher.
func NewFrameMatcher(opts Options) (*FrameMatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Corners == nil {
		opts.Corners = geometry.CornerPoints
	}
	return &FrameMatcher{opts: opts}, nil
}

// Options returns the matcher's configuration.
func (m *FrameMatcher) Options() Options {
	return m.opts
}

// EvaluateFrame matches detections against labels with the reference
// options and the given IoU threshold.
func EvaluateFrame(detections []Detection, labels []Label, valid []bool, minIoU float64) (FramePerformance, error) {
	opts := DefaultOptions()
	opts.MinIoU = minIoU
	m, err := NewFrameMatcher(opts)
	if err != nil {
		return FramePerformance{}, err
	}
	return m.EvaluateFrame(detections, labels, valid)
}

// Evaluate is EvaluateFrame for a bundled Frame. The frame ID is copied to
// the result.
func (m *FrameMatcher) Evaluate(f Frame) (FramePerformance, error) {
	perf, err := m.EvaluateFrame(f.Detections, f.Labels, f.Valid)
	if err != nil {
		if f.ID != "" {
			return FramePerformance{}, fmt.Errorf("frame %s: %w", f.ID, err)
		}
		return FramePerformance{}, err
	}
	perf.FrameID = f.ID
	return perf, nil
}

// EvaluateFrame matches every valid label against all detections and
// returns the frame's counts plus the IoU and centre deviation of the match
// selected for each matched label, in label order.
//
// Labels whose validity flag is false are ignored entirely. The whole call
// fails if any compared pair has a degenerate (zero) union area.
func (m *FrameMatcher) EvaluateFrame(detections []Detection, labels []Label, valid []bool) (FramePerformance, error) {
	if len(labels) != len(valid) {
		return FramePerformance{}, fmt.Errorf("%w: %d labels but %d validity flags", ErrValidation, len(labels), len(valid))
	}
	for j, d := range detections {
		if err := d.Validate(); err != nil {
			return FramePerformance{}, fmt.Errorf("detection %d: %w", j, err)
		}
	}

	candidates, err := m.candidates(detections, labels, valid)
	if err != nil {
		return FramePerformance{}, err
	}

	var matches []Match
	var truePositives int
	switch m.opts.Assignment {
	case AssignGreedy:
		matches = assignGreedy(candidates)
		truePositives = len(matches)
	case AssignHungarian:
		matches = assignHungarian(candidates, len(detections))
		truePositives = len(matches)
	default:
		matches, truePositives = assignAll(candidates, m.opts.Selection)
	}

	validLabels := 0
	for _, v := range valid {
		if v {
			validLabels++
		}
	}

	perf := FramePerformance{
		IoUs:       make([]float64, 0, len(matches)),
		CenterDevs: make([]Deviation, 0, len(matches)),
		Counts: Counts{
			TotalDetections: len(detections),
			TruePositives:   truePositives,
			FalseNegatives:  validLabels - truePositives,
			FalsePositives:  len(detections) - truePositives,
		},
	}
	for _, mt := range matches {
		perf.IoUs = append(perf.IoUs, mt.IoU)
		perf.CenterDevs = append(perf.CenterDevs, mt.Deviation())
	}
	return perf, nil
}

// candidates returns every (valid label, detection) pair whose IoU exceeds
// the threshold, ordered by label index and then detection index.
func (m *FrameMatcher) candidates(detections []Detection, labels []Label, valid []bool) ([]Match, error) {
	detRects := make([]geometry.Rect, len(detections))
	for j, d := range detections {
		detRects[j] = m.opts.Rect.Rect(d.Box().Corners(m.opts.Corners))
	}

	var out []Match
	for i, label := range labels {
		if !valid[i] {
			continue
		}
		box := label.Box
		labelRect := m.opts.Rect.Rect(box.Corners(m.opts.Corners))

		for j, d := range detections {
			iou, err := geometry.ComputeIoU(labelRect, detRects[j])
			if err != nil {
				return nil, fmt.Errorf("label %d, detection %d: %w", i, j, err)
			}
			dx := box.CenterX - d[DetX]
			dy := box.CenterY - d[DetY]
			dz := box.CenterZ - d[DetZ]

			if monitoring.DebugEnabled() {
				monitoring.Debugf("label %d det %d: label=%s det=%s center_dist=(%.3f, %.3f, %.3f) iou=%.4f",
					i, j, labelRect, detRects[j], dx, dy, dz, iou)
			}

			if iou > m.opts.MinIoU {
				out = append(out, Match{LabelIndex: i, DetectionIndex: j, IoU: iou, DX: dx, DY: dy, DZ: dz})
			}
		}
	}
	return out, nil
}

// assignAll counts every candidate as a true positive and reports one match
// per label chosen by key. Ties keep the earliest detection.
func assignAll(candidates []Match, key SelectionKey) ([]Match, int) {
	var matches []Match
	for start := 0; start < len(candidates); {
		end := start + 1
		for end < len(candidates) && candidates[end].LabelIndex == candidates[start].LabelIndex {
			end++
		}

		best := candidates[start]
		for _, c := range candidates[start+1 : end] {
			if better(c, best, key) {
				best = c
			}
		}
		matches = append(matches, best)
		start = end
	}
	return matches, len(candidates)
}

func better(c, best Match, key SelectionKey) bool {
	if key == SelectByIoU {
		return c.IoU > best.IoU
	}
	return c.DX > best.DX
}

// assignGreedy visits candidates by descending IoU and keeps a pair when
// neither side has been used yet.
func assignGreedy(candidates []Match) []Match {
	ordered := make([]Match, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].IoU > ordered[b].IoU
	})

	usedLabels := make(map[int]bool)
	usedDets := make(map[int]bool)
	var matches []Match
	for _, c := range ordered {
		if usedLabels[c.LabelIndex] || usedDets[c.DetectionIndex] {
			continue
		}
		usedLabels[c.LabelIndex] = true
		usedDets[c.DetectionIndex] = true
		matches = append(matches, c)
	}
	sortByLabel(matches)
	return matches
}

// assignHungarian solves the one-to-one assignment that maximises summed
// IoU. Pairs below the threshold are forbidden.
func assignHungarian(candidates []Match, numDetections int) []Match {
	if len(candidates) == 0 {
		return nil
	}

	// Compact rows to labels that have at least one candidate.
	rowOf := make(map[int]int)
	var rowLabels []int
	for _, c := range candidates {
		if _, ok := rowOf[c.LabelIndex]; !ok {
			rowOf[c.LabelIndex] = len(rowLabels)
			rowLabels = append(rowLabels, c.LabelIndex)
		}
	}

	cost := make([][]float64, len(rowLabels))
	for r := range cost {
		cost[r] = make([]float64, numDetections)
		for j := range cost[r] {
			cost[r][j] = hungarianInf
		}
	}
	byPair := make(map[[2]int]Match, len(candidates))
	for _, c := range candidates {
		cost[rowOf[c.LabelIndex]][c.DetectionIndex] = 1 - c.IoU
		byPair[[2]int{c.LabelIndex, c.DetectionIndex}] = c
	}

	var matches []Match
	for r, col := range hungarianAssign(cost) {
		if col < 0 {
			continue
		}
		if c, ok := byPair[[2]int{rowLabels[r], col}]; ok {
			matches = append(matches, c)
		}
	}
	sortByLabel(matches)
	return matches
}

func sortByLabel(matches []Match) {
	sort.Slice(matches, func(a, b int) bool {
		return matches[a].LabelIndex < matches[b].LabelIndex
	})
}

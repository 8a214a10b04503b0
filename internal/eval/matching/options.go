package matching

import (
	"fmt"

	"github.com/banshee-data/detection.report/internal/eval/geometry"
)

// DefaultMinIoU is the IoU a pair must exceed to count as a match.
const DefaultMinIoU = 0.5

// SelectionKey picks the reported match when a label has several candidates
// under AssignAll.
type SelectionKey int

const (
	// SelectByDeviationX keeps the candidate with the largest signed x
	// deviation. This is the reference behaviour.
	SelectByDeviationX SelectionKey = iota
	// SelectByIoU keeps the candidate with the largest IoU.
	SelectByIoU
)

func (k SelectionKey) String() string {
	switch k {
	case SelectByDeviationX:
		return "deviation_x"
	case SelectByIoU:
		return "iou"
	default:
		return fmt.Sprintf("SelectionKey(%d)", int(k))
	}
}

// ParseSelectionKey maps a config string onto a SelectionKey.
func ParseSelectionKey(s string) (SelectionKey, error) {
	switch s {
	case "", "deviation_x":
		return SelectByDeviationX, nil
	case "iou":
		return SelectByIoU, nil
	default:
		return SelectByDeviationX, fmt.Errorf("%w: unknown selection key %q (want deviation_x or iou)", ErrValidation, s)
	}
}

// AssignmentPolicy controls how labels and detections are paired.
type AssignmentPolicy int

const (
	// AssignAll counts every (label, detection) pair above the threshold as
	// a true positive. One detection may satisfy several labels and vice
	// versa.
	AssignAll AssignmentPolicy = iota
	// AssignGreedy pairs labels and detections one-to-one, taking the
	// highest-IoU pairs first.
	AssignGreedy
	// AssignHungarian pairs labels and detections one-to-one, maximising the
	// summed IoU of the assignment.
	AssignHungarian
)

func (p AssignmentPolicy) String() string {
	switch p {
	case AssignAll:
		return "all"
	case AssignGreedy:
		return "greedy"
	case AssignHungarian:
		return "hungarian"
	default:
		return fmt.Sprintf("AssignmentPolicy(%d)", int(p))
	}
}

// ParseAssignmentPolicy maps a config string onto an AssignmentPolicy.
func ParseAssignmentPolicy(s string) (AssignmentPolicy, error) {
	switch s {
	case "", "all":
		return AssignAll, nil
	case "greedy":
		return AssignGreedy, nil
	case "hungarian":
		return AssignHungarian, nil
	default:
		return AssignAll, fmt.Errorf("%w: unknown assignment policy %q (want all, greedy or hungarian)", ErrValidation, s)
	}
}

// Options configures a FrameMatcher.
type Options struct {
	// MinIoU must lie in (0, 1]. A pair matches when its IoU is strictly
	// greater than MinIoU.
	MinIoU     float64
	Selection  SelectionKey
	Assignment AssignmentPolicy
	Rect       geometry.RectPolicy
	// Corners is the geometry adapter. Nil selects geometry.CornerPoints.
	Corners geometry.CornerFunc
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		MinIoU:     DefaultMinIoU,
		Selection:  SelectByDeviationX,
		Assignment: AssignAll,
		Rect:       geometry.RectDiagonal,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if !(o.MinIoU > 0 && o.MinIoU <= 1) {
		return fmt.Errorf("%w: min IoU must be in (0, 1], got %v", ErrValidation, o.MinIoU)
	}
	switch o.Selection {
	case SelectByDeviationX, SelectByIoU:
	default:
		return fmt.Errorf("%w: unknown selection key %d", ErrValidation, int(o.Selection))
	}
	switch o.Assignment {
	case AssignAll, AssignGreedy, AssignHungarian:
	default:
		return fmt.Errorf("%w: unknown assignment policy %d", ErrValidation, int(o.Assignment))
	}
	switch o.Rect {
	case geometry.RectDiagonal, geometry.RectEnvelope:
	default:
		return fmt.Errorf("%w: unknown rect policy %d", ErrValidation, int(o.Rect))
	}
	return nil
}

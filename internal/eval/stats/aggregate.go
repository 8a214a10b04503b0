package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/detection.report/internal/eval/matching"
	"gonum.org/v1/gonum/stat"
)

// ErrZeroDenominator is returned when precision or recall is undefined and
// the policy is ZeroDenominatorError.
var ErrZeroDenominator = errors.New("zero denominator")

// ZeroDenominatorPolicy decides what happens when precision or recall has
// no denominator (no detections, or no valid labels).
type ZeroDenominatorPolicy int

const (
	// ZeroDenominatorError fails the aggregation with ErrZeroDenominator.
	ZeroDenominatorError ZeroDenominatorPolicy = iota
	// ZeroDenominatorNaN stores NaN and flags the metric as undefined.
	ZeroDenominatorNaN
)

func (p ZeroDenominatorPolicy) String() string {
	switch p {
	case ZeroDenominatorError:
		return "error"
	case ZeroDenominatorNaN:
		return "nan"
	default:
		return fmt.Sprintf("ZeroDenominatorPolicy(%d)", int(p))
	}
}

// ParseZeroDenominatorPolicy maps a config string onto a policy.
func ParseZeroDenominatorPolicy(s string) (ZeroDenominatorPolicy, error) {
	switch s {
	case "", "error":
		return ZeroDenominatorError, nil
	case "nan":
		return ZeroDenominatorNaN, nil
	default:
		return ZeroDenominatorError, fmt.Errorf("unknown zero denominator policy %q (want error or nan)", s)
	}
}

// Summary holds population statistics of a sample sequence. An empty
// sequence has N == 0 and NaN moments.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	N      int     `json:"n"`
}

// Summarize returns the population mean and standard deviation of x.
func Summarize(x []float64) Summary {
	if len(x) == 0 {
		return Summary{Mean: math.NaN(), StdDev: math.NaN()}
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	return Summary{Mean: mean, StdDev: std, N: len(x)}
}

// DatasetStatistics is derived from a set of FramePerformance values and
// never modified after Aggregate returns it.
type DatasetStatistics struct {
	Frames int `json:"frames"`
	// Totals.TotalDetections is the dataset's positive count.
	Totals matching.Counts `json:"totals"`

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	// PrecisionUndefined and RecallUndefined are set under
	// ZeroDenominatorNaN when the metric had no denominator.
	PrecisionUndefined bool `json:"precision_undefined,omitempty"`
	RecallUndefined    bool `json:"recall_undefined,omitempty"`

	IoUs []float64 `json:"ious"`
	DevX []float64 `json:"dev_x"`
	DevY []float64 `json:"dev_y"`
	DevZ []float64 `json:"dev_z"`

	IoUSummary  Summary `json:"iou_summary"`
	DevXSummary Summary `json:"dev_x_summary"`
	DevYSummary Summary `json:"dev_y_summary"`
	DevZSummary Summary `json:"dev_z_summary"`
}

// Aggregate sums counts across frames, derives precision and recall, and
// flattens the per-frame samples into dataset-wide sequences.
func Aggregate(perfs []matching.FramePerformance, policy ZeroDenominatorPolicy) (*DatasetStatistics, error) {
	var totals matching.Counts
	var nIoU, nDev int
	for _, p := range perfs {
		totals = totals.Add(p.Counts)
		nIoU += len(p.IoUs)
		nDev += len(p.CenterDevs)
	}

	s := &DatasetStatistics{
		Frames: len(perfs),
		Totals: totals,
		IoUs:   make([]float64, 0, nIoU),
		DevX:   make([]float64, 0, nDev),
		DevY:   make([]float64, 0, nDev),
		DevZ:   make([]float64, 0, nDev),
	}

	var err error
	s.Precision, s.PrecisionUndefined, err = ratio("precision", totals.TruePositives, totals.TruePositives+totals.FalsePositives, policy)
	if err != nil {
		return nil, err
	}
	s.Recall, s.RecallUndefined, err = ratio("recall", totals.TruePositives, totals.TruePositives+totals.FalseNegatives, policy)
	if err != nil {
		return nil, err
	}

	for _, p := range perfs {
		s.IoUs = append(s.IoUs, p.IoUs...)
		for _, d := range p.CenterDevs {
			s.DevX = append(s.DevX, d.DX)
			s.DevY = append(s.DevY, d.DY)
			s.DevZ = append(s.DevZ, d.DZ)
		}
	}

	s.IoUSummary = Summarize(s.IoUs)
	s.DevXSummary = Summarize(s.DevX)
	s.DevYSummary = Summarize(s.DevY)
	s.DevZSummary = Summarize(s.DevZ)
	return s, nil
}

func ratio(name string, num, den int, policy ZeroDenominatorPolicy) (float64, bool, error) {
	if den != 0 {
		return float64(num) / float64(den), false, nil
	}
	if policy == ZeroDenominatorNaN {
		return math.NaN(), true, nil
	}
	return 0, false, fmt.Errorf("%w: %s has no denominator (tp=%d)", ErrZeroDenominator, name, num)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/detection.report/internal/eval/geometry"
	"github.com/banshee-data/detection.report/internal/eval/matching"
	"github.com/banshee-data/detection.report/internal/eval/stats"
	"github.com/banshee-data/detection.report/internal/monitoring"
	"github.com/banshee-data/detection.report/internal/timeutil"
)

func frame(id string, offsets ...float64) matching.Frame {
	f := matching.Frame{ID: id}
	for i, off := range offsets {
		x := float64(i) * 10
		f.Labels = append(f.Labels, matching.Label{Box: geometry.BoundingBox3D{CenterX: x, Width: 2, Length: 4}})
		f.Valid = append(f.Valid, true)
		f.Detections = append(f.Detections, matching.Detection{1, x + off, 0, 0, 1.5, 2, 4, 0})
	}
	return f
}

func newRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	m, err := matching.NewFrameMatcher(matching.DefaultOptions())
	require.NoError(t, err)
	return NewRunner(m, workers, stats.ZeroDenominatorError)
}

func TestRunner_Run(t *testing.T) {
	var logged []string
	original := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	defer func() { monitoring.Logf = original }()

	frames := []matching.Frame{
		frame("f0", 0, 0.1),
		frame("f1", 1.5), // misses: IoU 2/14
		frame("f2", 0.05),
	}

	res, err := newRunner(t, 2).Run(context.Background(), frames)
	require.NoError(t, err)

	require.Len(t, res.Frames, 3)
	for i, f := range frames {
		assert.Equal(t, f.ID, res.Frames[i].FrameID, "results keep input order")
	}
	assert.Equal(t, matching.Counts{TotalDetections: 4, TruePositives: 3, FalseNegatives: 1, FalsePositives: 1}, res.Stats.Totals)
	assert.Equal(t, 0.75, res.Stats.Precision)
	assert.Equal(t, 0.75, res.Stats.Recall)
	assert.Len(t, res.Stats.IoUs, 3)

	require.Len(t, logged, 2)
	assert.Equal(t, "TP = 3, FP = 1, FN = 1", logged[0])
	assert.Equal(t, "precision = 0.7500, recall = 0.7500", logged[1])
}

func TestRunner_WorkerCountDoesNotChangeResult(t *testing.T) {
	monitoring.SetLogger(nil)
	defer monitoring.SetLogger(nil)

	var frames []matching.Frame
	for i := 0; i < 40; i++ {
		frames = append(frames, frame(fmt.Sprintf("f%02d", i), 0.01*float64(i%7), 0.3, 2.0))
	}

	serial, err := newRunner(t, 1).Run(context.Background(), frames)
	require.NoError(t, err)
	parallel, err := newRunner(t, 8).Run(context.Background(), frames)
	require.NoError(t, err)

	assert.Equal(t, serial.Frames, parallel.Frames)
	assert.Equal(t, serial.Stats.Totals, parallel.Stats.Totals)
	assert.Equal(t, serial.Stats.Precision, parallel.Stats.Precision)
}

func TestRunner_FrameErrorFailsRun(t *testing.T) {
	bad := frame("broken", 0)
	bad.Valid = nil

	_, err := newRunner(t, 4).Run(context.Background(), []matching.Frame{frame("ok", 0), bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, matching.ErrValidation))
	assert.Contains(t, err.Error(), "frame index 1")
	assert.Contains(t, err.Error(), "frame broken")
}

func TestRunner_ZeroDenominator(t *testing.T) {
	_, err := newRunner(t, 1).Run(context.Background(), []matching.Frame{{ID: "empty"}})
	assert.True(t, errors.Is(err, stats.ErrZeroDenominator))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, 2).EvaluateFrames(ctx, []matching.Frame{frame("f0", 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner_DefaultWorkers(t *testing.T) {
	r := newRunner(t, 0)
	assert.Greater(t, r.workers, 0)
}

func TestRunner_ElapsedUsesClock(t *testing.T) {
	r := newRunner(t, 1)
	r.SetClock(timeutil.NewMockClock(time.Unix(1700000000, 0)))

	res, err := r.Run(context.Background(), []matching.Frame{frame("f0", 0)})
	require.NoError(t, err)
	assert.Zero(t, res.Elapsed, "a stopped clock reports no elapsed time")
}

// Package pipeline runs a dataset through the frame matcher and the
// aggregator. Frames are independent, so they are evaluated by a bounded
// pool of goroutines; results keep input order.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/detection.report/internal/eval/matching"
	"github.com/banshee-data/detection.report/internal/eval/stats"
	"github.com/banshee-data/detection.report/internal/monitoring"
	"github.com/banshee-data/detection.report/internal/timeutil"
)

// Runner evaluates frames and aggregates their results.
type Runner struct {
	matcher *matching.FrameMatcher
	workers int
	policy  stats.ZeroDenominatorPolicy
	clock   timeutil.Clock
}

// Result is the outcome of a full dataset pass.
type Result struct {
	Frames  []matching.FramePerformance
	Stats   *stats.DatasetStatistics
	Elapsed time.Duration
}

// NewRunner returns a Runner. workers <= 0 selects one worker per CPU.
func NewRunner(matcher *matching.FrameMatcher, workers int, policy stats.ZeroDenominatorPolicy) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{matcher: matcher, workers: workers, policy: policy, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used to time Run.
func (r *Runner) SetClock(c timeutil.Clock) {
	r.clock = c
}

// EvaluateFrames evaluates every frame. The first failing frame cancels the
// remaining work and its error is returned; there are no partial results.
func (r *Runner) EvaluateFrames(ctx context.Context, frames []matching.Frame) ([]matching.FramePerformance, error) {
	out := make([]matching.FramePerformance, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range frames {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perf, err := r.matcher.Evaluate(frames[i])
			if err != nil {
				return fmt.Errorf("frame index %d: %w", i, err)
			}
			out[i] = perf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The caller's context may have been cancelled before any goroutine
	// observed it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run evaluates all frames and aggregates them into dataset statistics.
func (r *Runner) Run(ctx context.Context, frames []matching.Frame) (*Result, error) {
	start := r.clock.Now()

	perfs, err := r.EvaluateFrames(ctx, frames)
	if err != nil {
		return nil, err
	}

	s, err := stats.Aggregate(perfs, r.policy)
	if err != nil {
		return nil, err
	}

	monitoring.Logf("TP = %d, FP = %d, FN = %d", s.Totals.TruePositives, s.Totals.FalsePositives, s.Totals.FalseNegatives)
	monitoring.Logf("precision = %.4f, recall = %.4f", s.Precision, s.Recall)

	return &Result{Frames: perfs, Stats: s, Elapsed: r.clock.Since(start)}, nil
}

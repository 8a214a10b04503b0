// Package stats reduces per-frame evaluation results into dataset-wide
// precision, recall and error distributions.
//
// The reduction is a sum over counts and a concatenation over samples, so
// frame order only affects floating-point rounding of the summaries.
package stats

// Package report renders DatasetStatistics as a PNG histogram grid, an
// HTML chart page, or a plain-text summary. It bins samples but computes
// no metrics of its own.
package report

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath is the path to the canonical evaluation defaults file.
const DefaultConfigPath = "config/evaluation.defaults.json"

// Default values used when a field is omitted.
const (
	DefaultMinIoU          = 0.5
	DefaultSelection       = "deviation_x"
	DefaultAssignment      = "all"
	DefaultRect            = "diagonal"
	DefaultZeroDenominator = "error"
	DefaultHistogramBins   = 20
)

// EvaluationConfig holds the knobs of an evaluation run. Pointer fields
// distinguish "unset" from zero so partial files are safe; the Get*
// methods supply defaults.
type EvaluationConfig struct {
	// Matching
	MinIoU     *float64 `json:"min_iou,omitempty"`
	Selection  *string  `json:"selection,omitempty"`  // "deviation_x" or "iou"
	Assignment *string  `json:"assignment,omitempty"` // "all", "greedy" or "hungarian"
	Rect       *string  `json:"rect,omitempty"`       // "diagonal" or "envelope"

	// Aggregation
	ZeroDenominator *string `json:"zero_denominator,omitempty"` // "error" or "nan"

	// Execution and reporting
	Workers       *int `json:"workers,omitempty"`
	HistogramBins *int `json:"histogram_bins,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyEvaluationConfig returns a config with every field unset.
func EmptyEvaluationConfig() *EvaluationConfig {
	return &EvaluationConfig{}
}

// DefaultEvaluationConfig returns a config with every field set to its
// default.
func DefaultEvaluationConfig() *EvaluationConfig {
	return &EvaluationConfig{
		MinIoU:          ptrFloat64(DefaultMinIoU),
		Selection:       ptrString(DefaultSelection),
		Assignment:      ptrString(DefaultAssignment),
		Rect:            ptrString(DefaultRect),
		ZeroDenominator: ptrString(DefaultZeroDenominator),
		Workers:         ptrInt(runtime.NumCPU()),
		HistogramBins:   ptrInt(DefaultHistogramBins),
	}
}

// LoadEvaluationConfig loads a config from a JSON file. The path must have
// a .json extension and the file must be under 1MB. Omitted fields keep
// their defaults.
func LoadEvaluationConfig(path string) (*EvaluationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEvaluationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. It panics when the file cannot be found and is
// intended for test setup.
func MustLoadDefaultConfig() *EvaluationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadEvaluationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *EvaluationConfig) Validate() error {
	if c.MinIoU != nil {
		if !(*c.MinIoU > 0 && *c.MinIoU <= 1) {
			return fmt.Errorf("min_iou must be in (0, 1], got %v", *c.MinIoU)
		}
	}
	if err := oneOf("selection", c.Selection, "deviation_x", "iou"); err != nil {
		return err
	}
	if err := oneOf("assignment", c.Assignment, "all", "greedy", "hungarian"); err != nil {
		return err
	}
	if err := oneOf("rect", c.Rect, "diagonal", "envelope"); err != nil {
		return err
	}
	if err := oneOf("zero_denominator", c.ZeroDenominator, "error", "nan"); err != nil {
		return err
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.HistogramBins != nil && *c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", *c.HistogramBins)
	}
	return nil
}

func oneOf(field string, v *string, allowed ...string) error {
	if v == nil {
		return nil
	}
	for _, a := range allowed {
		if *v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", field, allowed, *v)
}

// GetMinIoU returns the min_iou value or the default.
func (c *EvaluationConfig) GetMinIoU() float64 {
	if c.MinIoU == nil {
		return DefaultMinIoU
	}
	return *c.MinIoU
}

// GetSelection returns the selection value or the default.
func (c *EvaluationConfig) GetSelection() string {
	if c.Selection == nil {
		return DefaultSelection
	}
	return *c.Selection
}

// GetAssignment returns the assignment value or the default.
func (c *EvaluationConfig) GetAssignment() string {
	if c.Assignment == nil {
		return DefaultAssignment
	}
	return *c.Assignment
}

// GetRect returns the rect value or the default.
func (c *EvaluationConfig) GetRect() string {
	if c.Rect == nil {
		return DefaultRect
	}
	return *c.Rect
}

// GetZeroDenominator returns the zero_denominator value or the default.
func (c *EvaluationConfig) GetZeroDenominator() string {
	if c.ZeroDenominator == nil {
		return DefaultZeroDenominator
	}
	return *c.ZeroDenominator
}

// GetWorkers returns the worker count. Zero or unset means one worker per CPU.
func (c *EvaluationConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *EvaluationConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return DefaultHistogramBins
	}
	return *c.HistogramBins
}

// JSON returns the fully-resolved config as JSON, for persisting next to
// results.
func (c *EvaluationConfig) JSON() (json.RawMessage, error) {
	resolved := EvaluationConfig{
		MinIoU:          ptrFloat64(c.GetMinIoU()),
		Selection:       ptrString(c.GetSelection()),
		Assignment:      ptrString(c.GetAssignment()),
		Rect:            ptrString(c.GetRect()),
		ZeroDenominator: ptrString(c.GetZeroDenominator()),
		Workers:         ptrInt(c.GetWorkers()),
		HistogramBins:   ptrInt(c.GetHistogramBins()),
	}
	return json.Marshal(resolved)
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultEvaluationConfig(t *testing.T) {
	cfg := DefaultEvaluationConfig()

	if cfg.MinIoU == nil || *cfg.MinIoU != 0.5 {
		t.Errorf("Expected MinIoU 0.5, got %v", cfg.MinIoU)
	}
	if cfg.Selection == nil || *cfg.Selection != "deviation_x" {
		t.Errorf("Expected Selection 'deviation_x', got %v", cfg.Selection)
	}
	if cfg.Assignment == nil || *cfg.Assignment != "all" {
		t.Errorf("Expected Assignment 'all', got %v", cfg.Assignment)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := EmptyEvaluationConfig()

	if cfg.GetMinIoU() != DefaultMinIoU {
		t.Errorf("GetMinIoU() = %f, want %f", cfg.GetMinIoU(), DefaultMinIoU)
	}
	if cfg.GetSelection() != "deviation_x" {
		t.Errorf("GetSelection() = %q", cfg.GetSelection())
	}
	if cfg.GetAssignment() != "all" {
		t.Errorf("GetAssignment() = %q", cfg.GetAssignment())
	}
	if cfg.GetRect() != "diagonal" {
		t.Errorf("GetRect() = %q", cfg.GetRect())
	}
	if cfg.GetZeroDenominator() != "error" {
		t.Errorf("GetZeroDenominator() = %q", cfg.GetZeroDenominator())
	}
	if cfg.GetWorkers() != runtime.NumCPU() {
		t.Errorf("GetWorkers() = %d, want %d", cfg.GetWorkers(), runtime.NumCPU())
	}
	if cfg.GetHistogramBins() != 20 {
		t.Errorf("GetHistogramBins() = %d, want 20", cfg.GetHistogramBins())
	}
}

func TestLoadEvaluationConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "eval.json")

	testJSON := `{
  "min_iou": 0.7,
  "selection": "iou",
  "assignment": "hungarian",
  "workers": 3
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadEvaluationConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetMinIoU() != 0.7 {
		t.Errorf("GetMinIoU() = %f, want 0.7", cfg.GetMinIoU())
	}
	if cfg.GetSelection() != "iou" {
		t.Errorf("GetSelection() = %q, want iou", cfg.GetSelection())
	}
	if cfg.GetAssignment() != "hungarian" {
		t.Errorf("GetAssignment() = %q, want hungarian", cfg.GetAssignment())
	}
	if cfg.GetWorkers() != 3 {
		t.Errorf("GetWorkers() = %d, want 3", cfg.GetWorkers())
	}
	// omitted fields fall back to defaults
	if cfg.Rect != nil {
		t.Errorf("Rect should be unset, got %v", *cfg.Rect)
	}
	if cfg.GetRect() != "diagonal" {
		t.Errorf("GetRect() = %q, want diagonal", cfg.GetRect())
	}
}

func TestLoadEvaluationConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "eval.yaml", "min_iou: 0.5", ".json extension"},
		{"invalid json", "bad.json", `{"min_iou": "high"`, "parse config JSON"},
		{"min_iou zero", "zero.json", `{"min_iou": 0}`, "min_iou"},
		{"min_iou above one", "big.json", `{"min_iou": 1.5}`, "min_iou"},
		{"unknown assignment", "assign.json", `{"assignment": "optimal"}`, "assignment"},
		{"unknown selection", "sel.json", `{"selection": "score"}`, "selection"},
		{"negative workers", "workers.json", `{"workers": -2}`, "workers"},
		{"zero bins", "bins.json", `{"histogram_bins": 0}`, "histogram_bins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := LoadEvaluationConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadEvaluationConfig("/nonexistent/path/to/config.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetMinIoU() != DefaultMinIoU {
		t.Errorf("defaults file min_iou = %f, want %f", cfg.GetMinIoU(), DefaultMinIoU)
	}
	if cfg.GetHistogramBins() != DefaultHistogramBins {
		t.Errorf("defaults file histogram_bins = %d, want %d", cfg.GetHistogramBins(), DefaultHistogramBins)
	}
}

func TestEvaluationConfigJSON(t *testing.T) {
	cfg := EmptyEvaluationConfig()
	cfg.Assignment = ptrString("greedy")

	raw, err := cfg.JSON()
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["assignment"] != "greedy" {
		t.Errorf("assignment = %v, want greedy", decoded["assignment"])
	}
	if decoded["min_iou"] != 0.5 {
		t.Errorf("min_iou = %v, want resolved default 0.5", decoded["min_iou"])
	}
}

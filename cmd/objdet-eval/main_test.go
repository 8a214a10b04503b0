package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/detection.report/internal/config"
	"github.com/banshee-data/detection.report/internal/eval/matching"
	evalstore "github.com/banshee-data/detection.report/internal/eval/storage/sqlite"
	"github.com/banshee-data/detection.report/internal/testutil"
)

func testFrames() []matching.Frame {
	label := testutil.Box(10, 5, 2, 4, 0)
	det := testutil.DetectionFor(testutil.Box(10.1, 5, 2, 4, 0), 0.9)
	return []matching.Frame{testutil.Frame("f0", []matching.Detection{det}, label)}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMinIoU, cfg.GetMinIoU())

	path := filepath.Join(t.TempDir(), "eval.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"assignment": "hungarian", "min_iou": 0.7}`), 0644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "hungarian", cfg.GetAssignment())
	assert.Equal(t, 0.7, cfg.GetMinIoU())
}

func TestNewRunner(t *testing.T) {
	cfg := config.DefaultEvaluationConfig()
	r, err := newRunner(cfg)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), testFrames())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Totals.TruePositives)
	assert.Equal(t, 1.0, res.Stats.Precision)
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
	}{
		{"bad selection", `{"selection": "score"}`},
		{"bad assignment", `{"assignment": "auction"}`},
		{"bad rect", `{"rect": "circle"}`},
		{"bad zero denominator", `{"zero_denominator": "zero"}`},
		{"bad threshold", `{"min_iou": 1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.EmptyEvaluationConfig()
			require.NoError(t, json.Unmarshal([]byte(tt.cfg), cfg))
			_, err := newRunner(cfg)
			assert.Error(t, err)
		})
	}
}

func TestPersist(t *testing.T) {
	database := testutil.OpenDB(t)

	cfg := config.DefaultEvaluationConfig()
	r, err := newRunner(cfg)
	require.NoError(t, err)
	res, err := r.Run(context.Background(), testFrames())
	require.NoError(t, err)

	store := evalstore.NewEvaluationStore(database.DB)
	id, err := persist(store, "unit", cfg, res)
	require.NoError(t, err)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "unit", got.Dataset)
	assert.Contains(t, string(got.ConfigJSON), `"assignment":"all"`)

	frames, err := store.ListFrames(id)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "f0", frames[0].FrameID)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, writeFile(path, func(f *os.File) error {
		_, err := f.WriteString("ok")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

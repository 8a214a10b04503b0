package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/detection.report/internal/eval/matching"
	"github.com/banshee-data/detection.report/internal/eval/stats"
	"github.com/banshee-data/detection.report/internal/timeutil"
)

// ErrNotFound is returned when an evaluation ID has no row.
var ErrNotFound = errors.New("evaluation not found")

// Evaluation is a persisted dataset-level result. Precision, recall and the
// summary moments are NaN when undefined; they are stored as NULL.
type Evaluation struct {
	EvaluationID string          `json:"evaluation_id"`
	Dataset      string          `json:"dataset"`
	ConfigJSON   json.RawMessage `json:"config_json,omitempty"`
	Frames       int             `json:"frames"`
	Totals       matching.Counts `json:"totals"`
	Precision    float64         `json:"precision"`
	Recall       float64         `json:"recall"`
	IoU          stats.Summary   `json:"iou"`
	DevX         stats.Summary   `json:"dev_x"`
	DevY         stats.Summary   `json:"dev_y"`
	DevZ         stats.Summary   `json:"dev_z"`
	CreatedAt    int64           `json:"created_at"`
}

// NewEvaluation copies the persisted fields out of s.
func NewEvaluation(dataset string, configJSON json.RawMessage, s *stats.DatasetStatistics) *Evaluation {
	return &Evaluation{
		Dataset:    dataset,
		ConfigJSON: configJSON,
		Frames:     s.Frames,
		Totals:     s.Totals,
		Precision:  s.Precision,
		Recall:     s.Recall,
		IoU:        s.IoUSummary,
		DevX:       s.DevXSummary,
		DevY:       s.DevYSummary,
		DevZ:       s.DevZSummary,
	}
}

// FrameResult is one persisted FramePerformance.
type FrameResult struct {
	FrameIndex int                  `json:"frame_index"`
	FrameID    string               `json:"frame_id"`
	Counts     matching.Counts      `json:"counts"`
	IoUs       []float64            `json:"ious"`
	CenterDevs []matching.Deviation `json:"center_devs"`
}

// EvaluationStore provides persistence for evaluation results.
type EvaluationStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewEvaluationStore creates a new EvaluationStore.
func NewEvaluationStore(db *sql.DB) *EvaluationStore {
	return &EvaluationStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used to stamp CreatedAt.
func (s *EvaluationStore) SetClock(c timeutil.Clock) {
	s.clock = c
}

const evaluationColumns = `
	evaluation_id, dataset, config_json, frame_count,
	total_detections, true_positives, false_negatives, false_positives,
	precision, recall,
	iou_mean, iou_std, iou_n,
	dev_x_mean, dev_x_std, dev_y_mean, dev_y_std, dev_z_mean, dev_z_std, dev_n,
	created_at`

// Insert persists a new evaluation. If EvaluationID is empty, a UUID is generated.
func (s *EvaluationStore) Insert(eval *Evaluation) error {
	if eval.EvaluationID == "" {
		eval.EvaluationID = uuid.New().String()
	}
	if eval.CreatedAt == 0 {
		eval.CreatedAt = s.clock.Now().UnixNano()
	}

	var configStr interface{}
	if len(eval.ConfigJSON) > 0 {
		configStr = string(eval.ConfigJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`INSERT INTO evaluations (`+evaluationColumns+`
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eval.EvaluationID, eval.Dataset, configStr, eval.Frames,
			eval.Totals.TotalDetections, eval.Totals.TruePositives, eval.Totals.FalseNegatives, eval.Totals.FalsePositives,
			nullFloat(eval.Precision), nullFloat(eval.Recall),
			nullFloat(eval.IoU.Mean), nullFloat(eval.IoU.StdDev), eval.IoU.N,
			nullFloat(eval.DevX.Mean), nullFloat(eval.DevX.StdDev),
			nullFloat(eval.DevY.Mean), nullFloat(eval.DevY.StdDev),
			nullFloat(eval.DevZ.Mean), nullFloat(eval.DevZ.StdDev), eval.DevX.N,
			eval.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
		return nil
	})
}

// InsertFrames stores the per-frame results of an evaluation in a single
// transaction. Frame indexes follow the order of perfs.
func (s *EvaluationStore) InsertFrames(evaluationID string, perfs []matching.FramePerformance) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO evaluation_frames (
				evaluation_id, frame_index, frame_id,
				total_detections, true_positives, false_negatives, false_positives,
				ious_json, center_devs_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare frame insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range perfs {
			ious, err := json.Marshal(nonNil(p.IoUs))
			if err != nil {
				return fmt.Errorf("encode ious for frame %s: %w", p.FrameID, err)
			}
			devs := p.CenterDevs
			if devs == nil {
				devs = []matching.Deviation{}
			}
			devsJSON, err := json.Marshal(devs)
			if err != nil {
				return fmt.Errorf("encode deviations for frame %s: %w", p.FrameID, err)
			}
			if _, err := stmt.Exec(
				evaluationID, i, p.FrameID,
				p.Counts.TotalDetections, p.Counts.TruePositives, p.Counts.FalseNegatives, p.Counts.FalsePositives,
				string(ious), string(devsJSON),
			); err != nil {
				return fmt.Errorf("insert frame %s: %w", p.FrameID, err)
			}
		}
		return tx.Commit()
	})
}

// Get returns a single evaluation by ID.
func (s *EvaluationStore) Get(evaluationID string) (*Evaluation, error) {
	row := s.db.QueryRow(`SELECT `+evaluationColumns+` FROM evaluations WHERE evaluation_id = ?`, evaluationID)
	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns evaluations ordered by creation time descending. An empty
// dataset lists every evaluation; limit <= 0 means no limit.
func (s *EvaluationStore) List(dataset string, limit int) ([]*Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations`
	var args []interface{}
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// ListFrames returns the per-frame results of an evaluation in frame order.
func (s *EvaluationStore) ListFrames(evaluationID string) ([]*FrameResult, error) {
	rows, err := s.db.Query(`
		SELECT frame_index, frame_id,
		       total_detections, true_positives, false_negatives, false_positives,
		       ious_json, center_devs_json
		FROM evaluation_frames
		WHERE evaluation_id = ?
		ORDER BY frame_index`, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []*FrameResult
	for rows.Next() {
		var f FrameResult
		var iousStr, devsStr string
		if err := rows.Scan(
			&f.FrameIndex, &f.FrameID,
			&f.Counts.TotalDetections, &f.Counts.TruePositives, &f.Counts.FalseNegatives, &f.Counts.FalsePositives,
			&iousStr, &devsStr,
		); err != nil {
			return nil, fmt.Errorf("scan frame row: %w", err)
		}
		if err := json.Unmarshal([]byte(iousStr), &f.IoUs); err != nil {
			return nil, fmt.Errorf("decode ious for frame %s: %w", f.FrameID, err)
		}
		if err := json.Unmarshal([]byte(devsStr), &f.CenterDevs); err != nil {
			return nil, fmt.Errorf("decode deviations for frame %s: %w", f.FrameID, err)
		}
		frames = append(frames, &f)
	}
	return frames, rows.Err()
}

// Delete removes an evaluation and, by cascade, its frames.
func (s *EvaluationStore) Delete(evaluationID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM evaluations WHERE evaluation_id = ?`, evaluationID)
		if err != nil {
			return fmt.Errorf("delete evaluation: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvaluation(row rowScanner) (*Evaluation, error) {
	var e Evaluation
	var configStr sql.NullString
	var precision, recall sql.NullFloat64
	var iouMean, iouStd, dxMean, dxStd, dyMean, dyStd, dzMean, dzStd sql.NullFloat64
	var devN int
	err := row.Scan(
		&e.EvaluationID, &e.Dataset, &configStr, &e.Frames,
		&e.Totals.TotalDetections, &e.Totals.TruePositives, &e.Totals.FalseNegatives, &e.Totals.FalsePositives,
		&precision, &recall,
		&iouMean, &iouStd, &e.IoU.N,
		&dxMean, &dxStd, &dyMean, &dyStd, &dzMean, &dzStd, &devN,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan evaluation row: %w", err)
	}
	if configStr.Valid {
		e.ConfigJSON = json.RawMessage(configStr.String)
	}
	e.Precision = floatOrNaN(precision)
	e.Recall = floatOrNaN(recall)
	e.IoU.Mean, e.IoU.StdDev = floatOrNaN(iouMean), floatOrNaN(iouStd)
	e.DevX = stats.Summary{Mean: floatOrNaN(dxMean), StdDev: floatOrNaN(dxStd), N: devN}
	e.DevY = stats.Summary{Mean: floatOrNaN(dyMean), StdDev: floatOrNaN(dyStd), N: devN}
	e.DevZ = stats.Summary{Mean: floatOrNaN(dzMean), StdDev: floatOrNaN(dzStd), N: devN}
	return &e, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nonNil(x []float64) []float64 {
	if x == nil {
		return []float64{}
	}
	return x
}

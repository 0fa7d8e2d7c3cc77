package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// TrialRepository handles database operations for trials and their samples
type TrialRepository struct {
	db *sql.DB
}

// NewTrialRepository creates a new trial repository
func NewTrialRepository(db *sql.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

const trialColumns = `id, dataset_id, subject_id, stimulus_type, stimulus_name,
	sampling_rate_hz, pixel_size_cm, viewer_distance_cm, sample_count`

func scanTrial(row interface{ Scan(...interface{}) error }, t *models.Trial) error {
	return row.Scan(
		&t.ID, &t.DatasetID, &t.SubjectID, &t.StimulusType, &t.StimulusName,
		&t.SamplingRateHz, &t.PixelSizeCm, &t.ViewerDistanceCm, &t.SampleCount,
	)
}

func insertTrial(tx *sql.Tx, t *models.Trial) error {
	result, err := tx.Exec(`
		INSERT INTO trials (
			dataset_id, subject_id, stimulus_type, stimulus_name,
			sampling_rate_hz, pixel_size_cm, viewer_distance_cm, sample_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.DatasetID, t.SubjectID, t.StimulusType, t.StimulusName,
		t.SamplingRateHz, t.PixelSizeCm, t.ViewerDistanceCm, len(t.Samples))
	if err != nil {
		return fmt.Errorf("failed to create trial %s: %w", t.Key(), err)
	}
	if t.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.SampleCount = len(t.Samples)

	stmt, err := tx.Prepare(`INSERT INTO samples (trial_id, idx, time_ms, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range t.Samples {
		if _, err := stmt.Exec(t.ID, i, s.TimeMs, nullFloat(s.X), nullFloat(s.Y)); err != nil {
			return fmt.Errorf("failed to insert sample %d of trial %s: %w", i, t.Key(), err)
		}
	}
	return nil
}

// GetTrials retrieves trials with filtering and pagination, without samples
func (r *TrialRepository) GetTrials(filter models.TrialFilter) ([]models.Trial, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.DatasetID > 0 {
		conditions = append(conditions, "dataset_id = ?")
		args = append(args, filter.DatasetID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.StimulusType != "" {
		conditions = append(conditions, "stimulus_type = ?")
		args = append(args, filter.StimulusType)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM trials"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trials: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	offset := (filter.Page - 1) * filter.PageSize

	query := "SELECT " + trialColumns + " FROM trials" + where +
		" ORDER BY subject_id, stimulus_type, stimulus_name LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	var trials []models.Trial
	for rows.Next() {
		var t models.Trial
		if err := scanTrial(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("failed to scan trial: %w", err)
		}
		trials = append(trials, t)
	}
	return trials, total, rows.Err()
}

// GetByID retrieves a trial with its samples
func (r *TrialRepository) GetByID(id int64) (*models.Trial, error) {
	t := &models.Trial{}
	err := scanTrial(r.db.QueryRow("SELECT "+trialColumns+" FROM trials WHERE id = ?", id), t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trial %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trial: %w", err)
	}

	if t.Samples, err = r.LoadSamples(id); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadSamples returns the samples of a trial in row order. Missing coordinates are NaN.
func (r *TrialRepository) LoadSamples(trialID int64) ([]models.GazeSample, error) {
	rows, err := r.db.Query(`SELECT idx, time_ms, x, y FROM samples WHERE trial_id = ? ORDER BY idx`, trialID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []models.GazeSample
	for rows.Next() {
		var s models.GazeSample
		var x, y sql.NullFloat64
		if err := rows.Scan(&s.Index, &s.TimeMs, &x, &y); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.X, s.Y = floatOrNaN(x), floatOrNaN(y)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// ListIDs returns the ids of all trials, optionally restricted to one dataset
func (r *TrialRepository) ListIDs(datasetID int64) ([]int64, error) {
	query := "SELECT id FROM trials"
	var args []interface{}
	if datasetID > 0 {
		query += " WHERE dataset_id = ?"
		args = append(args, datasetID)
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trial ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trial id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// RunRepository handles database operations for classification runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, skill_name, mode, status, progress_percent,
	params_json, threshold_profile_id, dataset_id, total_trials, processed_trials,
	failed_trials, start_time, end_time, result_summary, error_message,
	created_by, created_at, updated_at`

func scanRun(row interface{ Scan(...interface{}) error }) (*models.ClassificationRun, error) {
	run := &models.ClassificationRun{}
	var profileID, datasetID, startTime, endTime sql.NullInt64
	var summary, errMsg sql.NullString
	err := row.Scan(
		&run.ID,
		&run.SkillName,
		&run.Mode,
		&run.Status,
		&run.ProgressPercent,
		&run.ParamsJSON,
		&profileID,
		&datasetID,
		&run.TotalTrials,
		&run.ProcessedTrials,
		&run.FailedTrials,
		&startTime,
		&endTime,
		&summary,
		&errMsg,
		&run.CreatedBy,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.ThresholdProfileID = profileID.Int64
	run.DatasetID = datasetID.Int64
	run.StartTime = startTime.Int64
	run.EndTime = endTime.Int64
	run.ResultSummary = summary.String
	run.ErrorMessage = errMsg.String
	return run, nil
}

// Create creates a new run in pending state
func (r *RunRepository) Create(run *models.ClassificationRun) error {
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}
	if run.Mode == "" {
		run.Mode = models.RunModeIncremental
	}
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}

	query := `
		INSERT INTO classification_runs (
			skill_name, mode, status, progress_percent, params_json,
			threshold_profile_id, dataset_id, total_trials, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		run.SkillName,
		run.Mode,
		run.Status,
		run.ProgressPercent,
		run.ParamsJSON,
		nullInt64(run.ThresholdProfileID),
		nullInt64(run.DatasetID),
		run.TotalTrials,
		run.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// GetByID retrieves a run by ID
func (r *RunRepository) GetByID(id int64) (*models.ClassificationRun, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM classification_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List retrieves runs with optional filters, newest first
func (r *RunRepository) List(skillName string, status string, limit int, offset int) ([]*models.ClassificationRun, error) {
	query := `SELECT ` + runColumns + ` FROM classification_runs WHERE 1=1`

	args := []interface{}{}
	if skillName != "" {
		query += " AND skill_name = ?"
		args = append(args, skillName)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ClassificationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SetTotal records how many trials a run is going to process
func (r *RunRepository) SetTotal(id int64, totalTrials int) error {
	_, err := r.db.Exec(`
		UPDATE classification_runs
		SET total_trials = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
	`, totalTrials, id)
	if err != nil {
		return fmt.Errorf("failed to set run total: %w", err)
	}
	return nil
}

// UpdateProgress updates the progress of a run
func (r *RunRepository) UpdateProgress(id int64, processedTrials int, failedTrials int, progressPercent int) error {
	query := `
		UPDATE classification_runs
		SET processed_trials = ?, failed_trials = ?, progress_percent = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, processedTrials, failedTrials, progressPercent, id); err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

// MarkAsRunning marks a run as running
func (r *RunRepository) MarkAsRunning(id int64) error {
	return r.setStatus(id, models.RunStatusRunning, `start_time = ?`, time.Now().Unix())
}

// MarkAsCompleted marks a run as completed with a result summary
func (r *RunRepository) MarkAsCompleted(id int64, resultSummary string) error {
	return r.setStatus(id, models.RunStatusCompleted,
		`end_time = ?, result_summary = ?, progress_percent = 100`, time.Now().Unix(), resultSummary)
}

// MarkAsFailed marks a run as failed with an error message
func (r *RunRepository) MarkAsFailed(id int64, errorMessage string) error {
	return r.setStatus(id, models.RunStatusFailed, `end_time = ?, error_message = ?`, time.Now().Unix(), errorMessage)
}

// MarkAsCancelled marks a run as cancelled
func (r *RunRepository) MarkAsCancelled(id int64) error {
	return r.setStatus(id, models.RunStatusCancelled, `end_time = ?`, time.Now().Unix())
}

func (r *RunRepository) setStatus(id int64, status string, set string, args ...interface{}) error {
	query := `UPDATE classification_runs SET status = ?, ` + set +
		`, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now') WHERE id = ?`
	all := append([]interface{}{status}, args...)
	all = append(all, id)

	result, err := r.db.Exec(query, all...)
	if err != nil {
		return fmt.Errorf("failed to mark run %d as %s: %w", id, status, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a run
func (r *RunRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM classification_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return nil
}

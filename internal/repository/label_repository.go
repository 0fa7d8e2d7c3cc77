package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/gaze-events-backend-go/internal/database"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// LabelRepository stores per-sample labels of trials. Each trial holds one
// label sequence per source: a rater name or a run's "<skill>#<id>".
type LabelRepository struct {
	db *sql.DB
}

// NewLabelRepository creates a new label repository
func NewLabelRepository(db *sql.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

func replaceLabels(tx *sql.Tx, trialID int64, source string, labels []models.Label) error {
	if _, err := tx.Exec(`DELETE FROM labels WHERE trial_id = ? AND source = ?`, trialID, source); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO labels (trial_id, source, idx, label) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare label insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range labels {
		if _, err := stmt.Exec(trialID, source, i, int(l)); err != nil {
			return fmt.Errorf("failed to insert label %d: %w", i, err)
		}
	}
	return nil
}

// Replace stores the label sequence of a (trial, source), dropping any previous one
func (r *LabelRepository) Replace(trialID int64, source string, labels []models.Label) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		return replaceLabels(tx, trialID, source, labels)
	})
}

// Get returns the label sequence of a (trial, source) in sample order
func (r *LabelRepository) Get(trialID int64, source string) ([]models.Label, error) {
	rows, err := r.db.Query(`SELECT label FROM labels WHERE trial_id = ? AND source = ? ORDER BY idx`, trialID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []models.Label
	for rows.Next() {
		var code int
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		l, _ := models.LabelFromCode(code, true)
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels %q of trial %d: %w", source, trialID, ErrNotFound)
	}
	return labels, nil
}

// Sources lists the label sources stored for a trial
func (r *LabelRepository) Sources(trialID int64) ([]string, error) {
	return r.querySources(`SELECT DISTINCT source FROM labels WHERE trial_id = ? ORDER BY source`, trialID)
}

// TrialsWithSources returns the ids of trials that hold labels from every given source
func (r *LabelRepository) TrialsWithSources(sources ...string) ([]int64, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	query := `SELECT trial_id FROM labels WHERE source IN (?` + strings.Repeat(",?", len(sources)-1) + `)
		GROUP BY trial_id HAVING COUNT(DISTINCT source) = ? ORDER BY trial_id`
	args := make([]interface{}, 0, len(sources)+1)
	for _, s := range sources {
		args = append(args, s)
	}
	args = append(args, len(sources))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials by source: %w", err)
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

// DeleteSource removes every label of a source, e.g. when its run is deleted
func (r *LabelRepository) DeleteSource(source string) error {
	if _, err := r.db.Exec(`DELETE FROM labels WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to delete labels: %w", err)
	}
	return nil
}

func (r *LabelRepository) querySources(query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query label sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan label source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

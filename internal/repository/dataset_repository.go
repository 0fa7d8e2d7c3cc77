package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/gaze-events-backend-go/internal/database"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// DatasetRepository handles database operations for imported datasets
type DatasetRepository struct {
	db *sql.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

const datasetColumns = `id, uuid, name, source_url, article, trial_count, created_at`

func scanDataset(row interface{ Scan(...interface{}) error }) (*models.Dataset, error) {
	d := &models.Dataset{}
	err := row.Scan(&d.ID, &d.UUID, &d.Name, &d.SourceURL, &d.Article, &d.TrialCount, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Import stores a dataset with its trials, samples and rater labels in one transaction.
// An existing dataset with the same name is replaced.
func (r *DatasetRepository) Import(ds *models.Dataset, trials []models.Trial) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM datasets WHERE name = ?`, ds.Name); err != nil {
			return fmt.Errorf("failed to replace dataset: %w", err)
		}

		result, err := tx.Exec(`
			INSERT INTO datasets (uuid, name, source_url, article, trial_count)
			VALUES (?, ?, ?, ?, ?)
		`, ds.UUID, ds.Name, ds.SourceURL, ds.Article, len(trials))
		if err != nil {
			return fmt.Errorf("failed to create dataset: %w", err)
		}
		ds.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		ds.TrialCount = len(trials)

		for i := range trials {
			trials[i].DatasetID = ds.ID
			if err := insertTrial(tx, &trials[i]); err != nil {
				return err
			}
			for rater, labels := range trials[i].Raters {
				if err := replaceLabels(tx, trials[i].ID, rater, labels); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetByID retrieves a dataset by ID
func (r *DatasetRepository) GetByID(id int64) (*models.Dataset, error) {
	d, err := scanDataset(r.db.QueryRow(`SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return d, nil
}

// GetByName retrieves a dataset by its unique name
func (r *DatasetRepository) GetByName(name string) (*models.Dataset, error) {
	d, err := scanDataset(r.db.QueryRow(`SELECT `+datasetColumns+` FROM datasets WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return d, nil
}

// List returns all datasets, newest first
func (r *DatasetRepository) List() ([]*models.Dataset, error) {
	rows, err := r.db.Query(`SELECT ` + datasetColumns + ` FROM datasets ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// Delete removes a dataset with all of its trials
func (r *DatasetRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("dataset %d: %w", id, ErrNotFound)
	}
	return nil
}

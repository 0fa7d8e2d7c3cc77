package service

import (
	"context"
	"errors"
	"log"

	"github.com/jengzang/gaze-events-backend-go/internal/dataset"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
)

// DatasetService imports annotated datasets into the database
type DatasetService struct {
	repo   *repository.DatasetRepository
	loader *dataset.ArchiveLoader
	source dataset.Source
}

// NewDatasetService creates a dataset service for the configured source
func NewDatasetService(repo *repository.DatasetRepository, loader *dataset.ArchiveLoader, source dataset.Source) *DatasetService {
	return &DatasetService{repo: repo, loader: loader, source: source}
}

// ImportResult reports whether an import reused the stored dataset
type ImportResult struct {
	Dataset *models.Dataset `json:"dataset"`
	Cached  bool            `json:"cached"`
}

// Import loads the configured dataset. A dataset already in the database is
// returned as is unless refresh is set, in which case the archive is fetched
// again and the stored copy replaced.
func (s *DatasetService) Import(ctx context.Context, refresh bool) (*ImportResult, error) {
	if !refresh {
		existing, err := s.repo.GetByName(s.source.Name)
		if err == nil {
			return &ImportResult{Dataset: existing, Cached: true}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	result, err := s.loader.Load(ctx, s.source, refresh)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Import(&result.Dataset, result.Trials); err != nil {
		return nil, err
	}
	log.Printf("[DatasetService] Imported %s: %d trials", result.Dataset.Name, result.Dataset.TrialCount)
	return &ImportResult{Dataset: &result.Dataset}, nil
}

// ListDatasets returns every stored dataset
func (s *DatasetService) ListDatasets() ([]*models.Dataset, error) {
	return s.repo.List()
}

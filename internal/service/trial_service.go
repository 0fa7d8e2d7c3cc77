package service

import (
	"fmt"

	"github.com/jengzang/gaze-events-backend-go/internal/events"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
	"github.com/jengzang/gaze-events-backend-go/internal/stats"
)

// TrialService handles trial queries
type TrialService struct {
	trials *repository.TrialRepository
	labels *repository.LabelRepository
}

// NewTrialService creates a new trial service
func NewTrialService(trials *repository.TrialRepository, labels *repository.LabelRepository) *TrialService {
	return &TrialService{trials: trials, labels: labels}
}

// GetTrials retrieves trials with filtering and pagination
func (s *TrialService) GetTrials(filter models.TrialFilter) (*models.TrialsResponse, error) {
	trials, total, err := s.trials.GetTrials(filter)
	if err != nil {
		return nil, err
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
	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	return &models.TrialsResponse{
		Data:       trials,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// TrialDetail is a trial with its samples and the label sources stored for it
type TrialDetail struct {
	*models.Trial
	Sources []string `json:"sources"`
}

// GetTrial retrieves a trial with its samples
func (s *TrialService) GetTrial(id int64) (*TrialDetail, error) {
	trial, err := s.trials.GetByID(id)
	if err != nil {
		return nil, err
	}
	sources, err := s.labels.Sources(id)
	if err != nil {
		return nil, err
	}
	return &TrialDetail{Trial: trial, Sources: sources}, nil
}

// GetLabels returns the labels of one source for a trial
func (s *TrialService) GetLabels(id int64, source string) ([]models.Label, error) {
	if source == "" {
		return nil, invalidf("source is required")
	}
	return s.labels.Get(id, source)
}

// GetEvents groups the labels of one source into events with the trial's geometry
func (s *TrialService) GetEvents(id int64, source string, types ...models.Label) ([]models.GazeEvent, error) {
	labels, err := s.GetLabels(id, source)
	if err != nil {
		return nil, err
	}
	trial, err := s.trials.GetByID(id)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(trial.Samples) {
		return nil, fmt.Errorf("trial %d: %d labels from %s for %d samples", id, len(labels), source, len(trial.Samples))
	}

	evs, err := events.Build(labels, trial.Positions(), trial.Times(), events.Options{
		SamplingRateHz:   trial.SamplingRateHz,
		ViewerDistanceCm: trial.ViewerDistanceCm,
		PixelSizeCm:      trial.PixelSizeCm,
	})
	if err != nil {
		return nil, err
	}
	return events.Filter(evs, types...), nil
}

// GetAgreement compares two label sources of one trial
func (s *TrialService) GetAgreement(id int64, reference, candidate string, classes ...models.Label) (*models.AgreementReport, error) {
	if reference == "" || candidate == "" {
		return nil, invalidf("reference and candidate are required")
	}
	ref, err := s.labels.Get(id, reference)
	if err != nil {
		return nil, err
	}
	cand, err := s.labels.Get(id, candidate)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		classes = []models.Label{models.LabelFixation, models.LabelSaccade}
	}

	c, err := stats.Compare(ref, cand, classes...)
	if err != nil {
		return nil, err
	}
	report := c.Report(reference, candidate)
	return &report, nil
}

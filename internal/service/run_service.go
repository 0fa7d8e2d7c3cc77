package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	"github.com/jengzang/gaze-events-backend-go/internal/analysis/agreement"
	"github.com/jengzang/gaze-events-backend-go/internal/analysis/outliers"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
)

// RunService creates classification runs and executes them in the background
type RunService struct {
	runs     *repository.RunRepository
	labels   *repository.LabelRepository
	profiles *repository.ProfileRepository
	env      analysis.Env

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunService creates a new run service
func NewRunService(env analysis.Env) *RunService {
	return &RunService{
		runs:     repository.NewRunRepository(env.DB),
		labels:   repository.NewLabelRepository(env.DB),
		profiles: repository.NewProfileRepository(env.DB),
		env:      env,
		cancels:  make(map[int64]context.CancelFunc),
	}
}

// CreateRunRequest is the body of a run creation
type CreateRunRequest struct {
	SkillName          string          `json:"skill_name" binding:"required"`
	Mode               string          `json:"mode"` // INCREMENTAL (default) or FULL_RECOMPUTE
	Params             json.RawMessage `json:"params,omitempty"`
	ThresholdProfileID int64           `json:"threshold_profile_id,omitempty"`
	DatasetID          int64           `json:"dataset_id,omitempty"`
}

// CreateRun validates and stores a run, then starts it
func (s *RunService) CreateRun(req CreateRunRequest, createdBy string) (*models.ClassificationRun, error) {
	if !analysis.IsRegistered(req.SkillName) {
		return nil, invalidf("unknown skill %q", req.SkillName)
	}

	switch req.Mode {
	case "":
		req.Mode = models.RunModeIncremental
	case models.RunModeIncremental, models.RunModeFullRecompute:
	default:
		return nil, invalidf("invalid mode %q", req.Mode)
	}

	params := "{}"
	if len(req.Params) > 0 && string(req.Params) != "null" {
		params = string(req.Params)
	}
	if err := s.validateParams(req.SkillName, params); err != nil {
		return nil, err
	}

	if req.ThresholdProfileID != 0 {
		profile, err := s.profiles.GetByID(req.ThresholdProfileID)
		if err != nil {
			return nil, err
		}
		if profile.SkillName != req.SkillName {
			return nil, invalidf("profile %d belongs to %s", profile.ID, profile.SkillName)
		}
	}

	run := &models.ClassificationRun{
		SkillName:          req.SkillName,
		Mode:               req.Mode,
		Status:             models.RunStatusPending,
		ParamsJSON:         params,
		ThresholdProfileID: req.ThresholdProfileID,
		DatasetID:          req.DatasetID,
		CreatedBy:          createdBy,
	}
	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.start(run)
	return run, nil
}

func (s *RunService) validateParams(skillName, params string) error {
	switch skillName {
	case agreement.Name:
		if _, _, err := agreement.ParseParams(params); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil
	case outliers.Name:
		if _, _, err := outliers.ParseParams(params); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil
	}
	var p detector.Params
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return invalidf("params: %v", err)
	}
	return nil
}

// start executes the run on its own goroutine
func (s *RunService) start(run *models.ClassificationRun) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(run.ID)
		s.execute(ctx, run.ID, run.SkillName, run.Mode)
	}()
}

func (s *RunService) execute(ctx context.Context, runID int64, skillName, mode string) {
	log.Printf("[RunService] Starting run %d (skill: %s, mode: %s)", runID, skillName, mode)

	analyzer := analysis.GetAnalyzer(skillName, s.env)
	if analyzer == nil {
		s.runs.MarkAsFailed(runID, fmt.Sprintf("unknown skill: %s", skillName))
		return
	}

	err := analyzer.Analyze(ctx, runID, mode)
	switch {
	case err == nil:
		log.Printf("[RunService] Run %d completed", runID)
	case errors.Is(err, context.Canceled):
		log.Printf("[RunService] Run %d cancelled", runID)
		if err := s.runs.MarkAsCancelled(runID); err != nil {
			log.Printf("[RunService] Failed to mark run %d as cancelled: %v", runID, err)
		}
	default:
		log.Printf("[RunService] Run %d failed: %v", runID, err)
		s.failIfActive(runID, err)
	}
}

// failIfActive marks a run failed when its analyzer returned without doing so
func (s *RunService) failIfActive(runID int64, cause error) {
	run, err := s.runs.GetByID(runID)
	if err != nil {
		log.Printf("[RunService] Failed to load run %d: %v", runID, err)
		return
	}
	if run.Status != models.RunStatusRunning && run.Status != models.RunStatusPending {
		return
	}
	if err := s.runs.MarkAsFailed(runID, cause.Error()); err != nil {
		log.Printf("[RunService] Failed to mark run %d as failed: %v", runID, err)
	}
}

func (s *RunService) forget(runID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[runID]; ok {
		cancel()
		delete(s.cancels, runID)
	}
}

// GetRun retrieves a run by ID
func (s *RunService) GetRun(id int64) (*models.ClassificationRun, error) {
	return s.runs.GetByID(id)
}

// ListRuns retrieves runs with optional filters
func (s *RunService) ListRuns(skillName, status string, limit, offset int) ([]*models.ClassificationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.runs.List(skillName, status, limit, offset)
}

// CancelRun stops a pending or running run
func (s *RunService) CancelRun(id int64) error {
	run, err := s.runs.GetByID(id)
	if err != nil {
		return err
	}
	if run.Status != models.RunStatusPending && run.Status != models.RunStatusRunning {
		return invalidf("run is not running (status: %s)", run.Status)
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
		return nil
	}
	// no worker in this process, e.g. after a restart
	return s.runs.MarkAsCancelled(id)
}

// DeleteRun removes a finished run together with the labels it wrote
func (s *RunService) DeleteRun(id int64) error {
	run, err := s.runs.GetByID(id)
	if err != nil {
		return err
	}
	if run.Status == models.RunStatusPending || run.Status == models.RunStatusRunning {
		return invalidf("cancel run %d before deleting it", id)
	}
	if err := s.labels.DeleteSource(run.LabelSource()); err != nil {
		return err
	}
	return s.runs.Delete(id)
}

// Wait blocks until every started run has finished
func (s *RunService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels every active run and waits for the workers to stop
func (s *RunService) Shutdown() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.Wait()
}

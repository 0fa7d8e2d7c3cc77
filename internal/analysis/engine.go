package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
)

// Analyzer is the interface that all analysis skills must implement
type Analyzer interface {
	// Analyze executes a classification run.
	// mode: INCREMENTAL (skip trials already labelled by the run) or FULL_RECOMPUTE
	Analyze(ctx context.Context, runID int64, mode string) error

	// GetProgress returns the current progress of a run
	GetProgress(runID int64) (*Progress, error)

	// GetName returns the name of the analyzer
	GetName() string
}

// Progress represents the progress of a run
type Progress struct {
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Failed    int     `json:"failed"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
}

// Env carries what analyzers need from the application
type Env struct {
	DB *sql.DB

	// Defaults holds the configured detector params per skill
	Defaults map[string]detector.Params
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Name     string
	Runs     *repository.RunRepository
	Trials   *repository.TrialRepository
	Labels   *repository.LabelRepository
	Profiles *repository.ProfileRepository
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(env Env, name string) *BaseAnalyzer {
	return &BaseAnalyzer{
		Name:     name,
		Runs:     repository.NewRunRepository(env.DB),
		Trials:   repository.NewTrialRepository(env.DB),
		Labels:   repository.NewLabelRepository(env.DB),
		Profiles: repository.NewProfileRepository(env.DB),
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// GetRunInfo retrieves the run being executed
func (a *BaseAnalyzer) GetRunInfo(runID int64) (*models.ClassificationRun, error) {
	return a.Runs.GetByID(runID)
}

// MarkRunAsRunning marks a run as running
func (a *BaseAnalyzer) MarkRunAsRunning(runID int64) error {
	return a.Runs.MarkAsRunning(runID)
}

// MarkRunAsCompleted stores the JSON encoded summary and completes the run
func (a *BaseAnalyzer) MarkRunAsCompleted(runID int64, summary interface{}) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode result summary: %w", err)
	}
	return a.Runs.MarkAsCompleted(runID, string(data))
}

// MarkRunAsFailed marks a run as failed with an error message
func (a *BaseAnalyzer) MarkRunAsFailed(runID int64, errorMsg string) error {
	return a.Runs.MarkAsFailed(runID, errorMsg)
}

// GetProgress reads the stored progress of a run
func (a *BaseAnalyzer) GetProgress(runID int64) (*Progress, error) {
	run, err := a.Runs.GetByID(runID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		Processed: run.ProcessedTrials,
		Total:     run.TotalTrials,
		Failed:    run.FailedTrials,
		Percent:   float64(run.ProgressPercent),
		Status:    run.Status,
	}, nil
}

// ResolveParams merges the run's params over its threshold profile (or the
// skill's default profile) over the configured defaults
func (a *BaseAnalyzer) ResolveParams(run *models.ClassificationRun, defaults detector.Params) (detector.Params, error) {
	var params detector.Params
	if run.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(run.ParamsJSON), &params); err != nil {
			return params, fmt.Errorf("invalid run params: %w", err)
		}
	}

	var profile *models.ThresholdProfile
	var err error
	if run.ThresholdProfileID != 0 {
		profile, err = a.Profiles.GetByID(run.ThresholdProfileID)
	} else {
		profile, err = a.Profiles.GetDefault(run.SkillName)
		if err != nil && isNotFound(err) {
			profile, err = nil, nil
		}
	}
	if err != nil {
		return params, err
	}

	if profile != nil {
		var fromProfile detector.Params
		if err := json.Unmarshal([]byte(profile.ParamsJSON), &fromProfile); err != nil {
			return params, fmt.Errorf("invalid params in profile %s: %w", profile.Name, err)
		}
		params = params.Merge(fromProfile)
	}
	return params.Merge(defaults), nil
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(env Env) Analyzer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a skill name
func RegisterAnalyzer(skillName string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[skillName] = factory
}

// GetAnalyzer creates the analyzer of a skill, or nil for an unknown skill
func GetAnalyzer(skillName string, env Env) Analyzer {
	registryMu.RLock()
	factory, ok := registry[skillName]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory(env)
}

// IsRegistered reports whether a skill has an analyzer
func IsRegistered(skillName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[skillName]
	return ok
}

// Skills lists the registered skill names in sorted order
func Skills() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

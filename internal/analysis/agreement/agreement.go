package agreement

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/stats"
)

// Name is the skill name of the agreement analyzer
const Name = "agreement"

// Params selects the label sources to compare
type Params struct {
	Reference  string   `json:"reference"`
	Candidates []string `json:"candidates"`
	Classes    []string `json:"classes,omitempty"` // default fixation, saccade
}

// Analyzer compares candidate label sources with a reference source over
// every trial that holds both, and stores one report per candidate
type Analyzer struct {
	*analysis.IncrementalAnalyzer
}

// NewAnalyzer creates the agreement analyzer
func NewAnalyzer(env analysis.Env) analysis.Analyzer {
	return &Analyzer{IncrementalAnalyzer: analysis.NewIncrementalAnalyzer(env, Name, 10)}
}

func init() {
	analysis.RegisterAnalyzer(Name, NewAnalyzer)
}

// ParseParams decodes and validates the params of an agreement run
func ParseParams(raw string) (Params, []models.Label, error) {
	var p Params
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return p, nil, fmt.Errorf("invalid agreement params: %w", err)
		}
	}
	if p.Reference == "" {
		return p, nil, fmt.Errorf("invalid agreement params: reference is required")
	}
	if len(p.Candidates) == 0 {
		return p, nil, fmt.Errorf("invalid agreement params: at least one candidate is required")
	}

	classes := []models.Label{models.LabelFixation, models.LabelSaccade}
	if len(p.Classes) > 0 {
		classes = classes[:0]
		for _, c := range p.Classes {
			l, err := models.ParseLabel(c, false)
			if err != nil {
				return p, nil, fmt.Errorf("invalid agreement params: %w", err)
			}
			classes = append(classes, l)
		}
	}
	return p, classes, nil
}

type pair struct {
	trialID   int64
	candidate int
}

// Analyze performs the agreement run
func (a *Analyzer) Analyze(ctx context.Context, runID int64, mode string) error {
	log.Printf("[AgreementAnalyzer] Starting analysis (run_id=%d)", runID)

	run, err := a.GetRunInfo(runID)
	if err != nil {
		return err
	}
	if err := a.MarkRunAsRunning(runID); err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}

	params, classes, err := ParseParams(run.ParamsJSON)
	if err != nil {
		return a.Fail(runID, err)
	}

	matrices := make([]*stats.Confusion, len(params.Candidates))
	var pairs []pair
	for i, candidate := range params.Candidates {
		matrices[i] = stats.NewConfusion(classes...)
		ids, err := a.Labels.TrialsWithSources(params.Reference, candidate)
		if err != nil {
			return a.Fail(runID, err)
		}
		for _, id := range ids {
			pairs = append(pairs, pair{trialID: id, candidate: i})
		}
	}

	_, failed, err := a.ProcessInBatches(ctx, runID, len(pairs), func(ctx context.Context, i int) error {
		p := pairs[i]
		reference, err := a.Labels.Get(p.trialID, params.Reference)
		if err != nil {
			return err
		}
		candidate, err := a.Labels.Get(p.trialID, params.Candidates[p.candidate])
		if err != nil {
			return err
		}
		return matrices[p.candidate].Add(reference, candidate)
	})
	if err != nil {
		return a.Fail(runID, err)
	}

	reports := make([]models.AgreementReport, len(params.Candidates))
	for i, candidate := range params.Candidates {
		reports[i] = matrices[i].Report(params.Reference, candidate)
	}
	if err := a.MarkRunAsCompleted(runID, reports); err != nil {
		return fmt.Errorf("failed to mark run as completed: %w", err)
	}

	log.Printf("[AgreementAnalyzer] Run %d completed: %d comparisons, %d failed", runID, len(pairs), failed)
	return nil
}

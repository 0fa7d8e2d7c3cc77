package outliers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	"github.com/jengzang/gaze-events-backend-go/internal/events"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// Name is the skill name of the outlier analyzer
const Name = "event_outliers"

// DefaultMaxPeakVelocityDeg is above the fastest human saccades
const DefaultMaxPeakVelocityDeg = 1000.0

// Params selects the label source to check and the rules to apply
type Params struct {
	Source             string                           `json:"source"`
	Bounds             map[string]events.DurationBounds `json:"bounds,omitempty"` // keyed by label name
	MaxPeakVelocityDeg *float64                         `json:"max_peak_velocity_deg,omitempty"`
}

// ParseParams decodes the params of an outlier run
func ParseParams(raw string) (Params, events.Options, error) {
	var p Params
	var opts events.Options
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return p, opts, fmt.Errorf("invalid outlier params: %w", err)
		}
	}
	if p.Source == "" {
		return p, opts, fmt.Errorf("invalid outlier params: source is required")
	}

	opts.MaxPeakVelocityDeg = DefaultMaxPeakVelocityDeg
	if p.MaxPeakVelocityDeg != nil {
		opts.MaxPeakVelocityDeg = *p.MaxPeakVelocityDeg
	}
	if len(p.Bounds) > 0 {
		opts.Bounds = make(map[models.Label]events.DurationBounds, len(p.Bounds))
		for name, b := range p.Bounds {
			l, err := models.ParseLabel(name, false)
			if err != nil {
				return p, opts, fmt.Errorf("invalid outlier params: %w", err)
			}
			if b.MaxMs < b.MinMs {
				return p, opts, fmt.Errorf("invalid outlier params: %s bounds have max below min", name)
			}
			opts.Bounds[l] = b
		}
	}
	return p, opts, nil
}

// Outlier is one flagged event
type Outlier struct {
	TrialID    int64        `json:"trial_id"`
	Type       models.Label `json:"type"`
	StartIndex int          `json:"start_index"`
	EndIndex   int          `json:"end_index"`
	DurationMs float64      `json:"duration_ms"`
	Reasons    []string     `json:"reasons"`
}

// Summary is the result summary of an outlier run
type Summary struct {
	Source       string                    `json:"source"`
	Trials       int                       `json:"trials"`
	FailedTrials int                       `json:"failed_trials"`
	Events       map[string]events.Summary `json:"events"`
	ReasonCounts map[string]int            `json:"reason_counts"`
	Outliers     []Outlier                 `json:"outliers"`
}

// Analyzer flags implausible events in the labels of one source
type Analyzer struct {
	*analysis.IncrementalAnalyzer
}

// NewAnalyzer creates the outlier analyzer
func NewAnalyzer(env analysis.Env) analysis.Analyzer {
	return &Analyzer{IncrementalAnalyzer: analysis.NewIncrementalAnalyzer(env, Name, 10)}
}

func init() {
	analysis.RegisterAnalyzer(Name, NewAnalyzer)
}

// Analyze performs outlier detection over every trial labelled by the source
func (a *Analyzer) Analyze(ctx context.Context, runID int64, mode string) error {
	log.Printf("[OutlierAnalyzer] Starting analysis (run_id=%d, mode=%s)", runID, mode)

	run, err := a.GetRunInfo(runID)
	if err != nil {
		return err
	}
	if err := a.MarkRunAsRunning(runID); err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}

	params, opts, err := ParseParams(run.ParamsJSON)
	if err != nil {
		return a.Fail(runID, err)
	}
	trialIDs, err := a.Labels.TrialsWithSources(params.Source)
	if err != nil {
		return a.Fail(runID, err)
	}

	var all []models.GazeEvent
	var flagged []Outlier
	reasons := make(map[string]int)

	processed, failed, err := a.ProcessInBatches(ctx, runID, len(trialIDs), func(ctx context.Context, i int) error {
		trial, err := a.Trials.GetByID(trialIDs[i])
		if err != nil {
			return err
		}
		labels, err := a.Labels.Get(trial.ID, params.Source)
		if err != nil {
			return err
		}

		o := opts
		o.SamplingRateHz = trial.SamplingRateHz
		o.ViewerDistanceCm = trial.ViewerDistanceCm
		o.PixelSizeCm = trial.PixelSizeCm
		evs, err := events.Build(labels, trial.Positions(), trial.Times(), o)
		if err != nil {
			return err
		}

		for _, e := range evs {
			if !e.Outlier {
				continue
			}
			flagged = append(flagged, Outlier{
				TrialID:    trial.ID,
				Type:       e.Type,
				StartIndex: e.StartIndex,
				EndIndex:   e.EndIndex,
				DurationMs: e.DurationMs,
				Reasons:    e.OutlierReasons,
			})
			for _, r := range e.OutlierReasons {
				reasons[r]++
			}
		}
		all = append(all, evs...)
		return nil
	})
	if err != nil {
		return a.Fail(runID, err)
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].TrialID != flagged[j].TrialID {
			return flagged[i].TrialID < flagged[j].TrialID
		}
		return flagged[i].StartIndex < flagged[j].StartIndex
	})

	summary := Summary{
		Source:       params.Source,
		Trials:       processed - failed,
		FailedTrials: failed,
		Events:       events.Summarize(all),
		ReasonCounts: reasons,
		Outliers:     flagged,
	}
	if err := a.MarkRunAsCompleted(runID, summary); err != nil {
		return fmt.Errorf("failed to mark run as completed: %w", err)
	}

	log.Printf("[OutlierAnalyzer] Run %d completed: %d trials, %d outlier events", runID, processed, len(flagged))
	return nil
}

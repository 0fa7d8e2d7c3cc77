package classification

import (
	"context"
	"fmt"
	"log"

	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	_ "github.com/jengzang/gaze-events-backend-go/internal/detector/idt"
	_ "github.com/jengzang/gaze-events-backend-go/internal/detector/ivt"
	"github.com/jengzang/gaze-events-backend-go/internal/events"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/stats"
)

// Analyzer labels every selected trial with one detector and stores the
// labels under the run's own label source
type Analyzer struct {
	*analysis.IncrementalAnalyzer
	defaults detector.Params
}

// Summary is the result summary stored with a completed run
type Summary struct {
	Algorithm    string                    `json:"algorithm"`
	Params       detector.Params           `json:"params"`
	LabelSource  string                    `json:"label_source"`
	Trials       int                       `json:"trials"`
	FailedTrials int                       `json:"failed_trials"`
	Samples      int                       `json:"samples"`
	LabelCounts  map[string]int            `json:"label_counts"`
	LabelEntropy float64                   `json:"label_entropy"`
	Events       map[string]events.Summary `json:"events"`
}

// NewAnalyzer returns the factory of the analyzer for a registered detector
func NewAnalyzer(algorithm string) analysis.AnalyzerFactory {
	return func(env analysis.Env) analysis.Analyzer {
		return &Analyzer{
			IncrementalAnalyzer: analysis.NewIncrementalAnalyzer(env, algorithm, 10),
			defaults:            env.Defaults[algorithm],
		}
	}
}

func init() {
	for _, name := range detector.Names() {
		analysis.RegisterAnalyzer(name, NewAnalyzer(name))
	}
}

// Analyze performs the classification run
func (a *Analyzer) Analyze(ctx context.Context, runID int64, mode string) error {
	log.Printf("[ClassificationAnalyzer] Starting %s (run_id=%d, mode=%s)", a.Name, runID, mode)

	run, err := a.GetRunInfo(runID)
	if err != nil {
		return err
	}
	if err := a.MarkRunAsRunning(runID); err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}

	params, err := a.ResolveParams(run, a.defaults)
	if err != nil {
		return a.Fail(runID, err)
	}
	source := run.LabelSource()

	trialIDs, err := a.SelectTrials(run, mode, source)
	if err != nil {
		return a.Fail(runID, err)
	}
	log.Printf("[ClassificationAnalyzer] Run %d: %d trials to classify", runID, len(trialIDs))

	counts := make(map[string]int)
	var allEvents []models.GazeEvent
	samples := 0

	processed, failed, err := a.ProcessInBatches(ctx, runID, len(trialIDs), func(ctx context.Context, i int) error {
		trial, err := a.Trials.GetByID(trialIDs[i])
		if err != nil {
			return err
		}
		labels, err := a.classify(trial, params)
		if err != nil {
			return err
		}
		if err := a.Labels.Replace(trial.ID, source, labels); err != nil {
			return err
		}

		evs, err := events.Build(labels, trial.Positions(), trial.Times(), events.Options{
			SamplingRateHz:   trial.SamplingRateHz,
			ViewerDistanceCm: trial.ViewerDistanceCm,
			PixelSizeCm:      trial.PixelSizeCm,
		})
		if err != nil {
			return err
		}
		for l, n := range models.CountLabels(labels) {
			counts[l.String()] += n
		}
		allEvents = append(allEvents, evs...)
		samples += len(labels)
		return nil
	})
	if err != nil {
		return a.Fail(runID, err)
	}

	summary := Summary{
		Algorithm:    a.Name,
		Params:       params,
		LabelSource:  source,
		Trials:       processed - failed,
		FailedTrials: failed,
		Samples:      samples,
		LabelCounts:  counts,
		LabelEntropy: stats.LabelEntropy(counts),
		Events:       events.Summarize(allEvents),
	}
	if err := a.MarkRunAsCompleted(runID, summary); err != nil {
		return fmt.Errorf("failed to mark run as completed: %w", err)
	}

	log.Printf("[ClassificationAnalyzer] Run %d completed: %d trials, %d failed, %d samples",
		runID, processed, failed, samples)
	return nil
}

// classify builds the detector for one trial's geometry and sampling rate
func (a *Analyzer) classify(trial *models.Trial, params detector.Params) ([]models.Label, error) {
	p := params
	if p.SamplingRateHz == nil && trial.SamplingRateHz > 0 {
		p.SamplingRateHz = detector.Float(trial.SamplingRateHz)
	}
	p, err := p.InPixels(trial.ViewerDistanceCm, trial.PixelSizeCm)
	if err != nil {
		return nil, err
	}

	d, err := detector.New(a.Name, p)
	if err != nil {
		return nil, err
	}
	return detector.ClassifySegments(d, trial.Positions())
}

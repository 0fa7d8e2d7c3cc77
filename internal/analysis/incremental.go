package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
)

// IncrementalAnalyzer processes a run's trials in batches with progress tracking
type IncrementalAnalyzer struct {
	*BaseAnalyzer
	BatchSize int // trials between progress updates
}

// NewIncrementalAnalyzer creates a new incremental analyzer
func NewIncrementalAnalyzer(env Env, name string, batchSize int) *IncrementalAnalyzer {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IncrementalAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(env, name),
		BatchSize:    batchSize,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// SelectTrials returns the trials a run has to classify. In incremental mode
// trials that already hold labels from source are skipped.
func (a *IncrementalAnalyzer) SelectTrials(run *models.ClassificationRun, mode, source string) ([]int64, error) {
	ids, err := a.Trials.ListIDs(run.DatasetID)
	if err != nil {
		return nil, err
	}
	if mode != models.RunModeIncremental {
		return ids, nil
	}

	done, err := a.Labels.TrialsWithSources(source)
	if err != nil {
		return nil, err
	}
	skip := make(map[int64]bool, len(done))
	for _, id := range done {
		skip[id] = true
	}

	pending := ids[:0:0]
	for _, id := range ids {
		if !skip[id] {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

// ProcessInBatches calls processFunc for items 0..total-1, updating the run's
// progress after each batch. A failing item is logged and counted; the run
// goes on. Cancelling ctx stops between items and returns ctx.Err().
func (a *IncrementalAnalyzer) ProcessInBatches(
	ctx context.Context,
	runID int64,
	total int,
	processFunc func(ctx context.Context, i int) error,
) (processed, failed int, err error) {
	if err := a.Runs.SetTotal(runID, total); err != nil {
		return 0, 0, err
	}

	for start := 0; start < total; start += a.BatchSize {
		end := start + a.BatchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			select {
			case <-ctx.Done():
				return processed, failed, ctx.Err()
			default:
			}

			if err := processFunc(ctx, i); err != nil {
				if ctx.Err() != nil {
					return processed, failed, ctx.Err()
				}
				log.Printf("[%s] Run %d: item %d failed: %v", a.Name, runID, i, err)
				failed++
			}
			processed++
		}

		percent := processed * 100 / total
		if err := a.Runs.UpdateProgress(runID, processed, failed, percent); err != nil {
			return processed, failed, fmt.Errorf("failed to update progress: %w", err)
		}
	}
	return processed, failed, nil
}

// Fail marks the run as failed unless the error is a cancellation, and returns err
func (a *IncrementalAnalyzer) Fail(runID int64, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if markErr := a.MarkRunAsFailed(runID, err.Error()); markErr != nil {
		log.Printf("[%s] Failed to mark run %d as failed: %v", a.Name, runID, markErr)
	}
	return err
}

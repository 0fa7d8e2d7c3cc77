package classification_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	"github.com/jengzang/gaze-events-backend-go/internal/analysis/agreement"
	_ "github.com/jengzang/gaze-events-backend-go/internal/analysis/classification"
	"github.com/jengzang/gaze-events-backend-go/internal/database"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	F = models.LabelFixation
	S = models.LabelSaccade
)

func setup(t *testing.T) (*sql.DB, analysis.Env) {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	samples := func(xs ...float64) []models.GazeSample {
		out := make([]models.GazeSample, len(xs))
		for i, x := range xs {
			out[i] = models.GazeSample{Index: i, TimeMs: float64(i) * 2, X: x, Y: 0}
		}
		return out
	}
	trials := []models.Trial{
		{
			SubjectID: "A", StimulusType: "img", StimulusName: "one",
			SamplingRateHz: 500, PixelSizeCm: 0.0378, ViewerDistanceCm: 67,
			Samples: samples(0, 0.1, 0.2, 50, 100, 100.1),
			Raters:  map[string][]models.Label{"RA": {F, F, F, S, S, F}},
		},
		{
			SubjectID: "B", StimulusType: "img", StimulusName: "two",
			SamplingRateHz: 500,
			Samples:        samples(0, 10, 10.1),
			Raters:         map[string][]models.Label{"RA": {S, S, F}},
		},
	}
	ds := &models.Dataset{UUID: "u", Name: "mini"}
	require.NoError(t, repository.NewDatasetRepository(db).Import(ds, trials))

	env := analysis.Env{
		DB:       db,
		Defaults: map[string]detector.Params{"ivt": {VelocityThreshold: detector.Float(0.5)}},
	}
	return db, env
}

func createRun(t *testing.T, db *sql.DB, run *models.ClassificationRun) *models.ClassificationRun {
	t.Helper()
	require.NoError(t, repository.NewRunRepository(db).Create(run))
	return run
}

func TestRegisteredSkills(t *testing.T) {
	assert.Equal(t, []string{"agreement", "idt", "ivt"}, analysis.Skills())
	assert.True(t, analysis.IsRegistered("ivt"))
	assert.Nil(t, analysis.GetAnalyzer("nh", analysis.Env{}))
}

func TestClassificationRun(t *testing.T) {
	db, env := setup(t)
	run := createRun(t, db, &models.ClassificationRun{SkillName: "ivt", ParamsJSON: `{"velocity_threshold": 1}`})

	a := analysis.GetAnalyzer("ivt", env)
	require.NotNil(t, a)
	require.NoError(t, a.Analyze(context.Background(), run.ID, models.RunModeFullRecompute))

	runs := repository.NewRunRepository(db)
	got, err := runs.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 2, got.TotalTrials)
	assert.Equal(t, 2, got.ProcessedTrials)
	assert.Equal(t, 0, got.FailedTrials)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got.ResultSummary), &summary))
	assert.Equal(t, "ivt", summary["algorithm"])
	assert.Equal(t, "ivt#1", summary["label_source"])
	assert.Equal(t, float64(9), summary["samples"])

	trialIDs, err := repository.NewLabelRepository(db).TrialsWithSources("RA", "ivt#1")
	require.NoError(t, err)
	require.Len(t, trialIDs, 2)

	labels, err := repository.NewLabelRepository(db).Get(trialIDs[0], "ivt#1")
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F, F, F, S, S, F}, labels)

	progress, err := a.GetProgress(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, progress.Percent)
	assert.Equal(t, models.RunStatusCompleted, progress.Status)
}

func TestIncrementalSkipsLabelledTrials(t *testing.T) {
	db, env := setup(t)
	run := createRun(t, db, &models.ClassificationRun{SkillName: "ivt"})
	a := analysis.GetAnalyzer("ivt", env)

	require.NoError(t, a.Analyze(context.Background(), run.ID, models.RunModeIncremental))
	require.NoError(t, a.Analyze(context.Background(), run.ID, models.RunModeIncremental))

	got, err := repository.NewRunRepository(db).GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalTrials, "second pass finds nothing left to do")
}

func TestProfileParamsAndFailedTrials(t *testing.T) {
	db, env := setup(t)
	profile := &models.ThresholdProfile{Name: "deg", SkillName: "ivt", ParamsJSON: `{"velocity_threshold": 1, "unit": "deg"}`}
	require.NoError(t, repository.NewProfileRepository(db).Create(profile))
	run := createRun(t, db, &models.ClassificationRun{SkillName: "ivt", ThresholdProfileID: profile.ID})

	require.NoError(t, analysis.GetAnalyzer("ivt", env).Analyze(context.Background(), run.ID, models.RunModeFullRecompute))

	got, err := repository.NewRunRepository(db).GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 1, got.FailedTrials, "trial without geometry cannot use degree thresholds")
}

func TestInvalidParamsFailRun(t *testing.T) {
	db, env := setup(t)
	run := createRun(t, db, &models.ClassificationRun{SkillName: "idt", ParamsJSON: `{"window_size": "x"}`})

	err := analysis.GetAnalyzer("idt", env).Analyze(context.Background(), run.ID, models.RunModeFullRecompute)
	require.Error(t, err)

	got, err := repository.NewRunRepository(db).GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestCancelledRun(t *testing.T) {
	db, env := setup(t)
	run := createRun(t, db, &models.ClassificationRun{SkillName: "idt"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := analysis.GetAnalyzer("idt", env).Analyze(ctx, run.ID, models.RunModeFullRecompute)
	assert.True(t, errors.Is(err, context.Canceled))

	got, err := repository.NewRunRepository(db).GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status, "the caller records the cancellation")
}

func TestAgreementRun(t *testing.T) {
	db, env := setup(t)
	ivtRun := createRun(t, db, &models.ClassificationRun{SkillName: "ivt", ParamsJSON: `{"velocity_threshold": 1}`})
	require.NoError(t, analysis.GetAnalyzer("ivt", env).Analyze(context.Background(), ivtRun.ID, models.RunModeFullRecompute))

	params := `{"reference": "RA", "candidates": ["ivt#1", "missing"]}`
	run := createRun(t, db, &models.ClassificationRun{SkillName: agreement.Name, ParamsJSON: params})
	require.NoError(t, analysis.GetAnalyzer(agreement.Name, env).Analyze(context.Background(), run.ID, ""))

	got, err := repository.NewRunRepository(db).GetByID(run.ID)
	require.NoError(t, err)
	require.Equal(t, models.RunStatusCompleted, got.Status)

	var reports []models.AgreementReport
	require.NoError(t, json.Unmarshal([]byte(got.ResultSummary), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "ivt#1", reports[0].Candidate)
	assert.Equal(t, 2, reports[0].Trials)
	assert.Equal(t, 9, reports[0].Samples)
	assert.Equal(t, 1.0, reports[0].Accuracy)
	assert.Equal(t, 1.0, reports[0].Kappa)
	assert.Equal(t, 0, reports[1].Samples)
}

func TestAgreementParams(t *testing.T) {
	_, classes, err := agreement.ParseParams(`{"reference": "RA", "candidates": ["MN"], "classes": ["fixation", "saccade", "pso"]}`)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F, S, models.LabelPSO}, classes)

	_, _, err = agreement.ParseParams(`{"candidates": ["MN"]}`)
	assert.Error(t, err)
	_, _, err = agreement.ParseParams(`{"reference": "RA"}`)
	assert.Error(t, err)
	_, _, err = agreement.ParseParams(`{"reference": "RA", "candidates": ["MN"], "classes": ["wink"]}`)
	assert.Error(t, err)
}

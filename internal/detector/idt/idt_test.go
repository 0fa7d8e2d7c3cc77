package idt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	F = models.LabelFixation
	S = models.LabelSaccade
)

func pts(xy ...float64) []models.Sample {
	out := make([]models.Sample, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, models.Sample{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestDispersion(t *testing.T) {
	window := pts(0, 0, 2, 0, 0, 3, 1, 1)
	assert.Equal(t, 5.0, Dispersion(window))
	assert.Equal(t, 0.0, Dispersion(pts(4, 4)))
	assert.Equal(t, 0.0, Dispersion(nil))
}

func TestClassify_DispersionBoundary(t *testing.T) {
	window := pts(0, 0, 2, 0, 0, 3, 1, 1)

	labels, err := Classify(window, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F, F, F, F}, labels, "dispersion equal to threshold qualifies")

	labels, err = Classify(window, 4.9, 4)
	require.NoError(t, err)
	// first window fails and slides; the remaining partial window (2+3=5) fails too
	assert.Equal(t, []models.Label{S, S, S, S}, labels)
}

func TestClassify_Empty(t *testing.T) {
	labels, err := Classify(nil, DefaultDispersionThreshold, 3)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestClassify_Singleton(t *testing.T) {
	labels, err := Classify(pts(10, 10), DefaultDispersionThreshold, 5)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F}, labels)
}

func TestClassify_GrowAndSlide(t *testing.T) {
	samples := pts(
		0, 0,
		0, 1,
		1, 0,
		1, 1, // window grows to here
		10, 10, // full window fails, slides by one
		20, 20,
		20, 21,
		21, 20,
		21, 21,
	)

	labels, err := Classify(samples, 2, 3)
	require.NoError(t, err)

	want := []models.Label{F, F, F, F, S, F, F, F, F}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_FailingPartialWindow(t *testing.T) {
	samples := pts(0, 0, 0, 1, 1, 0, 1, 1, 10, 10, 30, 30)

	labels, err := Classify(samples, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F, F, F, F, S, S}, labels)
}

func TestClassify_ShorterThanWindow(t *testing.T) {
	samples := pts(0, 0, 5, 5)

	labels, err := Classify(samples, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, S}, labels)

	labels, err = Classify(samples, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F, F}, labels)
}

func TestClassify_FixationRunsToEnd(t *testing.T) {
	samples := pts(50, 50, 0, 0, 0.5, 0.5, 0, 1, 1, 0, 0.2, 0.2)

	labels, err := Classify(samples, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, F, F, F, F, F}, labels)
}

func TestClassify_InvalidConfig(t *testing.T) {
	for _, ws := range []int{-1, 0, 1} {
		_, err := Classify(pts(0, 0, 1, 1), 1, ws)
		require.Error(t, err)
		assert.ErrorIs(t, err, detector.ErrInvalidConfig)

		var cfgErr *detector.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "window_size", cfgErr.Param)
	}

	_, err := Classify(pts(0, 0), math.NaN(), 3)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = Classify(pts(0, 0), math.Inf(1), 3)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestClassify_NonFiniteSample(t *testing.T) {
	_, err := Classify(pts(0, 0, math.Inf(-1), 1, 2, 2), 1, 2)

	var sampleErr *detector.SampleError
	require.ErrorAs(t, err, &sampleErr)
	assert.Equal(t, 1, sampleErr.Index)
	assert.ErrorIs(t, err, detector.ErrInvalidSample)
}

func TestClassify_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	thresholds := []float64{-1, 0, 0.5, 2, 5, 50}

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(60)
		samples := make([]models.Sample, n)
		x, y := 0.0, 0.0
		for i := range samples {
			if rng.Float64() < 0.1 {
				x += rng.Float64()*40 - 20
				y += rng.Float64()*40 - 20
			}
			samples[i] = models.Sample{X: x + rng.Float64(), Y: y + rng.Float64()}
		}
		threshold := thresholds[rng.Intn(len(thresholds))]
		windowSize := 2 + rng.Intn(8)

		labels, err := Classify(samples, threshold, windowSize)
		require.NoError(t, err)
		require.Len(t, labels, n)
		for _, l := range labels {
			require.Contains(t, []models.Label{F, S}, l)
		}

		again, err := Classify(samples, threshold, windowSize)
		require.NoError(t, err)
		require.Equal(t, labels, again)
	}
}

func TestClassify_NegativeThresholdIsAllSaccade(t *testing.T) {
	labels, err := Classify(pts(1, 1, 1, 1, 1, 1, 1, 1), -0.1, 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, S, S, S}, labels)
}

func TestNew(t *testing.T) {
	d, err := New(detector.Params{WindowSize: detector.Int(4)})
	require.NoError(t, err)
	assert.Equal(t, Name, d.Name())
	assert.Equal(t, &Detector{DispersionThreshold: DefaultDispersionThreshold, WindowSize: 4}, d)

	// 500 Hz over the default 100 ms window
	d, err = New(detector.Params{SamplingRateHz: detector.Float(500)})
	require.NoError(t, err)
	assert.Equal(t, 50, d.(*Detector).WindowSize)

	d, err = New(detector.Params{SamplingRateHz: detector.Float(1000), WindowDurationMs: detector.Float(20)})
	require.NoError(t, err)
	assert.Equal(t, 20, d.(*Detector).WindowSize)

	_, err = New(detector.Params{})
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = New(detector.Params{WindowSize: detector.Int(1)})
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	// 10 Hz over 100 ms gives a single sample
	_, err = New(detector.Params{SamplingRateHz: detector.Float(10)})
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestRegistered(t *testing.T) {
	d, err := detector.New(Name, detector.Params{WindowSize: detector.Int(4), DispersionThreshold: detector.Float(5)})
	require.NoError(t, err)

	labels, err := d.Detect(pts(0, 0, 2, 0, 0, 3, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F, F, F, F}, labels)
}

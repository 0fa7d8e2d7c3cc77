package ivt

import (
	"math"
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

func TestClassify_Empty(t *testing.T) {
	labels, err := Classify(nil, DefaultVelocityThreshold)
	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.NotNil(t, labels)
}

func TestClassify_Singleton(t *testing.T) {
	labels, err := Classify(pts(3, 7), DefaultVelocityThreshold)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{F}, labels)
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	samples := pts(0, 0, 3, 4) // displacement 5

	labels, err := Classify(samples, 5.0)
	require.NoError(t, err)
	assert.Equal(t, F, labels[1], "displacement equal to threshold is not a saccade")

	labels, err = Classify(samples, 4.9)
	require.NoError(t, err)
	assert.Equal(t, S, labels[1])
}

func TestClassify_Sequence(t *testing.T) {
	samples := pts(
		0, 0,
		0, 0.1,
		5, 5,
		5, 5.2,
		5.1, 5.2,
	)

	labels, err := Classify(samples, 0.5)
	require.NoError(t, err)

	want := []models.Label{F, F, S, F, F}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_FirstSampleCopiesSecond(t *testing.T) {
	labels, err := Classify(pts(0, 0, 3, 4, 3, 4), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, S, F}, labels)
}

func TestClassify_NonPositiveThreshold(t *testing.T) {
	labels, err := Classify(pts(0, 0, 1, 0, 1, 0, 2, 0), -1)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, S, S, S}, labels)

	// zero threshold: identical samples stay fixations
	labels, err = Classify(pts(0, 0, 1, 0, 1, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, S, F}, labels)
}

func TestClassify_InvalidThreshold(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Classify(pts(0, 0, 1, 1), v)
		require.Error(t, err)
		assert.ErrorIs(t, err, detector.ErrInvalidConfig)

		var cfgErr *detector.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "velocity_threshold", cfgErr.Param)
	}
}

func TestClassify_NonFiniteSample(t *testing.T) {
	samples := pts(0, 0, 1, 1, math.NaN(), 2)

	labels, err := Classify(samples, 0.5)
	assert.Nil(t, labels)
	assert.ErrorIs(t, err, detector.ErrInvalidSample)

	var sampleErr *detector.SampleError
	require.ErrorAs(t, err, &sampleErr)
	assert.Equal(t, 2, sampleErr.Index)
}

func TestClassify_LengthAndBinaryOutput(t *testing.T) {
	for n := 0; n < 40; n++ {
		samples := make([]models.Sample, n)
		for i := range samples {
			samples[i] = models.Sample{X: math.Sin(float64(i)) * 3, Y: float64(i % 5)}
		}

		labels, err := Classify(samples, 1.2)
		require.NoError(t, err)
		require.Len(t, labels, n)
		for _, l := range labels {
			assert.Contains(t, []models.Label{F, S}, l)
		}
	}
}

func TestClassify_IdempotentAndInputUntouched(t *testing.T) {
	samples := pts(0, 0, 2, 0, 2, 0.1, 9, 9, 9, 9)
	orig := append([]models.Sample(nil), samples...)

	first, err := Classify(samples, 0.5)
	require.NoError(t, err)
	second, err := Classify(samples, 0.5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, orig, samples)
}

func TestNew_Defaults(t *testing.T) {
	d, err := New(detector.Params{})
	require.NoError(t, err)
	assert.Equal(t, Name, d.Name())
	assert.Equal(t, DefaultVelocityThreshold, d.(*Detector).VelocityThreshold)

	d, err = New(detector.Params{VelocityThreshold: detector.Float(2)})
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.(*Detector).VelocityThreshold)

	_, err = New(detector.Params{VelocityThreshold: detector.Float(math.NaN())})
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestRegistered(t *testing.T) {
	d, err := detector.New(Name, detector.Params{VelocityThreshold: detector.Float(4.9)})
	require.NoError(t, err)

	labels, err := d.Detect(pts(0, 0, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, []models.Label{S, S}, labels)
}

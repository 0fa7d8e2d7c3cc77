package detector_test

import (
	"errors"
	"math"
	"testing"

	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	_ "github.com/jengzang/gaze-events-backend-go/internal/detector/idt"
	_ "github.com/jengzang/gaze-events-backend-go/internal/detector/ivt"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"idt", "ivt"}, detector.Names())
	assert.True(t, detector.IsRegistered("ivt"))
	assert.False(t, detector.IsRegistered("engbert"))
}

func TestNew_Unknown(t *testing.T) {
	_, err := detector.New("engbert", detector.Params{})
	assert.ErrorIs(t, err, detector.ErrUnknownDetector)
}

func TestParams_Merge(t *testing.T) {
	fallback := detector.Params{
		VelocityThreshold:   detector.Float(1),
		DispersionThreshold: detector.Float(2),
		WindowSize:          detector.Int(5),
		Unit:                detector.UnitPixels,
	}
	p := detector.Params{DispersionThreshold: detector.Float(9)}.Merge(fallback)

	assert.Equal(t, 1.0, *p.VelocityThreshold)
	assert.Equal(t, 9.0, *p.DispersionThreshold)
	assert.Equal(t, 5, *p.WindowSize)
	assert.Nil(t, p.SamplingRateHz)
	assert.Equal(t, detector.UnitPixels, p.Unit)
}

func TestParams_InPixels(t *testing.T) {
	p := detector.Params{VelocityThreshold: detector.Float(0.5)}
	same, err := p.InPixels(0, 0)
	require.NoError(t, err)
	assert.Equal(t, p, same)

	p = detector.Params{DispersionThreshold: detector.Float(1), Unit: detector.UnitDegrees}
	px, err := p.InPixels(60, 0.0275)
	require.NoError(t, err)
	assert.Equal(t, detector.UnitPixels, px.Unit)
	assert.InDelta(t, spatial.VisualAngleToPixels(1, 60, 0.0275), *px.DispersionThreshold, 1e-9)
	assert.Nil(t, px.VelocityThreshold)
	assert.Equal(t, 1.0, *p.DispersionThreshold, "receiver is not modified")

	_, err = p.InPixels(0, 0.0275)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = detector.Params{Unit: "furlong"}.InPixels(60, 0.03)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestParams_ResolveWindowSize(t *testing.T) {
	ws, err := detector.Params{WindowSize: detector.Int(7), SamplingRateHz: detector.Float(1000)}.ResolveWindowSize()
	require.NoError(t, err)
	assert.Equal(t, 7, ws)

	ws, err = detector.Params{SamplingRateHz: detector.Float(250)}.ResolveWindowSize()
	require.NoError(t, err)
	assert.Equal(t, 25, ws)

	_, err = detector.Params{SamplingRateHz: detector.Float(-1)}.ResolveWindowSize()
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = detector.Params{SamplingRateHz: detector.Float(500), WindowDurationMs: detector.Float(math.NaN())}.ResolveWindowSize()
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = detector.Params{SamplingRateHz: detector.Float(1e300)}.ResolveWindowSize()
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = detector.Params{SamplingRateHz: detector.Float(1000), WindowDurationMs: detector.Float(1e12)}.ResolveWindowSize()
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	ws, err = detector.Params{SamplingRateHz: detector.Float(1000), WindowDurationMs: detector.Float(detector.MaxWindowSize)}.ResolveWindowSize()
	require.NoError(t, err)
	assert.Equal(t, detector.MaxWindowSize, ws)
}

func TestClassifySegments(t *testing.T) {
	d, err := detector.New("ivt", detector.Params{VelocityThreshold: detector.Float(1)})
	require.NoError(t, err)

	nan := math.NaN()
	samples := []models.Sample{
		{X: 0, Y: 0},
		{X: 0, Y: 0.5},
		{X: nan, Y: nan},
		{X: 10, Y: 10},
		{X: 20, Y: 10},
		{X: 20, Y: 10.2},
		{X: nan, Y: 3},
	}

	labels, err := detector.ClassifySegments(d, samples)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{
		models.LabelFixation,
		models.LabelFixation,
		models.LabelUndefined,
		models.LabelSaccade,
		models.LabelSaccade,
		models.LabelFixation,
		models.LabelUndefined,
	}, labels)
}

func TestClassifySegments_AllMissing(t *testing.T) {
	d, err := detector.New("idt", detector.Params{WindowSize: detector.Int(3)})
	require.NoError(t, err)

	nan := math.NaN()
	labels, err := detector.ClassifySegments(d, []models.Sample{{X: nan, Y: nan}, {X: nan, Y: nan}})
	require.NoError(t, err)
	assert.Equal(t, []models.Label{models.LabelUndefined, models.LabelUndefined}, labels)
}

type failingDetector struct{}

func (failingDetector) Name() string { return "failing" }
func (failingDetector) Detect([]models.Sample) ([]models.Label, error) {
	return nil, errors.New("boom")
}

func TestClassifySegments_PropagatesErrors(t *testing.T) {
	_, err := detector.ClassifySegments(failingDetector{}, []models.Sample{{X: 1, Y: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment [0, 1)")
}

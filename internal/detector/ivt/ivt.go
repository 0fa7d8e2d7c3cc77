// Package ivt implements velocity-threshold identification (I-VT) of
// fixations and saccades.
//
// Velocity is taken as the Euclidean displacement between consecutive
// samples. With a fixed sampling interval this differs from a true velocity
// only by a constant factor, so the threshold is compared against the
// per-step displacement directly.
package ivt

import (
	"github.com/golang/geo/r2"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// Name is the registered algorithm name
const Name = "ivt"

// DefaultVelocityThreshold is the per-step displacement above which a sample is a saccade
const DefaultVelocityThreshold = 0.5

// Classify labels each sample Saccade when its displacement from the previous
// sample is strictly greater than velocityThreshold, and Fixation otherwise.
// The first sample has no predecessor and copies the label of the second.
// A single sample is a Fixation; an empty input yields an empty result.
//
// Non-positive thresholds are accepted. A non-finite threshold returns a
// *detector.ConfigError and a non-finite sample a *detector.SampleError.
func Classify(samples []models.Sample, velocityThreshold float64) ([]models.Label, error) {
	if err := detector.CheckThreshold("velocity_threshold", velocityThreshold); err != nil {
		return nil, err
	}
	if err := detector.CheckSamples(samples); err != nil {
		return nil, err
	}

	labels := make([]models.Label, len(samples))
	if len(samples) == 0 {
		return labels, nil
	}
	if len(samples) == 1 {
		labels[0] = models.LabelFixation
		return labels, nil
	}

	prev := r2.Point{X: samples[0].X, Y: samples[0].Y}
	for i := 1; i < len(samples); i++ {
		cur := r2.Point{X: samples[i].X, Y: samples[i].Y}
		if cur.Sub(prev).Norm() > velocityThreshold {
			labels[i] = models.LabelSaccade
		} else {
			labels[i] = models.LabelFixation
		}
		prev = cur
	}
	labels[0] = labels[1]

	return labels, nil
}

// Detector is an I-VT detector with a fixed threshold
type Detector struct {
	VelocityThreshold float64
}

// New creates an I-VT detector from params, defaulting the threshold
func New(p detector.Params) (detector.Detector, error) {
	threshold := DefaultVelocityThreshold
	if p.VelocityThreshold != nil {
		threshold = *p.VelocityThreshold
	}
	if err := detector.CheckThreshold("velocity_threshold", threshold); err != nil {
		return nil, err
	}
	return &Detector{VelocityThreshold: threshold}, nil
}

// Name returns the algorithm name
func (d *Detector) Name() string {
	return Name
}

// Detect classifies samples with the detector's threshold
func (d *Detector) Detect(samples []models.Sample) ([]models.Label, error) {
	return Classify(samples, d.VelocityThreshold)
}

func init() {
	detector.Register(Name, New)
}

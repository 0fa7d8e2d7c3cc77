// Package idt implements dispersion-threshold identification (I-DT) of
// fixations and saccades.
package idt

import (
	"github.com/golang/geo/r2"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// Name is the registered algorithm name
const Name = "idt"

// DefaultDispersionThreshold is the largest window dispersion still counted as a fixation
const DefaultDispersionThreshold = 3.5

// MinWindowSize is the smallest usable window; one point always has zero dispersion
const MinWindowSize = 2

// Dispersion returns the bounding box width plus height of the samples.
// It is not the diagonal.
func Dispersion(samples []models.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return boxDispersion(bounds(samples))
}

func bounds(samples []models.Sample) r2.Rect {
	rect := r2.EmptyRect()
	for _, s := range samples {
		rect = rect.AddPoint(r2.Point{X: s.X, Y: s.Y})
	}
	return rect
}

func boxDispersion(rect r2.Rect) float64 {
	size := rect.Size()
	return size.X + size.Y
}

// Classify labels samples with a window of windowSize samples that slides
// over the sequence.
//
// A window whose dispersion is at most dispersionThreshold grows to the right
// one sample at a time while the dispersion stays within the threshold; all
// of its samples become Fixation and the next window starts after it. A full
// window above the threshold labels only its leftmost sample Saccade and
// slides by one. When fewer than windowSize samples remain, the remainder is
// tested once: Fixation if within the threshold, otherwise every remaining
// sample is a Saccade. Every step consumes at least one sample.
//
// windowSize below MinWindowSize or a non-finite threshold returns a
// *detector.ConfigError; a non-finite sample returns a *detector.SampleError.
func Classify(samples []models.Sample, dispersionThreshold float64, windowSize int) ([]models.Label, error) {
	if windowSize < MinWindowSize {
		return nil, &detector.ConfigError{Param: "window_size", Value: windowSize, Reason: "must be at least 2"}
	}
	if err := detector.CheckThreshold("dispersion_threshold", dispersionThreshold); err != nil {
		return nil, err
	}
	if err := detector.CheckSamples(samples); err != nil {
		return nil, err
	}

	n := len(samples)
	labels := make([]models.Label, n)

	start := 0
	for start < n {
		end := start + windowSize
		if end > n {
			end = n
		}
		box := bounds(samples[start:end])

		if boxDispersion(box) <= dispersionThreshold {
			// grow
			for end < n {
				grown := box.AddPoint(r2.Point{X: samples[end].X, Y: samples[end].Y})
				if boxDispersion(grown) > dispersionThreshold {
					break
				}
				box = grown
				end++
			}
			fill(labels[start:end], models.LabelFixation)
			start = end
			continue
		}

		if end-start < windowSize {
			fill(labels[start:], models.LabelSaccade)
			break
		}

		// slide
		labels[start] = models.LabelSaccade
		start++
	}

	return labels, nil
}

func fill(labels []models.Label, l models.Label) {
	for i := range labels {
		labels[i] = l
	}
}

// Detector is an I-DT detector with fixed threshold and window size
type Detector struct {
	DispersionThreshold float64
	WindowSize          int
}

// New creates an I-DT detector from params.
// The window size comes from window_size, or from sampling_rate_hz and window_duration_ms.
func New(p detector.Params) (detector.Detector, error) {
	threshold := DefaultDispersionThreshold
	if p.DispersionThreshold != nil {
		threshold = *p.DispersionThreshold
	}
	if err := detector.CheckThreshold("dispersion_threshold", threshold); err != nil {
		return nil, err
	}

	windowSize, err := p.ResolveWindowSize()
	if err != nil {
		return nil, err
	}
	if windowSize < MinWindowSize {
		return nil, &detector.ConfigError{Param: "window_size", Value: windowSize, Reason: "must be at least 2"}
	}

	return &Detector{DispersionThreshold: threshold, WindowSize: windowSize}, nil
}

// Name returns the algorithm name
func (d *Detector) Name() string {
	return Name
}

// Detect classifies samples with the detector's threshold and window
func (d *Detector) Detect(samples []models.Sample) ([]models.Label, error) {
	return Classify(samples, d.DispersionThreshold, d.WindowSize)
}

func init() {
	detector.Register(Name, New)
}

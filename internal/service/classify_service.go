package service

import (
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	_ "github.com/jengzang/gaze-events-backend-go/internal/detector/idt"
	_ "github.com/jengzang/gaze-events-backend-go/internal/detector/ivt"
	"github.com/jengzang/gaze-events-backend-go/internal/events"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
)

// ClassifyService labels sample sequences sent by clients. Nothing is stored.
type ClassifyService struct {
	defaults         map[string]detector.Params
	screen           spatial.ScreenMonitor
	viewerDistanceCm float64
}

// NewClassifyService creates a classify service with per-algorithm default params
// and the screen geometry used for degree thresholds
func NewClassifyService(defaults map[string]detector.Params, screen spatial.ScreenMonitor, viewerDistanceCm float64) *ClassifyService {
	return &ClassifyService{defaults: defaults, screen: screen, viewerDistanceCm: viewerDistanceCm}
}

// ClassifyRequest is the input of one classification
type ClassifyRequest struct {
	Samples        []models.Sample `json:"samples"`
	Params         detector.Params `json:"params"`
	SamplingRateHz float64         `json:"sampling_rate_hz,omitempty"`
	TimesMs        []float64       `json:"times_ms,omitempty"`

	// Geometry for degree thresholds and event amplitudes; the configured
	// screen is used when omitted
	ViewerDistanceCm float64 `json:"viewer_distance_cm,omitempty"`
	PixelSizeCm      float64 `json:"pixel_size_cm,omitempty"`

	// Events adds the grouped events to the result
	Events bool `json:"events,omitempty"`
	// Strict rejects missing samples instead of labelling them undefined
	Strict bool `json:"strict,omitempty"`
}

// ClassifyResult is the output of one classification
type ClassifyResult struct {
	Algorithm string                    `json:"algorithm"`
	Params    detector.Params           `json:"params"`
	Labels    []models.Label            `json:"labels"`
	Counts    map[string]int            `json:"counts"`
	Events    []models.GazeEvent        `json:"events,omitempty"`
	Summary   map[string]events.Summary `json:"summary,omitempty"`
}

// Algorithms lists the registered detectors with their default params
func (s *ClassifyService) Algorithms() map[string]detector.Params {
	out := make(map[string]detector.Params)
	for _, name := range detector.Names() {
		out[name] = s.defaults[name]
	}
	return out
}

// Classify runs one detector over the request samples
func (s *ClassifyService) Classify(algorithm string, req ClassifyRequest) (*ClassifyResult, error) {
	if !detector.IsRegistered(algorithm) {
		return nil, invalidf("unknown algorithm %q", algorithm)
	}
	if req.TimesMs != nil && len(req.TimesMs) != len(req.Samples) {
		return nil, invalidf("times_ms has %d entries for %d samples", len(req.TimesMs), len(req.Samples))
	}

	distance, pixelSize := req.ViewerDistanceCm, req.PixelSizeCm
	if distance <= 0 {
		distance = s.viewerDistanceCm
	}
	if pixelSize <= 0 {
		pixelSize = s.screen.PixelSize()
	}

	params := req.Params.Merge(s.defaults[algorithm])
	if params.SamplingRateHz == nil && req.SamplingRateHz > 0 {
		params.SamplingRateHz = detector.Float(req.SamplingRateHz)
	}
	pixelParams, err := params.InPixels(distance, pixelSize)
	if err != nil {
		return nil, err
	}

	d, err := detector.New(algorithm, pixelParams)
	if err != nil {
		return nil, err
	}
	var labels []models.Label
	if req.Strict {
		labels, err = d.Detect(req.Samples)
	} else {
		labels, err = detector.ClassifySegments(d, req.Samples)
	}
	if err != nil {
		return nil, err
	}

	result := &ClassifyResult{
		Algorithm: algorithm,
		Params:    params,
		Labels:    labels,
		Counts:    make(map[string]int),
	}
	for l, n := range models.CountLabels(labels) {
		result.Counts[l.String()] = n
	}

	if req.Events {
		evs, err := events.Build(labels, req.Samples, req.TimesMs, events.Options{
			SamplingRateHz:   req.SamplingRateHz,
			ViewerDistanceCm: distance,
			PixelSizeCm:      pixelSize,
		})
		if err != nil {
			return nil, err
		}
		result.Events = evs
		result.Summary = events.Summarize(evs)
	}
	return result, nil
}

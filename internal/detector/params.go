package detector

import (
	"fmt"
	"math"

	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
)

// Threshold units
const (
	UnitPixels  = "px"
	UnitDegrees = "deg"
)

// DefaultWindowDurationMs is the IDT window used when only a sampling rate is known.
// It equals the minimum fixation duration.
const DefaultWindowDurationMs = 100.0

// MaxWindowSize bounds the IDT window derived from a sampling rate and duration
const MaxWindowSize = 1 << 20

// Params holds the tunable parameters of every detector.
// Fields omitted from JSON or YAML keep the detector's default.
type Params struct {
	VelocityThreshold   *float64 `json:"velocity_threshold,omitempty" yaml:"velocity_threshold,omitempty"`
	DispersionThreshold *float64 `json:"dispersion_threshold,omitempty" yaml:"dispersion_threshold,omitempty"`
	WindowSize          *int     `json:"window_size,omitempty" yaml:"window_size,omitempty"`
	WindowDurationMs    *float64 `json:"window_duration_ms,omitempty" yaml:"window_duration_ms,omitempty"`
	SamplingRateHz      *float64 `json:"sampling_rate_hz,omitempty" yaml:"sampling_rate_hz,omitempty"`
	Unit                string   `json:"unit,omitempty" yaml:"unit,omitempty"` // px (default) or deg
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Merge returns p with every unset field taken from fallback
func (p Params) Merge(fallback Params) Params {
	out := p
	if out.VelocityThreshold == nil {
		out.VelocityThreshold = fallback.VelocityThreshold
	}
	if out.DispersionThreshold == nil {
		out.DispersionThreshold = fallback.DispersionThreshold
	}
	if out.WindowSize == nil {
		out.WindowSize = fallback.WindowSize
	}
	if out.WindowDurationMs == nil {
		out.WindowDurationMs = fallback.WindowDurationMs
	}
	if out.SamplingRateHz == nil {
		out.SamplingRateHz = fallback.SamplingRateHz
	}
	if out.Unit == "" {
		out.Unit = fallback.Unit
	}
	return out
}

// InPixels converts thresholds given in degrees of visual angle to pixels.
// Params already in pixels are returned unchanged.
func (p Params) InPixels(viewerDistanceCm, pixelSizeCm float64) (Params, error) {
	switch p.Unit {
	case "", UnitPixels:
		return p, nil
	case UnitDegrees:
	default:
		return p, &ConfigError{Param: "unit", Value: p.Unit, Reason: "must be px or deg"}
	}

	if !(viewerDistanceCm > 0) || !(pixelSizeCm > 0) {
		return p, &ConfigError{
			Param:  "unit",
			Value:  p.Unit,
			Reason: fmt.Sprintf("degree thresholds need viewer distance and pixel size (got %v cm, %v cm)", viewerDistanceCm, pixelSizeCm),
		}
	}

	out := p
	out.Unit = UnitPixels
	if p.VelocityThreshold != nil {
		out.VelocityThreshold = Float(spatial.VisualAngleToPixels(*p.VelocityThreshold, viewerDistanceCm, pixelSizeCm))
	}
	if p.DispersionThreshold != nil {
		out.DispersionThreshold = Float(spatial.VisualAngleToPixels(*p.DispersionThreshold, viewerDistanceCm, pixelSizeCm))
	}
	return out, nil
}

// ResolveWindowSize returns the IDT window size in samples.
// An explicit window size wins; otherwise the window duration is converted
// with the sampling rate.
func (p Params) ResolveWindowSize() (int, error) {
	if p.WindowSize != nil {
		return *p.WindowSize, nil
	}
	if p.SamplingRateHz == nil {
		return 0, &ConfigError{Param: "window_size", Value: nil, Reason: "set window_size or sampling_rate_hz"}
	}

	sr := *p.SamplingRateHz
	if math.IsNaN(sr) || math.IsInf(sr, 0) || sr <= 0 {
		return 0, &ConfigError{Param: "sampling_rate_hz", Value: sr, Reason: "must be a positive number"}
	}
	duration := DefaultWindowDurationMs
	if p.WindowDurationMs != nil {
		duration = *p.WindowDurationMs
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, &ConfigError{Param: "window_duration_ms", Value: duration, Reason: "must be a positive number"}
	}
	size := sr / 1000 * duration
	if size > MaxWindowSize {
		return 0, &ConfigError{Param: "window_duration_ms", Value: duration,
			Reason: fmt.Sprintf("window of %.0f samples at %v Hz exceeds %d", size, sr, MaxWindowSize)}
	}
	return int(size), nil
}

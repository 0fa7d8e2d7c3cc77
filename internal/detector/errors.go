package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigError
	ErrInvalidConfig = errors.New("invalid detector configuration")
	// ErrInvalidSample is wrapped by every SampleError
	ErrInvalidSample = errors.New("invalid gaze sample")
	// ErrUnknownDetector is returned for an unregistered algorithm name
	ErrUnknownDetector = errors.New("unknown detector")
)

// ConfigError reports a detector parameter that cannot be used.
// It is returned before any sample is inspected.
type ConfigError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Param, e.Value, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidConfig)
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// SampleError reports a sample with a missing or non-numeric coordinate.
// Detectors reject such input instead of comparing against NaN.
type SampleError struct {
	Index  int
	Sample models.Sample
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d has non-finite coordinates (%v, %v)", e.Index, e.Sample.X, e.Sample.Y)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidSample)
func (e *SampleError) Unwrap() error {
	return ErrInvalidSample
}

// CheckThreshold returns a ConfigError unless v is a finite real number
func CheckThreshold(param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ConfigError{Param: param, Value: v, Reason: "must be a finite number"}
	}
	return nil
}

// CheckSamples returns a SampleError for the first non-finite sample
func CheckSamples(samples []models.Sample) error {
	for i, s := range samples {
		if !s.Finite() {
			return &SampleError{Index: i, Sample: s}
		}
	}
	return nil
}

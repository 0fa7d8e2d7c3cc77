package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// GazeEvent is a maximal run of samples sharing one label
type GazeEvent struct {
	Type       Label   `json:"type"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"` // inclusive
	StartMs    float64 `json:"start_ms"`
	EndMs      float64 `json:"end_ms"`
	DurationMs float64 `json:"duration_ms"`

	// Spatial summary over the finite samples of the event
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
	Dispersion   float64 `json:"dispersion"`    // bounding box width + height
	PathLength   float64 `json:"path_length"`   // summed step length
	Amplitude    float64 `json:"amplitude"`     // start to end distance
	AmplitudeDeg float64 `json:"amplitude_deg,omitempty"`
	Azimuth      float64 `json:"azimuth"`       // start to end direction, degrees
	PeakVelocity float64 `json:"peak_velocity"` // max per-sample displacement per second
	MeanVelocity float64 `json:"mean_velocity"`

	// PeakVelocityDeg is the peak angular velocity in degrees per second,
	// set when the screen geometry is known
	PeakVelocityDeg float64 `json:"peak_velocity_deg,omitempty"`

	Outlier        bool     `json:"outlier"`
	OutlierReasons []string `json:"outlier_reasons,omitempty"`
}

// MarshalJSON writes the centre as null when the event has no finite sample
func (e GazeEvent) MarshalJSON() ([]byte, error) {
	type plain GazeEvent
	return json.Marshal(struct {
		plain
		CenterX *float64 `json:"center_x"`
		CenterY *float64 `json:"center_y"`
	}{plain(e), finiteOrNil(e.CenterX), finiteOrNil(e.CenterY)})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SampleCount returns the number of samples in the event
func (e GazeEvent) SampleCount() int {
	return e.EndIndex - e.StartIndex + 1
}

func (e GazeEvent) String() string {
	return fmt.Sprintf("%s[%d..%d] %.1fms", e.Type, e.StartIndex, e.EndIndex, e.DurationMs)
}

// RunLabelSource is the label source name under which a run stores its output
func RunLabelSource(skillName string, runID int64) string {
	return fmt.Sprintf("%s#%d", skillName, runID)
}

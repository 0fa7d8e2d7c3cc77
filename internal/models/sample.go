package models

import (
	"encoding/json"
	"math"
)

// Sample is a gaze position at one sampling tick.
// Samples are uniformly spaced in time; only their order matters to the detectors.
// In JSON a missing coordinate is null.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are real numbers
func (s Sample) Finite() bool {
	return !math.IsNaN(s.X) && !math.IsNaN(s.Y) && !math.IsInf(s.X, 0) && !math.IsInf(s.Y, 0)
}

type jsonPoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonPoint{finiteOrNil(s.X), finiteOrNil(s.Y)})
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	var p jsonPoint
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.X, s.Y = nanIfNil(p.X), nanIfNil(p.Y)
	return nil
}

func nanIfNil(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// GazeSample is a stored sample row of a trial.
// Missing coordinates are NaN in memory and NULL in the database.
type GazeSample struct {
	Index  int     `json:"index"`
	TimeMs float64 `json:"time_ms"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (g GazeSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index  int      `json:"index"`
		TimeMs float64  `json:"time_ms"`
		X      *float64 `json:"x"`
		Y      *float64 `json:"y"`
	}{g.Index, g.TimeMs, finiteOrNil(g.X), finiteOrNil(g.Y)})
}

// Position returns the sample coordinates
func (g GazeSample) Position() Sample {
	return Sample{X: g.X, Y: g.Y}
}

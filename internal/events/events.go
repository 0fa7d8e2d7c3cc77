package events

import (
	"fmt"
	"math"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
	"github.com/jengzang/gaze-events-backend-go/internal/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DurationBounds is the plausible duration range of one event type in milliseconds
type DurationBounds struct {
	MinMs float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs float64 `json:"max_ms" yaml:"max_ms"`
}

// DefaultBounds holds the duration ranges outside of which an event is flagged as an outlier
var DefaultBounds = map[models.Label]DurationBounds{
	models.LabelFixation: {MinMs: 50, MaxMs: 2000},
	models.LabelSaccade:  {MinMs: 5, MaxMs: 500},
}

var fallbackBounds = DurationBounds{MinMs: 5, MaxMs: 2500}

// Options controls how events are summarised
type Options struct {
	// SamplingRateHz is used to synthesise timestamps when none are given
	SamplingRateHz float64

	// Screen geometry for AmplitudeDeg; left zero the angle is not computed
	ViewerDistanceCm float64
	PixelSizeCm      float64

	// Bounds overrides DefaultBounds per label
	Bounds map[models.Label]DurationBounds

	// MaxPeakVelocityDeg flags events whose peak angular velocity exceeds it.
	// Zero disables the check; it needs the screen geometry.
	MaxPeakVelocityDeg float64
}

func (o Options) bounds(l models.Label) (DurationBounds, bool) {
	if b, ok := o.Bounds[l]; ok {
		return b, true
	}
	if b, ok := DefaultBounds[l]; ok {
		return b, true
	}
	if l == models.LabelUndefined {
		return DurationBounds{}, false
	}
	return fallbackBounds, true
}

// Build groups a label sequence into events, one per maximal run of equal labels.
// timesMs may be nil, in which case timestamps come from opts.SamplingRateHz
// (or the sample index when no rate is known).
func Build(labels []models.Label, samples []models.Sample, timesMs []float64, opts Options) ([]models.GazeEvent, error) {
	if len(labels) != len(samples) {
		return nil, fmt.Errorf("labels and samples differ in length: %d != %d", len(labels), len(samples))
	}
	if timesMs == nil {
		timesMs = SyntheticTimes(len(samples), opts.SamplingRateHz)
	} else if len(timesMs) != len(samples) {
		return nil, fmt.Errorf("timestamps and samples differ in length: %d != %d", len(timesMs), len(samples))
	}

	var out []models.GazeEvent
	start := 0
	for i := 1; i <= len(labels); i++ {
		if i < len(labels) && labels[i] == labels[start] {
			continue
		}
		out = append(out, summarise(labels[start], start, i-1, samples[start:i], timesMs[start:i], opts))
		start = i
	}
	return out, nil
}

// SyntheticTimes returns n timestamps in milliseconds spaced by the sampling period.
// A non-positive rate yields one millisecond per sample.
func SyntheticTimes(n int, samplingRateHz float64) []float64 {
	step := 1.0
	if samplingRateHz > 0 {
		step = spatial.MillisecondsPerSecond / samplingRateHz
	}
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * step
	}
	return times
}

func summarise(label models.Label, start, end int, samples []models.Sample, times []float64, opts Options) models.GazeEvent {
	e := models.GazeEvent{
		Type:       label,
		StartIndex: start,
		EndIndex:   end,
		StartMs:    times[0],
		EndMs:      times[len(times)-1],
	}
	e.DurationMs = e.EndMs - e.StartMs

	if c, ok := spatial.Centroid(samples); ok {
		e.CenterX, e.CenterY = c.X, c.Y
	} else {
		e.CenterX, e.CenterY = math.NaN(), math.NaN()
	}
	e.Dispersion = spatial.Dispersion(samples)
	e.PathLength = spatial.PathLength(samples)

	if first, last, ok := endpoints(samples); ok {
		e.Amplitude = spatial.Distance(first, last)
		e.Azimuth = spatial.Direction(first, last)
		if opts.ViewerDistanceCm > 0 && opts.PixelSizeCm > 0 {
			e.AmplitudeDeg = spatial.PixelsToVisualAngle(e.Amplitude, opts.ViewerDistanceCm, opts.PixelSizeCm)
		}
	}

	velocities := finite(spatial.Velocities(samples, times))
	if len(velocities) > 0 {
		e.PeakVelocity = floats.Max(velocities)
		e.MeanVelocity = stat.Mean(velocities, nil)
	}
	if opts.ViewerDistanceCm > 0 && opts.PixelSizeCm > 0 {
		angular := finite(spatial.AngularVelocities(samples, times, opts.ViewerDistanceCm, opts.PixelSizeCm))
		if len(angular) > 0 {
			e.PeakVelocityDeg = floats.Max(angular)
		}
	}

	if b, ok := opts.bounds(label); ok {
		if e.DurationMs < b.MinMs {
			e.OutlierReasons = append(e.OutlierReasons, "min_duration")
		}
		if e.DurationMs > b.MaxMs {
			e.OutlierReasons = append(e.OutlierReasons, "max_duration")
		}
	}
	if opts.MaxPeakVelocityDeg > 0 && e.PeakVelocityDeg > opts.MaxPeakVelocityDeg {
		e.OutlierReasons = append(e.OutlierReasons, "max_peak_velocity")
	}
	e.Outlier = len(e.OutlierReasons) > 0
	return e
}

func endpoints(samples []models.Sample) (first, last models.Sample, ok bool) {
	i, j := 0, len(samples)-1
	for i <= j && !samples[i].Finite() {
		i++
	}
	for j >= i && !samples[j].Finite() {
		j--
	}
	if i > j {
		return first, last, false
	}
	return samples[i], samples[j], true
}

func finite(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Filter returns the events of the given types. No types keeps every event.
func Filter(events []models.GazeEvent, types ...models.Label) []models.GazeEvent {
	if len(types) == 0 {
		return events
	}
	var out []models.GazeEvent
	for _, e := range events {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Summary aggregates events of one type
type Summary struct {
	Count            int     `json:"count"`
	Outliers         int     `json:"outliers"`
	MeanDurationMs   float64 `json:"mean_duration_ms"`
	StdDurationMs    float64 `json:"std_duration_ms"`
	MedianDurationMs float64 `json:"median_duration_ms"`
	P95DurationMs    float64 `json:"p95_duration_ms"`
	MeanAmplitude    float64 `json:"mean_amplitude"`
	MeanPathLength   float64 `json:"mean_path_length"`

	// Direction of the events that moved; consistency is 1 when all point the same way
	MeanAzimuth          float64 `json:"mean_azimuth"`
	DirectionConsistency float64 `json:"direction_consistency"`
}

type group struct {
	durations, amplitudes, paths, azimuths []float64
	outliers                               int
}

// Summarize returns per-type statistics keyed by label name
func Summarize(events []models.GazeEvent) map[string]Summary {
	groups := make(map[models.Label]*group)
	for _, e := range events {
		g := groups[e.Type]
		if g == nil {
			g = &group{}
			groups[e.Type] = g
		}
		g.durations = append(g.durations, e.DurationMs)
		g.amplitudes = append(g.amplitudes, e.Amplitude)
		g.paths = append(g.paths, e.PathLength)
		if e.Amplitude > 0 {
			g.azimuths = append(g.azimuths, e.Azimuth)
		}
		if e.Outlier {
			g.outliers++
		}
	}

	out := make(map[string]Summary, len(groups))
	for l, g := range groups {
		d := stats.Describe(g.durations)
		out[l.String()] = Summary{
			Count:                len(g.durations),
			Outliers:             g.outliers,
			MeanDurationMs:       d.Mean,
			StdDurationMs:        d.StdDev,
			MedianDurationMs:     d.Median,
			P95DurationMs:        d.P95,
			MeanAmplitude:        stat.Mean(g.amplitudes, nil),
			MeanPathLength:       stat.Mean(g.paths, nil),
			MeanAzimuth:          spatial.CircularMean(g.azimuths, nil),
			DirectionConsistency: spatial.MeanResultantLength(g.azimuths),
		}
	}
	return out
}

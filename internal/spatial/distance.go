package spatial

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// MillisecondsPerSecond converts sample timestamps to rates
const MillisecondsPerSecond = 1000.0

// Point converts a gaze sample to a planar point
func Point(s models.Sample) r2.Point {
	return r2.Point{X: s.X, Y: s.Y}
}

// Distance returns the Euclidean distance between two samples in pixels
func Distance(a, b models.Sample) float64 {
	return Point(b).Sub(Point(a)).Norm()
}

// Direction returns the angle of the step from a to b in degrees (0-360),
// where 0 points along +x and angles grow towards +y
func Direction(a, b models.Sample) float64 {
	d := Point(b).Sub(Point(a))
	deg := math.Atan2(d.Y, d.X) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Displacements returns the distance between each pair of subsequent samples.
// The result has len(samples)-1 elements (none for fewer than two samples).
func Displacements(samples []models.Sample) []float64 {
	if len(samples) < 2 {
		return nil
	}
	out := make([]float64, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		out[i-1] = Distance(samples[i-1], samples[i])
	}
	return out
}

// Velocities returns per-sample velocity in pixels per second.
// The first element is NaN since there is no preceding sample.
func Velocities(samples []models.Sample, timesMs []float64) []float64 {
	out := make([]float64, len(samples))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(samples) && i < len(timesMs); i++ {
		dt := (timesMs[i] - timesMs[i-1]) / MillisecondsPerSecond
		if dt <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = Distance(samples[i-1], samples[i]) / dt
	}
	for i := len(timesMs); i < len(samples); i++ {
		out[i] = math.NaN()
	}
	return out
}

// AngularVelocities returns per-sample angular velocity in degrees per second,
// given the viewer distance and pixel size in centimeters.
// The first element is NaN since there is no preceding sample.
func AngularVelocities(samples []models.Sample, timesMs []float64, distanceCm, pixelSizeCm float64) []float64 {
	out := make([]float64, len(samples))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(samples); i++ {
		if i >= len(timesMs) {
			out[i] = math.NaN()
			continue
		}
		dt := (timesMs[i] - timesMs[i-1]) / MillisecondsPerSecond
		if dt <= 0 {
			out[i] = math.NaN()
			continue
		}
		angle := PixelsToVisualAngle(Distance(samples[i-1], samples[i]), distanceCm, pixelSizeCm)
		out[i] = angle / dt
	}
	return out
}

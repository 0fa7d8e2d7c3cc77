package spatial

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// BoundingBox returns the axis-aligned bounding box of the finite samples.
// The result is empty when no sample is finite.
func BoundingBox(samples []models.Sample) r2.Rect {
	rect := r2.EmptyRect()
	for _, s := range samples {
		if !s.Finite() {
			continue
		}
		rect = rect.AddPoint(Point(s))
	}
	return rect
}

// Dispersion returns bounding box width plus height of the finite samples
func Dispersion(samples []models.Sample) float64 {
	rect := BoundingBox(samples)
	if rect.IsEmpty() {
		return 0
	}
	size := rect.Size()
	return size.X + size.Y
}

// Centroid returns the mean position of the finite samples.
// ok is false when no sample is finite.
func Centroid(samples []models.Sample) (center models.Sample, ok bool) {
	var sum r2.Point
	n := 0
	for _, s := range samples {
		if !s.Finite() {
			continue
		}
		sum = sum.Add(Point(s))
		n++
	}
	if n == 0 {
		return models.Sample{}, false
	}
	mean := sum.Mul(1 / float64(n))
	return models.Sample{X: mean.X, Y: mean.Y}, true
}

// PathLength returns the summed step length over finite consecutive samples
func PathLength(samples []models.Sample) float64 {
	total := 0.0
	for _, d := range Displacements(samples) {
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			total += d
		}
	}
	return total
}

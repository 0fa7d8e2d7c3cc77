package spatial

import (
	"math"
)

// CircularMean calculates the mean of angles given in degrees.
// weights can be nil for equal weights. Returns the mean in degrees (0-360).
func CircularMean(anglesDeg []float64, weights []float64) float64 {
	if len(anglesDeg) == 0 {
		return 0
	}

	var sumSin, sumCos float64
	for i, angle := range anglesDeg {
		w := 1.0
		if weights != nil && i < len(weights) {
			w = weights[i]
		}
		rad := angle * math.Pi / 180
		sumSin += w * math.Sin(rad)
		sumCos += w * math.Cos(rad)
	}

	mean := math.Atan2(sumSin, sumCos) * 180 / math.Pi
	return math.Mod(mean+360, 360)
}

// MeanResultantLength measures how concentrated the angles are (0 = uniform, 1 = identical)
func MeanResultantLength(anglesDeg []float64) float64 {
	if len(anglesDeg) == 0 {
		return 0
	}

	var sumSin, sumCos float64
	for _, angle := range anglesDeg {
		rad := angle * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}
	return math.Hypot(sumSin, sumCos) / float64(len(anglesDeg))
}

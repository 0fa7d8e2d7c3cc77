package spatial

import (
	"fmt"
	"math"
)

// ScreenMonitor describes the display used during a recording
type ScreenMonitor struct {
	WidthCm       float64 `json:"width_cm" yaml:"width_cm"`
	HeightCm      float64 `json:"height_cm" yaml:"height_cm"`
	RefreshRateHz float64 `json:"refresh_rate_hz" yaml:"refresh_rate_hz"`
	ResolutionX   int     `json:"resolution_x" yaml:"resolution_x"`
	ResolutionY   int     `json:"resolution_y" yaml:"resolution_y"`
}

// DefaultScreenMonitor returns the lab monitor used when a recording does not carry its own geometry
func DefaultScreenMonitor() ScreenMonitor {
	return ScreenMonitor{
		WidthCm:       53.5,
		HeightCm:      31,
		RefreshRateHz: 60,
		ResolutionX:   1920,
		ResolutionY:   1080,
	}
}

// PixelSize returns the approximate edge of one square pixel in centimeters
func (m ScreenMonitor) PixelSize() float64 {
	return PixelSizeFor(m.WidthCm, m.HeightCm, m.ResolutionX, m.ResolutionY)
}

func (m ScreenMonitor) String() string {
	return fmt.Sprintf("ScreenMonitor (%dx%d@%gHz)", m.ResolutionX, m.ResolutionY, m.RefreshRateHz)
}

// PixelSizeFor returns diagonal length in cm divided by diagonal length in pixels
func PixelSizeFor(widthCm, heightCm float64, resX, resY int) float64 {
	diagPx := math.Hypot(float64(resX), float64(resY))
	if diagPx == 0 {
		return math.NaN()
	}
	return math.Hypot(widthCm, heightCm) / diagPx
}

// VisualAngleToPixels returns the number of pixels spanned by a visual angle of deg degrees
// for a viewer at distanceCm from the screen. Non-finite angles yield NaN.
func VisualAngleToPixels(deg, distanceCm, pixelSizeCm float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return math.NaN()
	}
	halfEdge := distanceCm * math.Tan(math.Abs(deg)/2*math.Pi/180)
	return 2 * halfEdge / pixelSizeCm
}

// PixelsToVisualAngle returns the visual angle in degrees of an on-screen distance given in pixels
func PixelsToVisualAngle(px, distanceCm, pixelSizeCm float64) float64 {
	return 2 * math.Atan(px*pixelSizeCm/(2*distanceCm)) * 180 / math.Pi
}

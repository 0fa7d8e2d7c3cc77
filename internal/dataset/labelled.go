package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
)

// MicrosecondsPerMillisecond converts recording timestamps
const MicrosecondsPerMillisecond = 1000.0

// RecordingInfo is the geometry of a recording session
type RecordingInfo struct {
	SamplingRateHz   float64 `json:"sampling_rate_hz" yaml:"sampling_rate_hz"`
	ViewerDistanceCm float64 `json:"viewer_distance_cm" yaml:"viewer_distance_cm"`
	PixelSizeCm      float64 `json:"pixel_size_cm" yaml:"pixel_size_cm"`
}

// LabelledRecording is one rater's annotation of one trial
type LabelledRecording struct {
	RecordingInfo
	Samples []models.GazeSample
	Labels  []models.Label
}

// LabelledParser reads whitespace separated exports with the columns
// time_us x y label. Header lines start with '#' and may override the
// recording geometry, e.g. "# sampling_rate_hz: 500" or "# screen_res: 1024x768".
type LabelledParser struct {
	Defaults RecordingInfo
}

// Parse reads a full recording. Positions at (0, 0) are missing and become NaN.
// Timestamps are shifted to start at zero and converted to milliseconds; when any
// timestamp is missing they are derived from the sampling rate instead.
func (p LabelledParser) Parse(r io.Reader) (*LabelledRecording, error) {
	rec := &LabelledRecording{RecordingInfo: p.Defaults}
	var screenW, screenH float64
	var resX, resY int
	var rawTimes []float64
	missingTime := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := applyHeader(rec, line, &screenW, &screenH, &resX, &resY); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: expected 4 columns, got %d", lineNo, len(fields))
		}
		values := make([]float64, 3)
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %d: %w", lineNo, i+1, err)
			}
			values[i] = v
		}
		label, _ := models.ParseLabel(fields[3], true)

		t, x, y := values[0], values[1], values[2]
		if math.IsNaN(t) {
			missingTime = true
		}
		if x == 0 && y == 0 {
			x, y = math.NaN(), math.NaN()
		}
		rawTimes = append(rawTimes, t)
		rec.Samples = append(rec.Samples, models.GazeSample{Index: len(rec.Samples), X: x, Y: y})
		rec.Labels = append(rec.Labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	if screenW > 0 && screenH > 0 && resX > 0 && resY > 0 {
		rec.PixelSizeCm = spatial.PixelSizeFor(screenW, screenH, resX, resY)
	}

	times, err := timestampsMs(rawTimes, missingTime, rec.SamplingRateHz)
	if err != nil {
		return nil, err
	}
	for i := range rec.Samples {
		rec.Samples[i].TimeMs = times[i]
	}
	return rec, nil
}

func timestampsMs(rawUs []float64, synthesise bool, samplingRateHz float64) ([]float64, error) {
	out := make([]float64, len(rawUs))
	if len(rawUs) == 0 {
		return out, nil
	}
	if synthesise {
		if samplingRateHz <= 0 {
			return nil, fmt.Errorf("timestamps are missing and no sampling rate is known")
		}
		for i := range out {
			out[i] = float64(i) * spatial.MillisecondsPerSecond / samplingRateHz
		}
		return out, nil
	}

	start := rawUs[0]
	for _, t := range rawUs {
		if t < start {
			start = t
		}
	}
	for i, t := range rawUs {
		out[i] = (t - start) / MicrosecondsPerMillisecond
	}
	return out, nil
}

func applyHeader(rec *LabelledRecording, line string, screenW, screenH *float64, resX, resY *int) error {
	key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), ":")
	if !ok {
		return nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	number := func() (float64, error) {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("header %s: %w", key, err)
		}
		return v, nil
	}

	var err error
	switch key {
	case "sampling_rate_hz":
		rec.SamplingRateHz, err = number()
	case "viewer_distance_cm":
		rec.ViewerDistanceCm, err = number()
	case "pixel_size_cm":
		rec.PixelSizeCm, err = number()
	case "screen_width_cm":
		*screenW, err = number()
	case "screen_height_cm":
		*screenH, err = number()
	case "screen_res":
		dims := strings.FieldsFunc(value, func(r rune) bool { return r == 'x' || r == 'X' || r == ' ' || r == ',' })
		if len(dims) != 2 {
			return fmt.Errorf("header screen_res: expected WIDTHxHEIGHT, got %q", value)
		}
		if *resX, err = strconv.Atoi(dims[0]); err != nil {
			return fmt.Errorf("header screen_res: %w", err)
		}
		if *resY, err = strconv.Atoi(dims[1]); err != nil {
			return fmt.Errorf("header screen_res: %w", err)
		}
	}
	return err
}

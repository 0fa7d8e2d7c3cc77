package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// Eye selects which eye's gaze a parser keeps
type Eye string

const (
	EyeLeft    Eye = "left"
	EyeRight   Eye = "right"
	EyeAverage Eye = "average"
)

// Tobii / E-Prime export columns
const (
	tobiiTrialColumn  = "RunningSample"
	tobiiMsColumn     = "RTTime"
	tobiiMicroColumn  = "RTTimeMicro"
	tobiiLeftXColumn  = "GazePointPositionDisplayXLeftEye"
	tobiiLeftYColumn  = "GazePointPositionDisplayYLeftEye"
	tobiiRightXColumn = "GazePointPositionDisplayXRightEye"
	tobiiRightYColumn = "GazePointPositionDisplayYRightEye"
)

var tobiiMissingValues = map[string]bool{"": true, "-1": true, "-1.#IND0": true}

// TobiiParser reads tab separated Tobii exports written by E-Prime.
// Gaze coordinates are normalised to the display and get scaled by the
// screen resolution (width being the larger dimension). Coordinates outside
// the screen are kept as they are.
type TobiiParser struct {
	ResolutionX int
	ResolutionY int
	Eye         Eye
	SubjectID   string
	Info        RecordingInfo
}

// Parse splits the export into one trial per RunningSample value, in order of first appearance
func (p TobiiParser) Parse(r io.Reader) ([]models.Trial, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{tobiiTrialColumn, tobiiMsColumn, tobiiLeftXColumn, tobiiLeftYColumn, tobiiRightXColumn, tobiiRightYColumn} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	eye := p.Eye
	if eye == "" {
		eye = EyeRight
	}
	if eye != EyeLeft && eye != EyeRight && eye != EyeAverage {
		return nil, fmt.Errorf("unknown eye %q", eye)
	}

	width, height := float64(p.ResolutionX), float64(p.ResolutionY)
	if height > width {
		width, height = height, width
	}

	var trials []models.Trial
	index := make(map[string]int)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		trialID := field(tobiiTrialColumn)
		timeMs, err := tobiiTime(field(tobiiMsColumn), field(tobiiMicroColumn))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		left := models.Sample{X: tobiiValue(field(tobiiLeftXColumn)) * width, Y: tobiiValue(field(tobiiLeftYColumn)) * height}
		right := models.Sample{X: tobiiValue(field(tobiiRightXColumn)) * width, Y: tobiiValue(field(tobiiRightYColumn)) * height}

		var pos models.Sample
		switch eye {
		case EyeLeft:
			pos = left
		case EyeRight:
			pos = right
		default:
			pos = averageEyes(left, right)
		}

		i, ok := index[trialID]
		if !ok {
			i = len(trials)
			index[trialID] = i
			trials = append(trials, models.Trial{
				SubjectID:        p.SubjectID,
				StimulusType:     "trial",
				StimulusName:     trialID,
				SamplingRateHz:   p.Info.SamplingRateHz,
				PixelSizeCm:      p.Info.PixelSizeCm,
				ViewerDistanceCm: p.Info.ViewerDistanceCm,
			})
		}
		t := &trials[i]
		t.Samples = append(t.Samples, models.GazeSample{Index: len(t.Samples), TimeMs: timeMs, X: pos.X, Y: pos.Y})
		t.SampleCount = len(t.Samples)
	}
	return trials, nil
}

func tobiiValue(s string) float64 {
	if tobiiMissingValues[s] {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == -1 {
		return math.NaN()
	}
	return v
}

// tobiiTime prefers the microsecond column when present
func tobiiTime(ms, micro string) (float64, error) {
	if micro != "" && !tobiiMissingValues[micro] {
		us, err := strconv.ParseFloat(micro, 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s value %q: %w", tobiiMicroColumn, micro, err)
		}
		return us / MicrosecondsPerMillisecond, nil
	}
	v, err := strconv.ParseFloat(ms, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q: %w", tobiiMsColumn, ms, err)
	}
	return v, nil
}

func averageEyes(left, right models.Sample) models.Sample {
	switch {
	case left.Finite() && right.Finite():
		return models.Sample{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}
	case left.Finite():
		return left
	default:
		return right
	}
}

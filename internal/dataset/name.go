package dataset

import (
	"fmt"
	"path"
	"strings"
)

// MovingDotStimulus is the stimulus type of trials named trial1, trial2, ...
const MovingDotStimulus = "moving dot"

// TrialName is the metadata encoded in an annotated recording's file name
type TrialName struct {
	SubjectID    string
	StimulusType string
	StimulusName string
	Rater        string
}

// Key groups recordings of the same trial annotated by different raters
func (n TrialName) Key() string {
	return n.SubjectID + "/" + n.StimulusType + "/" + n.StimulusName
}

// ParseTrialName extracts trial metadata from a file name of the form
// <subject>_<type>_<name...>_labelled_<rater>.<ext>.
// Moving-dot trials carry no stimulus name.
func ParseTrialName(file string) (TrialName, error) {
	base := path.Base(strings.ReplaceAll(file, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return TrialName{}, fmt.Errorf("unexpected recording name %q", file)
	}

	name := TrialName{
		SubjectID:    parts[0],
		StimulusType: parts[1],
		Rater:        parts[len(parts)-1],
	}
	// corrected files insert an extra token before the rater, e.g. _labelled_FIX_MN
	stimulus := strings.Join(parts[2:len(parts)-2], "_")
	stimulus = strings.TrimSuffix(stimulus, "_labelled")
	if stimulus == "labelled" {
		stimulus = ""
	}
	name.StimulusName = stimulus

	if strings.HasPrefix(name.StimulusType, "trial") {
		name.StimulusType = MovingDotStimulus
	}
	if name.SubjectID == "" || name.Rater == "" {
		return TrialName{}, fmt.Errorf("unexpected recording name %q", file)
	}
	return name, nil
}

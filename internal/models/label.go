package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Label is a per-sample eye-movement category.
// Values follow the numbering used by the annotated datasets.
type Label int

const (
	LabelUndefined     Label = 0
	LabelFixation      Label = 1
	LabelSaccade       Label = 2
	LabelPSO           Label = 3
	LabelSmoothPursuit Label = 4
	LabelBlink         Label = 5
)

// AllLabels lists every label in numeric order
var AllLabels = []Label{
	LabelUndefined,
	LabelFixation,
	LabelSaccade,
	LabelPSO,
	LabelSmoothPursuit,
	LabelBlink,
}

var labelNames = map[Label]string{
	LabelUndefined:     "undefined",
	LabelFixation:      "fixation",
	LabelSaccade:       "saccade",
	LabelPSO:           "pso",
	LabelSmoothPursuit: "smooth_pursuit",
	LabelBlink:         "blink",
}

// String returns the lower-case name of the label
func (l Label) String() string {
	if name, ok := labelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("label(%d)", int(l))
}

// Valid reports whether l is one of the known labels
func (l Label) Valid() bool {
	_, ok := labelNames[l]
	return ok
}

// MarshalJSON encodes the label as its name
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts either the label name or its numeric code
func (l *Label) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseLabel(name, false)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}

	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("label must be a string or integer: %s", string(data))
	}
	parsed, err := LabelFromCode(code, false)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LabelFromCode converts a numeric code to a label.
// In safe mode unknown codes map to LabelUndefined instead of failing.
func LabelFromCode(code int, safe bool) (Label, error) {
	l := Label(code)
	if l.Valid() {
		return l, nil
	}
	if safe {
		return LabelUndefined, nil
	}
	return LabelUndefined, fmt.Errorf("unknown label code: %d", code)
}

// ParseLabel parses a label name ("fixation", "SACCADE") or numeric code ("2").
// In safe mode unknown values map to LabelUndefined instead of failing.
func ParseLabel(s string, safe bool) (Label, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return LabelFromCode(code, safe)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return LabelFromCode(int(f), safe)
	}

	name := strings.ToLower(strings.ReplaceAll(s, " ", "_"))
	for l, n := range labelNames {
		if n == name {
			return l, nil
		}
	}
	if safe {
		return LabelUndefined, nil
	}
	return LabelUndefined, fmt.Errorf("unknown label: %q", s)
}

// CountLabels returns how many times each label occurs
func CountLabels(labels []Label) map[Label]int {
	counts := make(map[Label]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

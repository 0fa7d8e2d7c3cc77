package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	cases := map[string]Label{
		"fixation":       LabelFixation,
		"SACCADE":        LabelSaccade,
		"smooth pursuit": LabelSmoothPursuit,
		"3":              LabelPSO,
		"5.0":            LabelBlink,
	}
	for in, want := range cases {
		got, err := ParseLabel(in, false)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLabel("wink", false)
	assert.Error(t, err)
	got, err := ParseLabel("9", true)
	require.NoError(t, err)
	assert.Equal(t, LabelUndefined, got)
}

func TestLabelJSON(t *testing.T) {
	data, err := json.Marshal([]Label{LabelFixation, LabelSaccade})
	require.NoError(t, err)
	assert.JSONEq(t, `["fixation","saccade"]`, string(data))

	var labels []Label
	require.NoError(t, json.Unmarshal([]byte(`["pso", 1]`), &labels))
	assert.Equal(t, []Label{LabelPSO, LabelFixation}, labels)
	assert.Error(t, json.Unmarshal([]byte(`[7]`), &labels))
}

func TestSampleJSONMissingCoordinates(t *testing.T) {
	var samples []Sample
	require.NoError(t, json.Unmarshal([]byte(`[{"x": 1, "y": 2}, {"x": null, "y": null}]`), &samples))
	require.Len(t, samples, 2)
	assert.True(t, samples[0].Finite())
	assert.True(t, math.IsNaN(samples[1].X))

	data, err := json.Marshal(samples)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"x":1,"y":2},{"x":null,"y":null}]`, string(data))

	data, err = json.Marshal(GazeSample{Index: 3, TimeMs: 6, X: math.NaN(), Y: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":3,"time_ms":6,"x":null,"y":4}`, string(data))
}

func TestCountLabelsAndSource(t *testing.T) {
	counts := CountLabels([]Label{LabelFixation, LabelFixation, LabelSaccade})
	assert.Equal(t, map[Label]int{LabelFixation: 2, LabelSaccade: 1}, counts)
	assert.Equal(t, "idt#4", RunLabelSource("idt", 4))

	trial := Trial{SubjectID: "UH21", StimulusType: "img", StimulusName: "Rome"}
	assert.Equal(t, "UH21/img/Rome", trial.Key())
}

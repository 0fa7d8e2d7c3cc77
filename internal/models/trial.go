package models

// Dataset is an imported collection of annotated trials
type Dataset struct {
	ID         int64  `json:"id" db:"id"`
	UUID       string `json:"uuid" db:"uuid"`
	Name       string `json:"name" db:"name"`
	SourceURL  string `json:"source_url,omitempty" db:"source_url"`
	Article    string `json:"article,omitempty" db:"article"`
	TrialCount int    `json:"trial_count" db:"trial_count"`
	CreatedAt  string `json:"created_at" db:"created_at"`
}

// Trial is one recording of one subject viewing one stimulus
type Trial struct {
	ID        int64 `json:"id" db:"id"`
	DatasetID int64 `json:"dataset_id" db:"dataset_id"`

	SubjectID    string `json:"subject_id" db:"subject_id"`
	StimulusType string `json:"stimulus_type" db:"stimulus_type"`
	StimulusName string `json:"stimulus_name,omitempty" db:"stimulus_name"`

	// Recording geometry
	SamplingRateHz   float64 `json:"sampling_rate_hz" db:"sampling_rate_hz"`
	PixelSizeCm      float64 `json:"pixel_size_cm,omitempty" db:"pixel_size_cm"`
	ViewerDistanceCm float64 `json:"viewer_distance_cm,omitempty" db:"viewer_distance_cm"`

	SampleCount int `json:"sample_count" db:"sample_count"`

	Samples []GazeSample       `json:"samples,omitempty"`
	Raters  map[string][]Label `json:"raters,omitempty"`
}

// Key identifies a trial within a dataset
func (t *Trial) Key() string {
	return t.SubjectID + "/" + t.StimulusType + "/" + t.StimulusName
}

// Positions returns the trial samples in row order as detector input
func (t *Trial) Positions() []Sample {
	out := make([]Sample, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Position()
	}
	return out
}

// Times returns the sample timestamps in milliseconds
func (t *Trial) Times() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.TimeMs
	}
	return out
}

// TrialFilter represents filter parameters for querying trials
type TrialFilter struct {
	DatasetID    int64  `form:"datasetId"`
	SubjectID    string `form:"subject"`
	StimulusType string `form:"stimulusType"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}

// TrialsResponse represents a paginated response of trials
type TrialsResponse struct {
	Data       []Trial `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

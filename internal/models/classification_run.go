package models

// ClassificationRun represents an asynchronous analysis run over stored trials
type ClassificationRun struct {
	ID int64 `json:"id" db:"id"`

	// Run identification
	SkillName string `json:"skill_name" db:"skill_name"` // ivt, idt, agreement
	Mode      string `json:"mode" db:"mode"`             // INCREMENTAL, FULL_RECOMPUTE

	// Status
	Status          string `json:"status" db:"status"` // pending, running, completed, failed, cancelled
	ProgressPercent int    `json:"progress_percent" db:"progress_percent"`

	// Input parameters
	ParamsJSON         string `json:"params_json,omitempty" db:"params_json"`
	ThresholdProfileID int64  `json:"threshold_profile_id,omitempty" db:"threshold_profile_id"`
	DatasetID          int64  `json:"dataset_id,omitempty" db:"dataset_id"`

	// Execution info
	TotalTrials     int   `json:"total_trials" db:"total_trials"`
	ProcessedTrials int   `json:"processed_trials" db:"processed_trials"`
	FailedTrials    int   `json:"failed_trials" db:"failed_trials"`
	StartTime       int64 `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime         int64 `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp

	// Results
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	// Metadata
	CreatedBy string `json:"created_by,omitempty" db:"created_by"`
	CreatedAt string `json:"created_at" db:"created_at"`
	UpdatedAt string `json:"updated_at" db:"updated_at"`
}

// LabelSource returns the label source name that the run writes to
func (r *ClassificationRun) LabelSource() string {
	return RunLabelSource(r.SkillName, r.ID)
}

// Run modes
const (
	RunModeIncremental   = "INCREMENTAL"
	RunModeFullRecompute = "FULL_RECOMPUTE"
)

// Run status constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

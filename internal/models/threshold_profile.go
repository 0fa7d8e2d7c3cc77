package models

// ThresholdProfile represents a named parameter set for a classification skill
type ThresholdProfile struct {
	ID int64 `json:"id" db:"id"`

	// Profile identification
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	IsDefault   bool   `json:"is_default" db:"is_default"`

	// Skill name
	SkillName string `json:"skill_name" db:"skill_name"` // e.g., "ivt", "idt"

	// Parameters (JSON)
	ParamsJSON string `json:"params_json" db:"params_json"`

	// Metadata
	CreatedBy string `json:"created_by,omitempty" db:"created_by"`
	CreatedAt string `json:"created_at" db:"created_at"`
	UpdatedAt string `json:"updated_at" db:"updated_at"`
}

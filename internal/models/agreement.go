package models

// ClassScore holds per-label precision and recall of a candidate against a reference
type ClassScore struct {
	Support   int     `json:"support"` // reference samples with this label
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// AgreementReport summarises sample-level agreement between two label sources
type AgreementReport struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	Trials    int    `json:"trials"`
	Samples   int    `json:"samples"` // compared samples (both labels defined)
	Skipped   int    `json:"skipped"` // samples with an undefined label on either side

	Accuracy float64 `json:"accuracy"`
	Kappa    float64 `json:"kappa"` // Cohen's kappa

	// Matrix[i][j] counts samples with reference label Classes[i] and candidate label Classes[j]
	Classes  []Label               `json:"classes"`
	Matrix   [][]int               `json:"matrix"`
	PerClass map[string]ClassScore `json:"per_class"`
}

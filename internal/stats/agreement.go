package stats

import (
	"fmt"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"gonum.org/v1/gonum/mat"
)

// DefaultClasses are the labels compared when none are given.
// Undefined is never compared.
var DefaultClasses = []models.Label{
	models.LabelFixation,
	models.LabelSaccade,
	models.LabelPSO,
	models.LabelSmoothPursuit,
	models.LabelBlink,
}

// Confusion accumulates a reference-by-candidate confusion matrix over label sequences
type Confusion struct {
	classes []models.Label
	index   map[models.Label]int
	counts  *mat.Dense
	skipped int
	trials  int
}

// NewConfusion creates an empty matrix over the given classes (DefaultClasses when empty)
func NewConfusion(classes ...models.Label) *Confusion {
	if len(classes) == 0 {
		classes = DefaultClasses
	}
	c := &Confusion{
		classes: make([]models.Label, 0, len(classes)),
		index:   make(map[models.Label]int, len(classes)),
	}
	for _, l := range classes {
		if l == models.LabelUndefined {
			continue
		}
		if _, dup := c.index[l]; dup {
			continue
		}
		c.index[l] = len(c.classes)
		c.classes = append(c.classes, l)
	}
	n := len(c.classes)
	if n == 0 {
		n = 1
	}
	c.counts = mat.NewDense(n, n, nil)
	return c
}

// Add compares one trial's label sequences sample by sample. Samples where either
// side is Undefined or outside the compared classes are counted as skipped.
func (c *Confusion) Add(reference, candidate []models.Label) error {
	if len(reference) != len(candidate) {
		return fmt.Errorf("label sequences differ in length: %d != %d", len(reference), len(candidate))
	}
	for i := range reference {
		r, okR := c.index[reference[i]]
		k, okC := c.index[candidate[i]]
		if !okR || !okC {
			c.skipped++
			continue
		}
		c.counts.Set(r, k, c.counts.At(r, k)+1)
	}
	c.trials++
	return nil
}

// Merge adds the counts of another matrix built over the same classes
func (c *Confusion) Merge(o *Confusion) error {
	if len(c.classes) != len(o.classes) {
		return fmt.Errorf("cannot merge confusion matrices over %v and %v", c.classes, o.classes)
	}
	for i, l := range c.classes {
		if o.classes[i] != l {
			return fmt.Errorf("cannot merge confusion matrices over %v and %v", c.classes, o.classes)
		}
	}
	c.counts.Add(c.counts, o.counts)
	c.skipped += o.skipped
	c.trials += o.trials
	return nil
}

// Total returns the number of compared samples
func (c *Confusion) Total() int {
	return int(mat.Sum(c.counts))
}

// Skipped returns the number of samples left out of the comparison
func (c *Confusion) Skipped() int {
	return c.skipped
}

// Accuracy returns the fraction of compared samples with equal labels
func (c *Confusion) Accuracy() float64 {
	total := mat.Sum(c.counts)
	if total == 0 {
		return 0
	}
	return mat.Trace(c.counts) / total
}

// Kappa returns Cohen's kappa, the agreement corrected for chance
func (c *Confusion) Kappa() float64 {
	total := mat.Sum(c.counts)
	if total == 0 {
		return 0
	}
	observed := mat.Trace(c.counts) / total

	var expected float64
	n, _ := c.counts.Dims()
	for i := 0; i < n; i++ {
		rowSum := mat.Sum(c.counts.RowView(i))
		colSum := mat.Sum(c.counts.ColView(i))
		expected += rowSum * colSum
	}
	expected /= total * total

	if expected == 1 {
		if observed == 1 {
			return 1
		}
		return 0
	}
	return (observed - expected) / (1 - expected)
}

// Scores returns precision, recall and F1 per class, keyed by label name
func (c *Confusion) Scores() map[string]models.ClassScore {
	scores := make(map[string]models.ClassScore, len(c.classes))
	for i, l := range c.classes {
		tp := c.counts.At(i, i)
		refTotal := mat.Sum(c.counts.RowView(i))
		candTotal := mat.Sum(c.counts.ColView(i))

		s := models.ClassScore{Support: int(refTotal)}
		if candTotal > 0 {
			s.Precision = tp / candTotal
		}
		if refTotal > 0 {
			s.Recall = tp / refTotal
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		scores[l.String()] = s
	}
	return scores
}

// Matrix returns the counts as integers, rows indexed by reference class
func (c *Confusion) Matrix() [][]int {
	out := make([][]int, len(c.classes))
	for i := range c.classes {
		out[i] = make([]int, len(c.classes))
		for j := range c.classes {
			out[i][j] = int(c.counts.At(i, j))
		}
	}
	return out
}

// Report summarises the matrix for the named label sources
func (c *Confusion) Report(reference, candidate string) models.AgreementReport {
	classes := make([]models.Label, len(c.classes))
	copy(classes, c.classes)
	return models.AgreementReport{
		Reference: reference,
		Candidate: candidate,
		Trials:    c.trials,
		Samples:   c.Total(),
		Skipped:   c.skipped,
		Accuracy:  c.Accuracy(),
		Kappa:     c.Kappa(),
		Classes:   classes,
		Matrix:    c.Matrix(),
		PerClass:  c.Scores(),
	}
}

// Compare builds a confusion matrix for a single pair of label sequences
func Compare(reference, candidate []models.Label, classes ...models.Label) (*Confusion, error) {
	c := NewConfusion(classes...)
	if err := c.Add(reference, candidate); err != nil {
		return nil, err
	}
	return c, nil
}

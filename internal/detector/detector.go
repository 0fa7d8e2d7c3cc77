package detector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// Detector labels every gaze sample of a sequence as fixation or saccade
type Detector interface {
	// Name returns the registered algorithm name
	Name() string

	// Detect returns one label per sample, index-aligned with the input.
	// The input is never modified.
	Detect(samples []models.Sample) ([]models.Label, error)
}

// Factory builds a detector from parameters, applying its own defaults
type Factory func(p Params) (Detector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers a detector factory under an algorithm name
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the named detector
func New(name string, p Params) (Detector, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDetector, name)
	}
	return factory(p)
}

// IsRegistered reports whether an algorithm name is known
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Names returns the registered algorithm names in sorted order
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassifySegments runs d over each maximal run of finite samples and
// labels non-finite samples Undefined. The result has len(samples) labels.
// Recordings with tracking loss go through here rather than straight to Detect,
// which rejects non-finite samples.
func ClassifySegments(d Detector, samples []models.Sample) ([]models.Label, error) {
	labels := make([]models.Label, len(samples))
	start := -1
	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		segment, err := d.Detect(samples[start:end])
		if err != nil {
			return fmt.Errorf("segment [%d, %d): %w", start, end, err)
		}
		copy(labels[start:end], segment)
		start = -1
		return nil
	}

	for i, s := range samples {
		if s.Finite() {
			if start < 0 {
				start = i
			}
			continue
		}
		if err := flush(i); err != nil {
			return nil, err
		}
		labels[i] = models.LabelUndefined
	}
	if err := flush(len(samples)); err != nil {
		return nil, err
	}
	return labels, nil
}

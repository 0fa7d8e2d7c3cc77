package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
)

// Source describes a downloadable archive of annotated recordings
type Source struct {
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url" yaml:"url"`
	Article string `json:"article" yaml:"article"`

	// Prefix restricts the archive members that are read
	Prefix    string `json:"prefix" yaml:"prefix"`
	Extension string `json:"extension" yaml:"extension"`

	// Exclude lists member base names to skip; Replacements lists full member
	// paths read in addition to the prefixed members (corrected annotations)
	Exclude      []string `json:"exclude" yaml:"exclude"`
	Replacements []string `json:"replacements" yaml:"replacements"`

	Defaults RecordingInfo `json:"defaults" yaml:"defaults"`
}

// Lund2013 is the hand-labelled dataset of Andersson et al. (2017), with the
// corrected UH29 annotation of Zemblys et al. (2018)
func Lund2013() Source {
	const root = "EyeMovementDetectorEvaluation-master/annotated_data/"
	return Source{
		Name: "lund2013",
		URL:  "https://github.com/richardandersson/EyeMovementDetectorEvaluation/archive/refs/heads/master.zip",
		Article: "Andersson, R., Larsson, L., Holmqvist, K., Stridh, M., & Nyström, M. (2017): One algorithm to rule them all? " +
			"An evaluation and discussion of ten eye movement event-detection algorithms. Behavior Research Methods, 49(2), 616-637.",
		Prefix:       root + "originally uploaded data/",
		Extension:    ".mat",
		Exclude:      []string{"UH29_img_Europe_labelled_MN.mat"},
		Replacements: []string{root + "fix_by_Zemblys2018/UH29_img_Europe_labelled_FIX_MN.mat"},
		Defaults: RecordingInfo{
			SamplingRateHz:   500,
			ViewerDistanceCm: 67,
			PixelSizeCm:      spatial.PixelSizeFor(38, 30, 1024, 768),
		},
	}
}

// Result is a parsed dataset ready to be stored
type Result struct {
	Dataset models.Dataset
	Trials  []models.Trial
}

// ArchiveLoader downloads dataset archives and keeps raw snapshots on disk
type ArchiveLoader struct {
	client      *http.Client
	snapshotDir string
}

// NewArchiveLoader creates a loader. An empty snapshotDir disables snapshots.
func NewArchiveLoader(client *http.Client, snapshotDir string) *ArchiveLoader {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &ArchiveLoader{client: client, snapshotDir: snapshotDir}
}

// Load fetches and parses a dataset. A stored snapshot is used unless refresh is set.
func (l *ArchiveLoader) Load(ctx context.Context, src Source, refresh bool) (*Result, error) {
	data, err := l.Fetch(ctx, src, refresh)
	if err != nil {
		return nil, err
	}
	trials, err := ParseArchive(data, src)
	if err != nil {
		return nil, err
	}
	log.Printf("[DatasetLoader] Parsed %d trials from %s", len(trials), src.Name)

	return &Result{
		Dataset: models.Dataset{
			UUID:       uuid.NewString(),
			Name:       src.Name,
			SourceURL:  src.URL,
			Article:    src.Article,
			TrialCount: len(trials),
		},
		Trials: trials,
	}, nil
}

// Fetch returns the raw archive, from the snapshot directory when possible
func (l *ArchiveLoader) Fetch(ctx context.Context, src Source, refresh bool) ([]byte, error) {
	snapshot := l.SnapshotPath(src.Name)
	if snapshot != "" && !refresh {
		data, err := os.ReadFile(snapshot)
		if err == nil {
			log.Printf("[DatasetLoader] Using snapshot %s", snapshot)
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
	}

	data, err := l.download(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if snapshot != "" {
		if _, err := l.SaveSnapshot(src.Name, data); err != nil {
			log.Printf("[DatasetLoader] Warning: %v", err)
		}
	}
	return data, nil
}

func (l *ArchiveLoader) download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("dataset has no source URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	log.Printf("[DatasetLoader] Downloading %s", url)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download dataset from %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return data, nil
}

// SnapshotPath returns where the raw archive of a dataset is kept, or "" without a snapshot directory
func (l *ArchiveLoader) SnapshotPath(name string) string {
	if l.snapshotDir == "" || name == "" {
		return ""
	}
	return filepath.Join(l.snapshotDir, name+".zip")
}

// SaveSnapshot writes the raw archive for later offline loads
func (l *ArchiveLoader) SaveSnapshot(name string, data []byte) (string, error) {
	p := l.SnapshotPath(name)
	if p == "" {
		return "", fmt.Errorf("snapshot directory not configured")
	}
	if err := os.MkdirAll(l.snapshotDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Printf("[DatasetLoader] Saved snapshot %s (%d bytes)", p, len(data))
	return p, nil
}

// ParseArchive reads every selected member of a zip archive and merges the
// recordings of the same trial into one Trial holding every rater's labels.
// Trials are returned sorted by subject, stimulus type and stimulus name.
func ParseArchive(data []byte, src Source) ([]models.Trial, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	excluded := make(map[string]bool, len(src.Exclude))
	for _, e := range src.Exclude {
		excluded[e] = true
	}
	replacements := make(map[string]bool, len(src.Replacements))
	for _, r := range src.Replacements {
		replacements[r] = true
	}

	var members []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if replacements[f.Name] {
			members = append(members, f)
			continue
		}
		if !strings.HasPrefix(f.Name, src.Prefix) || excluded[path.Base(f.Name)] {
			continue
		}
		if src.Extension != "" && path.Ext(f.Name) != src.Extension {
			continue
		}
		members = append(members, f)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("archive has no %q recordings under %q", src.Extension, src.Prefix)
	}
	// replacements come last so that they overwrite the rater they correct
	sort.SliceStable(members, func(i, j int) bool {
		return !replacements[members[i].Name] && replacements[members[j].Name]
	})

	byKey := make(map[string]*models.Trial)
	for _, f := range members {
		name, err := ParseTrialName(f.Name)
		if err != nil {
			return nil, err
		}
		rec, err := readMember(f, ParserFor(f.Name, src.Defaults))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}

		trial, ok := byKey[name.Key()]
		if !ok {
			trial = &models.Trial{
				SubjectID:        name.SubjectID,
				StimulusType:     name.StimulusType,
				StimulusName:     name.StimulusName,
				SamplingRateHz:   rec.SamplingRateHz,
				PixelSizeCm:      rec.PixelSizeCm,
				ViewerDistanceCm: rec.ViewerDistanceCm,
				Samples:          rec.Samples,
				SampleCount:      len(rec.Samples),
				Raters:           make(map[string][]models.Label),
			}
			byKey[name.Key()] = trial
		} else if len(rec.Labels) != len(trial.Samples) {
			return nil, fmt.Errorf("%s: rater %s labelled %d samples, trial has %d",
				f.Name, name.Rater, len(rec.Labels), len(trial.Samples))
		}
		trial.Raters[name.Rater] = rec.Labels
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trials := make([]models.Trial, 0, len(keys))
	for _, k := range keys {
		trials = append(trials, *byKey[k])
	}
	return trials, nil
}

// RecordingParser reads one rater's annotated recording
type RecordingParser interface {
	Parse(r io.Reader) (*LabelledRecording, error)
}

// ParserFor picks the parser for a recording file by its extension:
// MAT-files use MatParser, everything else the text export parser
func ParserFor(name string, defaults RecordingInfo) RecordingParser {
	if strings.EqualFold(path.Ext(name), ".mat") {
		return MatParser{Defaults: defaults}
	}
	return LabelledParser{Defaults: defaults}
}

func readMember(f *zip.File, parser RecordingParser) (*LabelledRecording, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parser.Parse(rc)
}

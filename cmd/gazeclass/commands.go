package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jengzang/gaze-events-backend-go/internal/config"
	"github.com/jengzang/gaze-events-backend-go/internal/dataset"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/middleware"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/internal/stats"
)

// recording is one trial read from a file
type recording struct {
	name   string
	trial  models.Trial
	labels []models.Label // rater labels, labelled format only
}

type classifyFlags struct {
	algorithm string
	format    string
	params    string
	unit      string
	eye       string
	res       string
	subject   string
}

func (f *classifyFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.algorithm, "algorithm", "ivt", "Detector: "+strings.Join(detector.Names(), ", "))
	fs.StringVar(&f.format, "format", "labelled", "Input format: labelled (text export or .mat) or tobii")
	fs.StringVar(&f.params, "params", "", "Detector params as JSON, e.g. '{\"velocity_threshold\": 1}'")
	fs.StringVar(&f.unit, "unit", "", "Threshold unit: px or deg (overrides -params)")
	fs.StringVar(&f.eye, "eye", string(dataset.EyeRight), "Tobii eye: left, right or average")
	fs.StringVar(&f.res, "res", "1920x1080", "Tobii screen resolution")
	fs.StringVar(&f.subject, "subject", "", "Tobii subject id (default: file name)")
}

func (f *classifyFlags) detectorParams() (detector.Params, error) {
	var p detector.Params
	if f.params != "" {
		if err := json.Unmarshal([]byte(f.params), &p); err != nil {
			return p, fmt.Errorf("invalid -params: %w", err)
		}
	}
	if f.unit != "" {
		p.Unit = f.unit
	}
	return p, nil
}

func (f *classifyFlags) read(path string, defaults dataset.RecordingInfo) ([]recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	base := filepath.Base(path)

	switch f.format {
	case "labelled":
		rec, err := dataset.ParserFor(base, defaults).Parse(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
		trial := models.Trial{
			StimulusName:     base,
			SamplingRateHz:   rec.SamplingRateHz,
			ViewerDistanceCm: rec.ViewerDistanceCm,
			PixelSizeCm:      rec.PixelSizeCm,
			Samples:          rec.Samples,
		}
		name := base
		if tn, err := dataset.ParseTrialName(base); err == nil {
			trial.SubjectID, trial.StimulusType, trial.StimulusName = tn.SubjectID, tn.StimulusType, tn.StimulusName
			name = trial.Key()
		}
		return []recording{{name: name, trial: trial, labels: rec.Labels}}, nil

	case "tobii":
		var resX, resY int
		if _, err := fmt.Sscanf(f.res, "%dx%d", &resX, &resY); err != nil {
			return nil, fmt.Errorf("invalid -res %q", f.res)
		}
		subject := f.subject
		if subject == "" {
			subject = strings.TrimSuffix(base, filepath.Ext(base))
		}
		trials, err := dataset.TobiiParser{
			ResolutionX: resX,
			ResolutionY: resY,
			Eye:         dataset.Eye(f.eye),
			SubjectID:   subject,
			Info:        defaults,
		}.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
		out := make([]recording, len(trials))
		for i, t := range trials {
			out[i] = recording{name: t.Key(), trial: t}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown -format %q", f.format)
	}
}

func classifyRecording(svc *service.ClassifyService, algorithm string, params detector.Params, rec recording, events bool) (*service.ClassifyResult, error) {
	res, err := svc.Classify(algorithm, service.ClassifyRequest{
		Samples:          rec.trial.Positions(),
		TimesMs:          rec.trial.Times(),
		Params:           params,
		SamplingRateHz:   rec.trial.SamplingRateHz,
		ViewerDistanceCm: rec.trial.ViewerDistanceCm,
		PixelSizeCm:      rec.trial.PixelSizeCm,
		Events:           events,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.name, err)
	}
	return res, nil
}

func newClassifyService(cfg *config.Config) *service.ClassifyService {
	return service.NewClassifyService(cfg.Detectors, cfg.Screen, cfg.ViewerDistanceCm)
}

func runClassify(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f classifyFlags
	f.register(fs)
	events := fs.Bool("events", false, "Print events instead of sample labels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("classify needs at least one file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	params, err := f.detectorParams()
	if err != nil {
		return err
	}
	svc := newClassifyService(cfg)

	w := tabwriter.NewWriter(stdout, 0, 4, 1, ' ', 0)
	if *events {
		fmt.Fprintln(w, "trial\ttype\tstart\tend\tduration_ms\tamplitude\tpeak_velocity\toutlier")
	} else {
		fmt.Fprintln(w, "trial\tindex\ttime_ms\tx\ty\tlabel")
	}

	for _, path := range fs.Args() {
		recs, err := f.read(path, cfg.Dataset.Defaults)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			res, err := classifyRecording(svc, f.algorithm, params, rec, *events)
			if err != nil {
				return err
			}
			if *events {
				for _, e := range res.Events {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\t%.2f\t%.1f\t%t\n", rec.name, e.Type, e.StartIndex, e.EndIndex,
						e.DurationMs, e.Amplitude, e.PeakVelocity, e.Outlier)
				}
				continue
			}
			for i, s := range rec.trial.Samples {
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%g\t%g\t%s\n", rec.name, s.Index, s.TimeMs, s.X, s.Y, res.Labels[i])
			}
		}
	}
	return w.Flush()
}

func runCompare(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f classifyFlags
	f.register(fs)
	classNames := fs.String("classes", "fixation,saccade", "Comma separated labels to compare")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("compare needs at least one labelled file")
	}
	f.format = "labelled"

	var classes []models.Label
	for _, name := range strings.Split(*classNames, ",") {
		l, err := models.ParseLabel(name, false)
		if err != nil {
			return err
		}
		classes = append(classes, l)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	params, err := f.detectorParams()
	if err != nil {
		return err
	}
	svc := newClassifyService(cfg)

	total := stats.NewConfusion(classes...)
	for _, path := range fs.Args() {
		recs, err := f.read(path, cfg.Dataset.Defaults)
		if err != nil {
			return err
		}
		res, err := classifyRecording(svc, f.algorithm, params, recs[0], false)
		if err != nil {
			return err
		}
		if err := total.Add(recs[0].labels, res.Labels); err != nil {
			return fmt.Errorf("%s: %w", recs[0].name, err)
		}
	}

	report := total.Report("rater", f.algorithm)
	fmt.Fprintf(stdout, "files: %d  samples: %d  skipped: %d\n", report.Trials, report.Samples, report.Skipped)
	fmt.Fprintf(stdout, "accuracy: %.4f  kappa: %.4f\n", report.Accuracy, report.Kappa)

	w := tabwriter.NewWriter(stdout, 0, 4, 1, ' ', 0)
	fmt.Fprintln(w, "class\tsupport\tprecision\trecall\tf1")
	for _, l := range report.Classes {
		s := report.PerClass[l.String()]
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.4f\n", l, s.Support, s.Precision, s.Recall, s.F1)
	}
	return w.Flush()
}

func runToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("secret", "", "Signing secret (default: configured JWT secret)")
	subject := fs.String("subject", "admin", "Token subject")
	role := fs.String("role", middleware.RoleAdmin, "Token role")
	ttl := fs.Duration("ttl", 0, "Token lifetime (default: configured token TTL)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *secret == "" {
		*secret = cfg.JWTSecret
	}
	if *ttl <= 0 {
		*ttl = cfg.TokenTTL
	}
	if *ttl <= 0 {
		*ttl = 24 * time.Hour
	}

	token, err := middleware.IssueToken(*secret, *subject, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

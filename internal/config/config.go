package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jengzang/gaze-events-backend-go/internal/dataset"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are searched when CONFIG_PATH is not set
var DefaultPaths = []string{"configs/gaze.yaml", "gaze.yaml"}

// Config holds application settings
type Config struct {
	Port      string        `yaml:"port"`
	DBPath    string        `yaml:"db_path"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// RateLimit is the number of public requests allowed per client per minute
	RateLimit int `yaml:"rate_limit"`

	Dataset     dataset.Source `yaml:"dataset"`
	SnapshotDir string         `yaml:"snapshot_dir"`

	// Screen supplies geometry to classify requests that use degree thresholds
	// without sending their own
	Screen           spatial.ScreenMonitor `yaml:"screen"`
	ViewerDistanceCm float64               `yaml:"viewer_distance_cm"`

	// Detectors holds default params per algorithm. The sampling rate is
	// taken from each trial and is not set here.
	Detectors map[string]detector.Params `yaml:"detectors"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:             ":8080",
		DBPath:           "./data/gaze/gaze.db",
		JWTSecret:        "your-secret-key-change-in-production",
		TokenTTL:         24 * time.Hour,
		RateLimit:        120,
		Dataset:          dataset.Lund2013(),
		SnapshotDir:      "./data/gaze/snapshots",
		Screen:           spatial.DefaultScreenMonitor(),
		ViewerDistanceCm: 60,
		Detectors: map[string]detector.Params{
			"ivt": {VelocityThreshold: detector.Float(0.5)},
			"idt": {DispersionThreshold: detector.Float(1.0), WindowDurationMs: detector.Float(detector.DefaultWindowDurationMs)},
		},
	}
}

// Load builds the configuration from defaults, the YAML file and environment overrides
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		for _, p := range DefaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
		log.Printf("[Config] Loaded %s", path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file over cfg. Keys absent from the file keep their values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	detectors := c.Detectors
	c.Detectors = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// per-algorithm params merge over the defaults instead of replacing them
	for name, p := range c.Detectors {
		detectors[name] = p.Merge(detectors[name])
	}
	c.Detectors = detectors
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("DATASET_URL"); v != "" {
		c.Dataset.URL = v
	}
	if v := os.Getenv("SNAPSHOT_DIR"); v != "" {
		c.SnapshotDir = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = n
	}
	return nil
}

// PixelSizeCm returns the pixel size of the configured screen
func (c *Config) PixelSizeCm() float64 {
	return c.Screen.PixelSize()
}

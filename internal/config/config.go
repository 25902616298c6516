// Package config loads the YAML configuration for an expensomatic run.
// A .env file, if present, is read before the config so the API key can
// come from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for one run.
type Config struct {
	ReceiptsDir   string `yaml:"receipts_dir"`
	ScreenshotDir string `yaml:"screenshot_dir"`

	LoginURL  string `yaml:"login_url"`
	ProjectID string `yaml:"project_id"`

	OverrideOldDates bool `yaml:"override_old_dates"`
	MaxDaysOld       int  `yaml:"max_days_old"`

	TakeScreenshots bool   `yaml:"take_screenshots"`
	Headless        bool   `yaml:"headless"`
	UserDataDir     string `yaml:"user_data_dir"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	Model        string `yaml:"model"`

	MaxBatchSize int `yaml:"max_batch_size"`

	// ArchiveBucket, when set, enables uploading submitted claim folders
	// to the named GCS bucket after filing.
	ArchiveBucket string `yaml:"archive_bucket"`
}

// Default returns a Config populated with default values. Unmarshalling the
// YAML file on top of it leaves absent keys at their defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		ReceiptsDir:      "receipts",
		ScreenshotDir:    "screenshots",
		OverrideOldDates: true,
		MaxDaysOld:       30,
		TakeScreenshots:  true,
		Headless:         false,
		UserDataDir:      filepath.Join(home, ".expensomatic-browser"),
		Model:            "gemini-2.5-flash",
		MaxBatchSize:     15,
	}
}

// Load reads the configuration file at path. Missing required keys or an
// unreadable file are fatal errors; nothing else in the program runs first.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; it is optional.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required keys are present and numeric options sane.
func (c *Config) Validate() error {
	if c.LoginURL == "" {
		return fmt.Errorf("config: login_url is required")
	}
	if c.ProjectID == "" {
		return fmt.Errorf("config: project_id is required")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("config: max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	if c.MaxDaysOld < 0 {
		return fmt.Errorf("config: max_days_old must not be negative, got %d", c.MaxDaysOld)
	}
	return nil
}

// Package config loads the YAML configuration shared by the repackfed tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/repackfed/scraper"
	"gopkg.in/yaml.v3"
)

// Validation errors.
var (
	ErrInvalidStartPage     = errors.New("crawl.start_page must be at least 1")
	ErrEndBeforeStart       = errors.New("crawl.end_page must not be before crawl.start_page")
	ErrInvalidFallbackPages = errors.New("crawl.fallback_pages must be at least 1")
	ErrInvalidConcurrency   = errors.New("crawl.concurrency must not be negative")
	ErrInvalidTimeout       = errors.New("crawl.timeout must be positive")
	ErrMissingOutputPath    = errors.New("output.path is required")
	ErrMissingSource        = errors.New("profile.list needs base_url or static_url")
)

// FileConfig represents the structure of ~/.repackfed/config.yaml.
type FileConfig struct {
	Profile scraper.Profile `yaml:"profile"`
	Crawl   CrawlConfig     `yaml:"crawl"`
	Output  OutputConfig    `yaml:"output"`
	History HistoryConfig   `yaml:"history"`
	Logging LoggingConfig   `yaml:"logging"`
}

// CrawlConfig selects the page range and the worker pool.
type CrawlConfig struct {
	StartPage     int           `yaml:"start_page"`
	EndPage       int           `yaml:"end_page"`       // last page, inclusive; 0 discovers it
	FallbackPages int           `yaml:"fallback_pages"` // used when the seed has no pagination control
	Concurrency   int           `yaml:"concurrency"`    // 0 uses the runtime default
	Timeout       time.Duration `yaml:"timeout"`
	LatestLimit   int           `yaml:"latest_limit"`
}

// OutputConfig controls where the collection is written.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig points at the run history database. An empty DSN disables
// history.
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *FileConfig {
	cfg := &FileConfig{}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns ~/.repackfed/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".repackfed", "config.yaml"), nil
}

// LoadConfigFile loads configuration from ~/.repackfed/config.yaml. Returns
// nil if the file doesn't exist (not an error). Returns error if the file
// exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	return Load(configPath)
}

// Load reads and validates the configuration at path. Fields the file leaves
// out take their default values.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path when given, otherwise ~/.repackfed/config.yaml,
// otherwise the defaults.
func LoadOrDefault(path string) (*FileConfig, error) {
	if path != "" {
		return Load(path)
	}

	cfg, err := LoadConfigFile()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

func (c *FileConfig) applyDefaults() {
	c.Profile = c.Profile.WithDefaults()

	if c.Crawl.StartPage == 0 {
		c.Crawl.StartPage = 1
	}
	if c.Crawl.FallbackPages == 0 {
		c.Crawl.FallbackPages = 1
	}
	if c.Crawl.Timeout == 0 {
		c.Crawl.Timeout = scraper.DefaultTimeout
	}
	if c.Crawl.LatestLimit == 0 {
		c.Crawl.LatestLimit = 10
	}
	if c.Output.Path == "" {
		c.Output.Path = "data.json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for values the crawler cannot use.
func (c *FileConfig) Validate() error {
	if c.Crawl.StartPage < 1 {
		return ErrInvalidStartPage
	}
	if c.Crawl.EndPage != 0 && c.Crawl.EndPage < c.Crawl.StartPage {
		return ErrEndBeforeStart
	}
	if c.Crawl.FallbackPages < 1 {
		return ErrInvalidFallbackPages
	}
	if c.Crawl.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if c.Crawl.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}
	if c.Profile.ListConfig.BaseURL == "" && c.Profile.ListConfig.StaticURL == "" {
		return ErrMissingSource
	}

	return nil
}

// PageRange resolves the half-open page range to crawl. discovered is the
// result of pagination discovery and is only consulted when no end page is
// configured. A discovered total below the start page falls back to
// FallbackPages so the range is never empty.
func (c *FileConfig) PageRange(discovered int, found bool) (start, end int) {
	start = c.Crawl.StartPage

	switch {
	case c.Profile.ListConfig.IsStatic():
		return 1, 2
	case c.Crawl.EndPage != 0:
		return start, c.Crawl.EndPage + 1
	case found && discovered >= start:
		return start, discovered + 1
	default:
		return start, start + c.Crawl.FallbackPages
	}
}

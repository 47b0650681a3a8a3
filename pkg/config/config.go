package config

import (
	"github.com/o2r-project/erc-checker/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Check       CheckConfig       `yaml:"check"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CheckConfig holds comparison-related settings
type CheckConfig struct {
	BaseDir        string   `yaml:"base_dir"`
	Extensions     []string `yaml:"extensions"`
	IgnoreFile     string   `yaml:"ignore_file"`
	PixelThreshold int      `yaml:"pixel_threshold"` // summed RGBA delta tolerated per pixel, in 8-bit units (0-1020)
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format                  string `yaml:"format"`   // "human" or "json"
	Progress                bool   `yaml:"progress"` // Show progress bar on terminals
	Quiet                   bool   `yaml:"quiet"`    // Suppress non-error output
	Dir                     string `yaml:"dir"`      // Where diffHTML.html and metadata.json are written
	FileName                string `yaml:"file_name"`
	SaveDiffHTML            bool   `yaml:"save_diff_html"`
	SaveMetadataJSON        bool   `yaml:"save_metadata_json"`
	CreateParentDirectories bool   `yaml:"create_parent_directories"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Check: CheckConfig{
			BaseDir:        models.DefaultBaseDir,
			Extensions:     append([]string(nil), models.DefaultExtensions...),
			IgnoreFile:     models.DefaultIgnoreFile,
			PixelThreshold: models.DefaultPixelThreshold,
		},
		Performance: PerformanceConfig{
			MaxWorkers: models.DefaultMaxWorkers,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
			FileName: models.DefaultDiffFileName,
		},
		Logging: LoggingConfig{
			Format:     "text",
			Level:      "warn",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Check.PixelThreshold < 0 || c.Check.PixelThreshold > 1020 {
		return &models.ValidationError{
			Field:   "check.pixel_threshold",
			Message: "must be between 0 and 1020",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation settings must not be negative",
		}
	}

	return nil
}

// RequestOptions returns the check options implied by the configuration.
// Paths and modes are left for the caller to fill in.
func (c *Config) RequestOptions() models.RequestOptions {
	return models.RequestOptions{
		BaseDir:                 c.Check.BaseDir,
		OutputDir:               c.Output.Dir,
		SaveDiffHTML:            c.Output.SaveDiffHTML,
		SaveMetadataJSON:        c.Output.SaveMetadataJSON,
		CreateParentDirectories: c.Output.CreateParentDirectories,
		Extensions:              append([]string(nil), c.Check.Extensions...),
		OutFileName:             c.Output.FileName,
		IgnoreFile:              c.Check.IgnoreFile,
		Quiet:                   c.Output.Quiet,
		MaxWorkers:              c.Performance.MaxWorkers,
		PixelThreshold:          c.Check.PixelThreshold,
	}
}

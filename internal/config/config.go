// ABOUTME: YAML configuration for conversion runs
// ABOUTME: Defaults, file loading and per-section validation
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tonietools/tonieconv/pkg/audio"
)

// Output formats.
const (
	FormatTonie = "tonie"
	FormatWAV   = "wav"
)

// Resampler qualities.
const (
	QualityLinear = "linear"
	QualityHQ     = "hq"
)

// Progress modes.
const (
	ProgressLog = "log"
	ProgressTUI = "tui"
	ProgressOff = "off"
)

// Config represents the complete converter configuration
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Resample ResampleConfig `yaml:"resample"`
	Opus     OpusConfig     `yaml:"opus"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Progress ProgressConfig `yaml:"progress"`
}

// OutputConfig selects the container
type OutputConfig struct {
	Format   string `yaml:"format"`
	Channels int    `yaml:"channels"` // wav only; Toniefiles are always stereo
}

// ResampleConfig controls rate conversion
type ResampleConfig struct {
	TargetRate int    `yaml:"target_rate"`
	Quality    string `yaml:"quality"`
	FlushTail  bool   `yaml:"flush_tail"`
}

// OpusConfig tunes the Toniefile encoder
type OpusConfig struct {
	Bitrate    int `yaml:"bitrate"`    // bits per second
	Complexity int `yaml:"complexity"` // 0-10
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig configures the metrics textfile
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ProgressConfig selects how progress is shown
type ProgressConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format:   FormatTonie,
			Channels: 2,
		},
		Resample: ResampleConfig{
			TargetRate: audio.TargetSampleRate,
			Quality:    QualityLinear,
		},
		Opus: OpusConfig{
			Bitrate:    96000,
			Complexity: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Progress: ProgressConfig{
			Mode: ProgressLog,
		},
	}
}

// Load reads a configuration file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Resample.Validate(); err != nil {
		return fmt.Errorf("resample config: %w", err)
	}

	if c.Output.Format == FormatTonie && c.Resample.TargetRate != audio.TargetSampleRate {
		return fmt.Errorf("resample config: target_rate must be %d for tonie output, got %d",
			audio.TargetSampleRate, c.Resample.TargetRate)
	}

	if err := c.Opus.Validate(); err != nil {
		return fmt.Errorf("opus config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Progress.Validate(); err != nil {
		return fmt.Errorf("progress config: %w", err)
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	switch o.Format {
	case FormatTonie, FormatWAV:
	default:
		return fmt.Errorf("format must be %q or %q, got %q", FormatTonie, FormatWAV, o.Format)
	}

	if o.Channels < 1 || o.Channels > 8 {
		return fmt.Errorf("channels must be between 1 and 8, got %d", o.Channels)
	}

	return nil
}

// Validate validates resample configuration
func (r *ResampleConfig) Validate() error {
	if r.TargetRate < 8000 || r.TargetRate > 192000 {
		return fmt.Errorf("target_rate must be between 8000 and 192000 Hz, got %d", r.TargetRate)
	}

	switch r.Quality {
	case QualityLinear, QualityHQ:
	default:
		return fmt.Errorf("quality must be %q or %q, got %q", QualityLinear, QualityHQ, r.Quality)
	}

	return nil
}

// Validate validates Opus configuration
func (o *OpusConfig) Validate() error {
	if o.Bitrate < 6000 || o.Bitrate > 510000 {
		return fmt.Errorf("bitrate must be between 6000 and 510000, got %d", o.Bitrate)
	}

	if o.Complexity < 0 || o.Complexity > 10 {
		return fmt.Errorf("complexity must be between 0 and 10, got %d", o.Complexity)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}

	return nil
}

// Validate validates progress configuration
func (p *ProgressConfig) Validate() error {
	switch p.Mode {
	case ProgressLog, ProgressTUI, ProgressOff:
		return nil
	}
	return fmt.Errorf("progress mode must be %q, %q or %q, got %q", ProgressLog, ProgressTUI, ProgressOff, p.Mode)
}

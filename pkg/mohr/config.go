package mohr

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tstromberg/mohr/pkg/caption"
	"github.com/tstromberg/mohr/pkg/enhance"
	"gopkg.in/yaml.v3"
)

// Capture-time modes.
const (
	// ModeAuto uses the photo's own metadata, falling back to the file and the clock.
	ModeAuto = "auto"
	// ModeNow always stamps the current time, as a camera would.
	ModeNow = "now"
)

const (
	DefaultMaxDimension  = 4096
	DefaultPreviewWidth  = 400
	DefaultPreviewHeight = 400
	DefaultMaxBytes      = 20 << 20
	DefaultDecodeTimeout = 15 * time.Second

	// Quality is the JPEG quality of every output.
	Quality = 90
)

// Config holds configuration for mohr.
type Config struct {
	OutDir    string   `yaml:"out_dir"`
	ShareDirs []string `yaml:"share_dirs"`

	Mode     string `yaml:"mode"`
	Timezone string `yaml:"timezone"`

	Font     string `yaml:"font"`
	Baseline string `yaml:"baseline"`

	MaxDimension  int            `yaml:"max_dimension"`
	MaxBytes      int64          `yaml:"max_bytes"`
	DecodeTimeout time.Duration  `yaml:"decode_timeout"`
	Filters       enhance.Params `yaml:"filters"`

	Preview       bool `yaml:"preview"`
	PreviewWidth  int  `yaml:"preview_width"`
	PreviewHeight int  `yaml:"preview_height"`

	// Exiftool enables exiftool as a capture-time source and writes the
	// stamped time back into each output.
	Exiftool bool `yaml:"exiftool"`
}

// Defaults returns a configuration with every limit at its standard value.
func Defaults() *Config {
	return &Config{
		Mode:          ModeAuto,
		Baseline:      caption.BaselineMiddle.String(),
		MaxDimension:  DefaultMaxDimension,
		MaxBytes:      DefaultMaxBytes,
		DecodeTimeout: DefaultDecodeTimeout,
		Filters:       enhance.Defaults(),
		PreviewWidth:  DefaultPreviewWidth,
		PreviewHeight: DefaultPreviewHeight,
	}
}

// LoadConfig reads a YAML configuration file on top of Defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Defaults()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeNow:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeAuto, ModeNow, c.Mode)
	}
	if _, err := caption.ParseBaseline(c.Baseline); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MaxDimension <= 0 {
		return errors.New("max_dimension must be positive")
	}
	if c.MaxBytes <= 0 {
		return errors.New("max_bytes must be positive")
	}
	if c.DecodeTimeout <= 0 {
		return errors.New("decode_timeout must be positive")
	}
	if c.PreviewWidth <= 0 || c.PreviewHeight <= 0 {
		return errors.New("preview_width and preview_height must be positive")
	}
	if c.Filters.Saturation < 0 {
		return errors.New("filters.saturation must not be negative")
	}
	if c.Filters.Dehaze <= -1 {
		return errors.New("filters.dehaze must be greater than -1")
	}
	return nil
}

// Location is the zone EXIF wall-clock times are read in. An empty Timezone is the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

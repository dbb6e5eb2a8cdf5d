// Package config loads the scanner configuration.
//
// Configuration comes from a single YAML file named by the --config flag or,
// failing that, the PGPSCAN_CONFIG environment variable. Without either the
// defaults apply. Unknown keys are rejected.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"example.com/pgpscan/pkg/marker"
	"example.com/pgpscan/pkg/pgp"
	"example.com/pgpscan/pkg/staging"
	"example.com/pgpscan/pkg/trace"
)

// EnvVar names the environment variable consulted when no path is given.
const EnvVar = "PGPSCAN_CONFIG"

// minMarkerDepth leaves room for the packet start and end markers.
const minMarkerDepth = 2

// Config is the scanner configuration.
type Config struct {
	// Limits bounds the decoder's memory use.
	Limits LimitsConfig `yaml:"limits"`

	// Memory configures where packet bodies are staged.
	Memory MemoryConfig `yaml:"memory"`

	// Trace configures the text dump.
	Trace TraceConfig `yaml:"trace"`

	// Log configures diagnostics output.
	Log LogConfig `yaml:"log"`
}

// LimitsConfig bounds the decoder.
type LimitsConfig struct {
	// MaxPacketSize caps any in-memory body or field, in bytes.
	// Default: 1048576
	MaxPacketSize int `yaml:"max_packet_size"`

	// StagingCapacity is the staging buffer size in bytes.
	// Default: 8192
	StagingCapacity int `yaml:"staging_capacity"`

	// MarkerDepth is the marker stack capacity.
	// Default: 4
	MarkerDepth int `yaml:"marker_depth"`
}

// MemoryConfig configures staging memory.
type MemoryConfig struct {
	// LockedStaging keeps staged bodies in locked, guard-paged memory.
	// Default: false
	LockedStaging bool `yaml:"locked_staging"`
}

// TraceConfig configures the text dump.
type TraceConfig struct {
	// Hex enables hex blocks in the dump.
	// Default: true
	Hex bool `yaml:"hex"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a logrus level name.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxPacketSize:   pgp.DefaultMaxPacketSize,
			StagingCapacity: staging.DefaultCapacity,
			MarkerDepth:     marker.DefaultCapacity,
		},
		Trace: TraceConfig{Hex: true},
		Log:   LogConfig{Level: logrus.InfoLevel.String()},
	}
}

// Load reads path, or the file named by PGPSCAN_CONFIG when path is empty.
// With neither it returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the file at path. Keys absent from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Limits.MaxPacketSize <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_packet_size must be positive, got %d", c.Limits.MaxPacketSize))
	}
	if c.Limits.StagingCapacity <= 0 {
		errs = append(errs, fmt.Errorf("limits.staging_capacity must be positive, got %d", c.Limits.StagingCapacity))
	}
	if c.Limits.MarkerDepth < minMarkerDepth {
		errs = append(errs, fmt.Errorf("limits.marker_depth must be at least %d, got %d", minMarkerDepth, c.Limits.MarkerDepth))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %v", err))
	}

	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	return nil
}

// LogLevel returns the parsed log level, info if it does not parse.
func (c *Config) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Decoder builds the decoder configuration around a trace sink and logger.
func (c *Config) Decoder(sink trace.Sink, log *logrus.Entry) *pgp.Config {
	return &pgp.Config{
		MaxPacketSize:   c.Limits.MaxPacketSize,
		StagingCapacity: c.Limits.StagingCapacity,
		MarkerDepth:     c.Limits.MarkerDepth,
		LockedStaging:   c.Memory.LockedStaging,
		Trace:           sink,
		Logger:          log,
	}
}

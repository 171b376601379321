package typeprof

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/podhmo/typeprof/evaluator"
	"gopkg.in/yaml.v3"
)

// Config holds the analysis settings shared by the Analyzer and the CLI.
// It can be loaded from a YAML file.
type Config struct {
	// MaxSteps bounds the number of analysis steps. Zero means no bound.
	MaxSteps int `yaml:"max_steps"`

	// MaxDuration bounds the wall-clock time of a run, e.g. "30s".
	MaxDuration time.Duration `yaml:"max_duration"`

	// TypeDepthLimit is the nesting depth at which container types are
	// truncated to untyped.
	TypeDepthLimit int `yaml:"type_depth_limit"`

	// Pedantic keeps untyped members of unions in the formatted output.
	Pedantic bool `yaml:"pedantic"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		TypeDepthLimit: 5,
		LogLevel:       "warn",
	}
}

// LoadConfig reads a YAML config file. Keys not present keep their defaults;
// unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig decodes YAML config data. filename is used in error messages.
func ParseConfig(data []byte, filename string) (*Config, error) {
	c := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", filename, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative: %d", c.MaxSteps)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max_duration must not be negative: %s", c.MaxDuration)
	}
	if c.TypeDepthLimit < 1 {
		return fmt.Errorf("type_depth_limit must be positive: %d", c.TypeDepthLimit)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level is warn.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Marshal encodes the config as YAML. The CLI feeds it to the result cache key.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) evaluatorOptions() []evaluator.Option {
	return []evaluator.Option{
		evaluator.WithMaxSteps(c.MaxSteps),
		evaluator.WithMaxDuration(c.MaxDuration),
		evaluator.WithTypeDepthLimit(c.TypeDepthLimit),
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultDebounce      = 300 * time.Millisecond
	DefaultHintFormLines = 12
)

// Config holds the server configuration read from config.toml.
type Config struct {
	LogLevel    string     `toml:"log_level"`
	LogFile     string     `toml:"log_file"`
	ExcludeDirs []string   `toml:"exclude_dirs"`
	Debounce    Duration   `toml:"debounce"`
	InlayHints  InlayHints `toml:"inlay_hints"`
	Folding     Folding    `toml:"folding"`
}

type InlayHints struct {
	ParameterNames bool `toml:"parameter_names"`
	Escapes        bool `toml:"escapes"`
}

type Folding struct {
	CollapseRegions bool `toml:"collapse_regions"`
	HintFormLines   int  `toml:"hint_form_lines"`
}

// Duration reads a duration string such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = duration
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		LogLevel:    "info",
		ExcludeDirs: []string{".git", ".venv", "node_modules"},
		Debounce:    Duration{DefaultDebounce},
		InlayHints: InlayHints{
			ParameterNames: true,
			Escapes:        true,
		},
		Folding: Folding{
			HintFormLines: DefaultHintFormLines,
		},
	}
}

// Load reads the config file from the standard location.
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFromFile(configPath)
}

// LoadFromFile reads config from filePath on top of the defaults. A missing
// file yields the defaults.
func LoadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.Debounce.Duration < 0 {
		return fmt.Errorf("negative debounce %s", c.Debounce)
	}
	if c.Folding.HintFormLines < 1 {
		return fmt.Errorf("hint_form_lines must be positive, got %d", c.Folding.HintFormLines)
	}
	return nil
}

// Path returns the path to the config file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tagd", "config.toml"), nil
}

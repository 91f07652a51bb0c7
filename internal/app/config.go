package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artpar/arbor/internal/tree"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	DataDir     string        `yaml:"data_dir"`
	DataSource  string        `yaml:"data"`
	Delay       time.Duration `yaml:"delay"`
	IndentSize  int           `yaml:"indent"`
	Placeholder string        `yaml:"placeholder"`
	Filter      bool          `yaml:"filter"`
	ClearPolicy string        `yaml:"clear_policy"`
	Debounce    time.Duration `yaml:"debounce"`
	Script      string        `yaml:"script"`
	Watch       bool          `yaml:"watch"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	StarredDB   string        `yaml:"starred_db"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:     "~/.arbor",
		Delay:       800 * time.Millisecond,
		IndentSize:  20,
		Placeholder: "Search Taxonomy...",
		Filter:      true,
		ClearPolicy: tree.ClearCollapseAll.String(),
		Debounce:    150 * time.Millisecond,
		LogLevel:    "info",
	}
}

// LoadConfig reads a YAML file over the defaults. A missing file is not an
// error when optional is set.
func LoadConfig(path string, optional bool) (Config, error) {
	cfg := DefaultConfig()

	content, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have a fixed vocabulary or range.
func (c Config) Validate() error {
	if _, ok := tree.ParseClearPolicy(c.ClearPolicy); !ok {
		return fmt.Errorf("invalid clear policy %q: want collapse or restore", c.ClearPolicy)
	}
	if c.IndentSize < 0 {
		return fmt.Errorf("invalid indent %d", c.IndentSize)
	}
	if c.Delay < 0 || c.Debounce < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Policy returns the parsed clear policy.
func (c Config) Policy() tree.ClearPolicy {
	p, _ := tree.ParseClearPolicy(c.ClearPolicy)
	return p
}

// ConfigPath returns the default config file location.
func (c Config) ConfigPath() string {
	return filepath.Join(ExpandPath(c.DataDir), "config.yaml")
}

// LogPath returns the log file, defaulting into the data directory.
func (c Config) LogPath() string {
	if c.LogFile != "" {
		return ExpandPath(c.LogFile)
	}
	return filepath.Join(ExpandPath(c.DataDir), "arbor.log")
}

// StarredPath returns the starred database, defaulting into the data
// directory.
func (c Config) StarredPath() string {
	if c.StarredDB != "" {
		return ExpandPath(c.StarredDB)
	}
	return filepath.Join(ExpandPath(c.DataDir), "starred.db")
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

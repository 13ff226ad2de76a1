package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/me/goramble/pkg/model"
	"gopkg.in/yaml.v3"
)

// Defaults is the table of literal defaults injected while resolving a
// document. Deployments override these through the config file rather than code.
type Defaults struct {
	Redirect      string              `yaml:"redirect"`       // Custom executable redirect target
	OutputCapture model.OutputCapture `yaml:"output_capture"` // Custom executable capture mode
	ChainOrder    model.ChainOrder    `yaml:"chain_order"`    // Order of a chained experiment without one
	ChainCommand  string              `yaml:"chain_command"`  // Command of a chained experiment without one
}

// Config holds configuration for goramble.
type Config struct {
	LogLevel     string   `yaml:"log_level"`     // Log level: debug, info, warn, error
	LogFormat    string   `yaml:"log_format"`    // Log format: text, json
	DBPath       string   `yaml:"db_path"`       // SQLite database path (":memory:" for testing)
	Addr         string   `yaml:"addr"`          // Listen address for serve (default ":8080")
	Workers      int      `yaml:"workers"`       // Concurrent leaf expansions, 0 = unlimited
	ModifierDirs []string `yaml:"modifier_dirs"` // Directories of interpreted modifier plugins
	Defaults     Defaults `yaml:"defaults"`
}

// DefaultDefaults returns the built-in defaults table.
func DefaultDefaults() Defaults {
	return Defaults{
		Redirect:      "{log_file}",
		OutputCapture: model.OutputDefault,
		ChainOrder:    model.ChainAfter,
		ChainCommand:  "{execute_experiment}",
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		DBPath:    "goramble.db",
		Addr:      ":8080",
		Workers:   4,
		Defaults:  DefaultDefaults(),
	}
}

// LoadFile reads a YAML config file on top of DefaultConfig and then applies
// GORAMBLE_* environment overrides. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GORAMBLE_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("GORAMBLE_LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := lookup("GORAMBLE_DB"); ok {
		c.DBPath = v
	}
	if v, ok := lookup("GORAMBLE_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("GORAMBLE_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GORAMBLE_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v, ok := lookup("GORAMBLE_MODIFIER_DIRS"); ok && v != "" {
		c.ModifierDirs = strings.Split(v, string(os.PathListSeparator))
	}
	return nil
}

// Validate checks the defaults table against the accepted enumerations.
func (c Config) Validate() error {
	switch c.Defaults.ChainOrder {
	case model.ChainBefore, model.ChainAfter:
	default:
		return fmt.Errorf("defaults.chain_order %q: must be before or after", c.Defaults.ChainOrder)
	}
	valid := false
	for _, oc := range model.OutputCaptures {
		if c.Defaults.OutputCapture == oc {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("defaults.output_capture %q is not a known capture mode", c.Defaults.OutputCapture)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

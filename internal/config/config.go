package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/logging"
)

// Config holds settings loaded from cfacdb.yml.
type Config struct {
	Dataset  string `yaml:"dataset,omitempty"`
	Debug    bool   `yaml:"debug,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
	Backend  string `yaml:"backend,omitempty"`
}

// Load attempts to read cfacdb.yml or cfacdb.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists. A relative dataset path is resolved against dir.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"cfacdb.yml", "cfacdb.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.Dataset != "" && !filepath.IsAbs(cfg.Dataset) {
			cfg.Dataset = filepath.Join(dir, cfg.Dataset)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &cfg, nil
	}
	return &Config{}, nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := dataset.ParseBackend(c.Backend); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, inf when unset.
func (c *Config) Level() logging.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}

// DatasetBackend returns the configured backend, sqlite when unset.
func (c *Config) DatasetBackend() dataset.Backend {
	b, _ := dataset.ParseBackend(c.Backend)
	return b
}

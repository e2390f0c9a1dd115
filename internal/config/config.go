package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig declares one scrape source
type SourceConfig struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"` // "feed" or "html"
	URL         string `yaml:"url"`
	RowSelector string `yaml:"row_selector,omitempty"` // html sources only
}

// Config is the service configuration. DATABASE_URL stays in the environment.
type Config struct {
	Sources              []SourceConfig `yaml:"sources"`
	CycleThreshold       int            `yaml:"cycle_threshold"`
	RemovedRetentionDays int            `yaml:"removed_retention_days"`
	ArchiveRetentionDays int            `yaml:"archive_retention_days"`
}

// Load reads and validates a yaml config file, applying defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.CycleThreshold == 0 {
		cfg.CycleThreshold = 2
	}
	if cfg.RemovedRetentionDays == 0 {
		cfg.RemovedRetentionDays = 7
	}
	if cfg.ArchiveRetentionDays == 0 {
		cfg.ArchiveRetentionDays = 30
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source missing name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true

		if s.URL == "" {
			return fmt.Errorf("source %s missing url", s.Name)
		}
		switch s.Kind {
		case "feed":
		case "html":
			if s.RowSelector == "" {
				return fmt.Errorf("html source %s missing row_selector", s.Name)
			}
		default:
			return fmt.Errorf("source %s has unknown kind %q", s.Name, s.Kind)
		}
	}
	return nil
}

// RemovedRetention returns the live-table grace window as a duration
func (c *Config) RemovedRetention() time.Duration {
	return time.Duration(c.RemovedRetentionDays) * 24 * time.Hour
}

// ArchiveRetention returns the archive retention window as a duration
func (c *Config) ArchiveRetention() time.Duration {
	return time.Duration(c.ArchiveRetentionDays) * 24 * time.Hour
}

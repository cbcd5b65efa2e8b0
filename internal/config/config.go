// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the YAML run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigVersion is the configuration schema version this build understands.
// Older config files must be migrated before a run starts.
const ConfigVersion = 1

// Config represents the application configuration
type Config struct {
	Version int `yaml:"version"`

	// Data source and export settings
	Data struct {
		Provider   string `yaml:"provider"`
		InputFile  string `yaml:"input_file"`
		OutputFile string `yaml:"output_file"`
		// MaxRows truncates the input; zero processes everything.
		MaxRows int `yaml:"max_rows"`
	} `yaml:"data"`

	// Annotation settings
	Annotation struct {
		RelevantFields    []string `yaml:"relevant_fields"`
		IgnoreCellValues  []string `yaml:"ignore_cell_values"`
		PerformExport     bool     `yaml:"perform_export"`
		PerformValidation bool     `yaml:"perform_validation"`
	} `yaml:"annotation"`

	// Phrase recognition settings
	Recognition struct {
		Chunker bool           `yaml:"chunker"`
		Remote  []RemoteSource `yaml:"remote"`
	} `yaml:"recognition"`

	// Fallback translation settings
	Translation struct {
		Enabled        bool   `yaml:"enabled"`
		BaseURL        string `yaml:"base_url"`
		SourceLanguage string `yaml:"source_language"`
		TargetLanguage string `yaml:"target_language"`
		APIKey         string `yaml:"api_key"`
	} `yaml:"translation"`

	// Terminology search settings
	Search struct {
		Kind          string   `yaml:"kind"`
		Terminologies []string `yaml:"terminologies"`
		Collections   []string `yaml:"collections"`
		Threshold     float64  `yaml:"threshold"`
		SearchURL     string   `yaml:"search_url"`
		CatalogURL    string   `yaml:"catalog_url"`
		TimeoutSecs   int      `yaml:"timeout_seconds"`
		MaxRetries    int      `yaml:"max_retries"`
	} `yaml:"search"`

	// Query cache settings
	Cache struct {
		Enabled  bool   `yaml:"enabled"`
		Path     string `yaml:"path"`
		TTLHours int    `yaml:"ttl_hours"`
		Persist  bool   `yaml:"persist"`
	} `yaml:"cache"`

	// Statistics settings
	Statistics struct {
		Persist bool   `yaml:"persist"`
		Path    string `yaml:"path"`
	} `yaml:"statistics"`

	// Worker pool size for phrase lookups
	Workers int `yaml:"workers"`

	// Web dashboard settings
	Web struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"web"`

	Debug bool `yaml:"debug"`
}

// RemoteSource configures one language-model recognition endpoint.
type RemoteSource struct {
	Name        string  `yaml:"name"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	System      string  `yaml:"system"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	TopK        int     `yaml:"top_k"`
	TopP        float64 `yaml:"top_p"`
	TimeoutSecs int     `yaml:"timeout_seconds"`
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// SearchTimeout returns the per-request terminology service timeout.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSecs) * time.Second
}

// LoadConfig reads the configuration at configPath on top of the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Set default values
	config.Version = ConfigVersion
	config.Data.Provider = "csv"
	config.Data.OutputFile = "annotated.csv"
	config.Annotation.PerformExport = true
	config.Annotation.PerformValidation = true
	config.Recognition.Chunker = true
	config.Translation.SourceLanguage = "de"
	config.Translation.TargetLanguage = "en"
	config.Search.Kind = "all_terminologies"
	config.Search.Threshold = 0.90
	config.Search.SearchURL = "https://api.terminology.tib.eu/api/search"
	config.Search.CatalogURL = "https://api.terminology.tib.eu/api/v2"
	config.Search.TimeoutSecs = 30
	config.Search.MaxRetries = 2
	config.Cache.Enabled = true
	config.Cache.Path = "query_cache.json"
	config.Cache.TTLHours = 168
	config.Cache.Persist = true
	config.Statistics.Persist = true
	config.Statistics.Path = "statistics.json"
	config.Workers = 4
	config.Web.Port = 8080

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
	}
	return config, nil
}

// FindConfigFile looks for a configuration file in the standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"bits.yaml",
		"bits.yml",
		".bits.yaml",
		".bits.yml",
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".bits", "config.yaml")
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig checks the configuration for values that would make a run
// fail halfway through. It is called once before any work starts.
func ValidateConfig(config *Config) error {
	if err := ValidateServiceConfig(config); err != nil {
		return err
	}
	if config.Data.Provider != "csv" {
		return fmt.Errorf("data provider %q is not supported", config.Data.Provider)
	}
	if config.Data.InputFile == "" {
		return fmt.Errorf("data.input_file must be set")
	}
	if config.Data.MaxRows < 0 {
		return fmt.Errorf("data.max_rows cannot be negative")
	}
	if len(config.Annotation.RelevantFields) == 0 {
		return fmt.Errorf("annotation.relevant_fields must name at least one column")
	}
	return nil
}

// ValidateServiceConfig checks only the settings needed to reach the remote
// services. Commands that never touch the dataset use this lighter check.
func ValidateServiceConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if config.Version != ConfigVersion {
		return fmt.Errorf("config version %d is not supported, expected %d", config.Version, ConfigVersion)
	}
	if config.Search.Threshold < 0 || config.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold %v is outside [0, 1]", config.Search.Threshold)
	}
	switch config.Search.Kind {
	case "terminology":
		if len(config.Search.Terminologies) == 0 {
			return fmt.Errorf("search.kind %q requires search.terminologies", config.Search.Kind)
		}
	case "collection":
		if len(config.Search.Collections) == 0 {
			return fmt.Errorf("search.kind %q requires search.collections", config.Search.Kind)
		}
	case "all_terminologies":
	default:
		return fmt.Errorf("search.kind %q is not supported", config.Search.Kind)
	}
	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if config.Web.Enabled && (config.Web.Port < 1 || config.Web.Port > 65535) {
		return fmt.Errorf("web.port %d is outside the valid port range", config.Web.Port)
	}
	for i, remote := range config.Recognition.Remote {
		if remote.BaseURL == "" {
			return fmt.Errorf("recognition.remote[%d] is missing base_url", i)
		}
		if remote.Model == "" {
			return fmt.Errorf("recognition.remote[%d] is missing model", i)
		}
	}
	if config.Translation.Enabled && config.Translation.BaseURL == "" {
		return fmt.Errorf("translation.base_url must be set when translation is enabled")
	}
	return nil
}

// Package config handles inspector configuration from YAML files, with
// JSON export/import for moving a configuration between instances.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level inspector configuration.
type Config struct {
	Page        PageConfig        `yaml:"page" json:"page"`
	Aggregation AggregationConfig `yaml:"aggregation" json:"aggregation"`
	Tracker     TrackerConfig     `yaml:"tracker" json:"tracker"`
	Debounce    DebounceConfig    `yaml:"debounce" json:"debounce"`
	Extraction  ExtractionConfig  `yaml:"extraction" json:"extraction"`
	Sinks       []SinkConfig      `yaml:"sinks" json:"sinks"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Browser     BrowserConfig     `yaml:"browser" json:"browser"`
}

// PageConfig identifies the page under inspection.
type PageConfig struct {
	ID     string `yaml:"id" json:"id"`
	URL    string `yaml:"url" json:"url"`
	ChatID string `yaml:"chat_id" json:"chat_id"`
}

// AggregationConfig controls the capture loop.
type AggregationConfig struct {
	Interval           time.Duration `yaml:"interval" json:"interval"`
	MaxContextSize     int           `yaml:"max_context_size" json:"max_context_size"`
	HistoryLimit       int           `yaml:"history_limit" json:"history_limit"`
	HistoryTrim        int           `yaml:"history_trim" json:"history_trim"`
	MaxEvents          int           `yaml:"max_events" json:"max_events"`
	RecentInteractions int           `yaml:"recent_interactions" json:"recent_interactions"`
	RecentValidations  int           `yaml:"recent_validations" json:"recent_validations"`
}

// TrackerConfig controls conditional-rendering bookkeeping.
type TrackerConfig struct {
	MaxTrackedElements int `yaml:"max_tracked_elements" json:"max_tracked_elements"`
	EvictBatch         int `yaml:"evict_batch" json:"evict_batch"`
	SnippetLen         int `yaml:"snippet_len" json:"snippet_len"`
}

// DebounceConfig controls change-event batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window" json:"window"`
	MaxBuffer int           `yaml:"max_buffer" json:"max_buffer"`
}

// ExtractionConfig gates the element extractor.
type ExtractionConfig struct {
	IncludeHidden    bool `yaml:"include_hidden" json:"include_hidden"`
	OnlyFormElements bool `yaml:"only_form_elements" json:"only_form_elements"`
	TestGeneration   bool `yaml:"test_generation" json:"test_generation"`
	MaxDepth         int  `yaml:"max_depth" json:"max_depth"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type" json:"type"` // stdout | webhook | callback
	URL  string `yaml:"url" json:"url"`   // for webhook
}

// StoreConfig locates the persisted-state database.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// BrowserConfig controls the live backend, when one is attached.
type BrowserConfig struct {
	Remote          string        `yaml:"remote" json:"remote"`
	Stealth         string        `yaml:"stealth" json:"stealth"` // headless | headful
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Aggregation.Interval <= 0 {
		c.Aggregation.Interval = 2 * time.Second
	}
	if c.Aggregation.MaxContextSize <= 0 {
		c.Aggregation.MaxContextSize = 50000
	}
	if c.Aggregation.HistoryLimit <= 0 {
		c.Aggregation.HistoryLimit = 50
	}
	if c.Aggregation.HistoryTrim <= 0 {
		c.Aggregation.HistoryTrim = 25
	}
	if c.Aggregation.MaxEvents <= 0 {
		c.Aggregation.MaxEvents = 20
	}
	if c.Aggregation.RecentInteractions <= 0 {
		c.Aggregation.RecentInteractions = 10
	}
	if c.Aggregation.RecentValidations <= 0 {
		c.Aggregation.RecentValidations = 10
	}
	if c.Tracker.MaxTrackedElements <= 0 {
		c.Tracker.MaxTrackedElements = 1000
	}
	if c.Tracker.EvictBatch <= 0 {
		c.Tracker.EvictBatch = 100
	}
	if c.Tracker.SnippetLen <= 0 {
		c.Tracker.SnippetLen = 150
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
	if c.Extraction.MaxDepth <= 0 {
		c.Extraction.MaxDepth = 15
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
}

// Export serialises the configuration to JSON. Import of the result into
// a fresh instance reproduces the configuration field for field.
func (c *Config) Export() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Import deserialises a configuration previously produced by Export.
// Defaults are not re-applied: the export already carries resolved values.
func Import(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: import: %w", err)
	}
	return &cfg, nil
}

package inspect

import "github.com/osawyer/domscope/inspect/internal/config"

// Config aliases the internal configuration so callers construct and
// load it without importing the internal package.
type Config = config.Config

// SinkConfig aliases the sink entry type for programmatic configuration.
type SinkConfig = config.SinkConfig

// LoadConfig reads a YAML configuration file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ImportConfig deserialises a configuration previously produced by
// Config.Export.
func ImportConfig(data []byte) (*Config, error) {
	return config.Import(data)
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Package config loads service configuration from a yaml file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"cryptdelve.gg/internal/blocktime"
	"cryptdelve.gg/internal/fog"
)

type Config struct {
	Addr string `yaml:"addr" env:"DELVE_ADDR"`

	// AvgBlockTimeMs drives block-to-timestamp extrapolation.
	AvgBlockTimeMs int64 `yaml:"avg_block_time_ms" env:"DELVE_AVG_BLOCK_TIME_MS"`

	// Exploration storage knobs.
	StoragePrefix  string `yaml:"storage_prefix" env:"DELVE_STORAGE_PREFIX"`
	SchemaVersion  int    `yaml:"schema_version" env:"DELVE_SCHEMA_VERSION"`
	MaxStoredAreas int    `yaml:"max_stored_areas" env:"DELVE_MAX_STORED_AREAS"`

	KVPath     string `yaml:"kv_path" env:"DELVE_KV_PATH"`
	KVMaxBytes int    `yaml:"kv_max_bytes" env:"DELVE_KV_MAX_BYTES"`

	// CaptureDir, when set, records every ingested batch for replay.
	CaptureDir string `yaml:"capture_dir" env:"DELVE_CAPTURE_DIR"`

	SchemaDir string `yaml:"schema_dir" env:"DELVE_SCHEMA_DIR"`
}

// Default returns the reference-deployment configuration.
func Default() Config {
	return Config{
		Addr:           ":8080",
		AvgBlockTimeMs: blocktime.DefaultAvgBlockMs,
		StoragePrefix:  fog.DefaultPrefix,
		SchemaVersion:  fog.SchemaVersion,
		MaxStoredAreas: fog.DefaultMaxAreas,
		KVPath:         "./data/kv.db",
		SchemaDir:      "./schemas",
	}
}

// Load reads path (optional: empty path keeps defaults), then applies env
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config yaml: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	return cfg, nil
}

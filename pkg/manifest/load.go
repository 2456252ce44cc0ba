package manifest

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Load reads, decodes and validates the manifest at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes and validates a manifest already in memory.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("manifest: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("manifest: %w", err)
	}
	return cfg, nil
}

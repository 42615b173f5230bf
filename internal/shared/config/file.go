package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile decodes a YAML file over cfg. Keys missing from the file keep
// their current values; durations use Go syntax ("90s", "2h").
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

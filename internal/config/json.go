package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseJSON loads a [Config] from the JSON file at path.
func parseJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading json config %q: %w", path, err)
	}

	cfg := &Config{}
	if err = json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing json config %q: %w", path, err)
	}

	return cfg, nil
}

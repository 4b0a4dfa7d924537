package cmd

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// fileConfig mirrors the optional YAML config file. Flags that were
// set explicitly on the command line win over file values.
type fileConfig struct {
	Provider           string  `yaml:"provider"`
	Language           string  `yaml:"language"`
	Engine             int     `yaml:"engine"`
	Scale              bool    `yaml:"scale"`
	SizeThresholdBytes int     `yaml:"size_threshold_bytes"`
	OverlapPercentage  float64 `yaml:"overlap_percentage"`
	VerticalThreshold  int     `yaml:"vertical_threshold"`
	Quality            int     `yaml:"quality"`
	Concurrency        int     `yaml:"concurrency"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

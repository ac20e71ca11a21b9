package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainconfig "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/config"
)

// overlayFile applies the keys present in a YAML file on top of c
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadGraphFile reads only the graph section of a YAML config file.
// Keys missing from the file keep their defaults.
func LoadGraphFile(path string) (*domainconfig.GraphConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	doc := struct {
		Graph *domainconfig.GraphConfig `yaml:"graph"`
	}{Graph: domainconfig.DefaultGraphConfig()}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return doc.Graph.Normalize(), nil
}

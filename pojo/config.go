package pojo

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config controls how mappers match properties to columns.
type Config struct {
	// StrictMatching fails specialization when columns under the mapper's
	// prefix are left unclaimed by any property.
	StrictMatching bool
	// StrictColumnTypes fails specialization when a matched property has no
	// column mapper. When false the raw column value is passed through.
	StrictColumnTypes bool
	// Matchers is the column name matcher chain, tried in order.
	Matchers []ColumnNameMatcher
}

// DefaultConfig returns lenient matching, strict column types and the
// default matcher chain.
func DefaultConfig() Config {
	return Config{
		StrictColumnTypes: true,
		Matchers:          DefaultMatchers(),
	}
}

// matchers by configuration name.
var matchers = map[string]func() ColumnNameMatcher{
	"case_insensitive": CaseInsensitive,
	"snake_case":       SnakeCase,
}

// fileConfig is the YAML form of Config. Absent keys keep their defaults.
type fileConfig struct {
	StrictMatching    *bool    `yaml:"strict_matching"`
	StrictColumnTypes *bool    `yaml:"strict_column_types"`
	Matchers          []string `yaml:"matchers"`
}

// ParseConfig parses a YAML configuration on top of DefaultConfig:
//
//	strict_matching: true
//	strict_column_types: false
//	matchers: [case_insensitive, snake_case]
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("pojo: parsing config: %w", err)
	}
	if fc.StrictMatching != nil {
		cfg.StrictMatching = *fc.StrictMatching
	}
	if fc.StrictColumnTypes != nil {
		cfg.StrictColumnTypes = *fc.StrictColumnTypes
	}
	if fc.Matchers != nil {
		cfg.Matchers = make([]ColumnNameMatcher, 0, len(fc.Matchers))
		for _, name := range fc.Matchers {
			m, ok := matchers[name]
			if !ok {
				return cfg, fmt.Errorf("pojo: unknown column name matcher %q", name)
			}
			cfg.Matchers = append(cfg.Matchers, m())
		}
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("pojo: reading config: %w", err)
	}
	return ParseConfig(data)
}

func (c Config) clone() Config {
	c.Matchers = slices.Clone(c.Matchers)
	return c
}

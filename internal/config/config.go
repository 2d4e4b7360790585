// Package config loads the discovery configuration from YAML. Per-target
// fields fall back to the global defaults when left empty.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"netscribe/internal/discover"
)

type Config struct {
	Community   string            `yaml:"community"`
	Port        uint16            `yaml:"port"`
	Timeout     float64           `yaml:"timeout"` // seconds
	Retries     int               `yaml:"retries"`
	Concurrency int               `yaml:"concurrency"`
	Listen      string            `yaml:"listen"`
	OutputDir   string            `yaml:"output_dir"`
	Targets     []discover.Target `yaml:"targets"`
}

func DefaultConfig() Config {
	return Config{
		Community:   "public",
		Port:        161,
		Timeout:     5,
		Retries:     1,
		Concurrency: 8,
		Listen:      ":8735",
	}
}

func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = DefaultConfig()

	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	for i := range c.Targets {
		if c.Targets[i].Community == "" {
			c.Targets[i].Community = c.Community
		}
		if c.Targets[i].Port == 0 {
			c.Targets[i].Port = c.Port
		}
	}

	return nil
}

// Load reads and validates the config file. Unknown keys are rejected so a
// typo never silently falls back to a default.
func Load(path string) (*Config, error) {
	yamlReader, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %s", err)
	}
	defer yamlReader.Close()

	c := &Config{}
	decoder := yaml.NewDecoder(yamlReader)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %s", err)
	}

	for i, t := range c.Targets {
		if t.Address == "" {
			return nil, fmt.Errorf("target %d has no address", i)
		}
	}

	return c, nil
}

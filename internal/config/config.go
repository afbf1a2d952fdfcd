package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models rue.yml.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Server  struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Pipeline struct {
		Workers int `yaml:"workers"`
		// MaxStep bounds generation to steps [0, MaxStep). Nil means run the
		// full registry.
		MaxStep    *int   `yaml:"max_step"`
		FixtureDir string `yaml:"fixture_dir"`
	} `yaml:"pipeline"`
}

// Default returns the default config rooted at a workspace directory.
func Default(workspace string) *Config {
	if workspace == "" {
		workspace = "."
	}
	var cfg Config
	cfg.DataDir = filepath.Join(workspace, "projects")
	cfg.Server.Addr = "127.0.0.1:8000"
	cfg.Server.BasePath = "/v1"
	cfg.Pipeline.Workers = 4
	return &cfg
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "rue.yml")
}

// Load reads config from the workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(workspace), nil
		}
		return nil, err
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults(workspace)
	return cfg, cfg.Validate()
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.applyDefaults(".")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(workspace string) {
	d := Default(workspace)
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = d.Server.BasePath
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = d.Pipeline.Workers
	}
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config.data_dir is required")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config.pipeline.workers must be at least 1")
	}
	if c.Pipeline.MaxStep != nil && *c.Pipeline.MaxStep < 0 {
		return fmt.Errorf("config.pipeline.max_step must not be negative")
	}
	return nil
}

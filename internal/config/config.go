package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"projectdesk/internal/datasource"
)

// Config models projectdesk.yml.
type Config struct {
	DataSource struct {
		Mode       string        `yaml:"mode"`
		APIBaseURL string        `yaml:"api_base_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Fixture struct {
		Latency       time.Duration `yaml:"latency"`
		SearchLatency time.Duration `yaml:"search_latency"`
		SeedFile      string        `yaml:"seed_file"`
	} `yaml:"fixture"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Mode returns the parsed data source mode. Call Validate first.
func (c *Config) Mode() datasource.Mode {
	m, err := datasource.Parse(c.DataSource.Mode)
	if err != nil {
		return datasource.Fixture
	}
	return m
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with pd config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if _, err := datasource.Parse(c.DataSource.Mode); err != nil {
		return fmt.Errorf("config.data_source.mode: %w", err)
	}
	if c.DataSource.APIBaseURL == "" {
		return fmt.Errorf("config.data_source.api_base_url is required")
	}
	u, err := url.Parse(c.DataSource.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.data_source.api_base_url %q is not an absolute url", c.DataSource.APIBaseURL)
	}
	if c.DataSource.Timeout <= 0 {
		return fmt.Errorf("config.data_source.timeout must be positive")
	}
	if c.Fixture.Latency < 0 || c.Fixture.SearchLatency < 0 {
		return fmt.Errorf("config.fixture latencies must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && c.Server.BasePath[0] != '/' {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config.log.format must be console or json")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "projectdesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `data_source:
  # fixture | remote
  mode: fixture
  api_base_url: http://localhost:3000/api
  timeout: 10s

fixture:
  latency: 300ms
  search_latency: 800ms
  seed_file: ""

server:
  addr: 127.0.0.1:3000
  base_path: /api

log:
  level: info
  format: console
`

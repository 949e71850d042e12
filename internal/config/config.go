package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "opsdeck.yml"

// Config models opsdeck.yml.
type Config struct {
	Remote struct {
		BaseURL string `yaml:"base_url"`
		AnonKey string `yaml:"anon_key"`
	} `yaml:"remote"`
	Identity struct {
		URL string `yaml:"url"`
	} `yaml:"identity"`
	Operator struct {
		Name  string `yaml:"name"`
		Emoji string `yaml:"emoji"`
	} `yaml:"operator"`
	Engine struct {
		SettleDelay time.Duration `yaml:"settle_delay"`
	} `yaml:"engine"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Default returns the built-in configuration. The remote URLs are empty, so
// a session started from it runs offline.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"remote.base_url": c.Remote.BaseURL, "identity.url": c.Identity.URL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config.%s must be an http(s) URL", name)
		}
	}
	if c.Engine.SettleDelay < 0 {
		return fmt.Errorf("config.engine.settle_delay must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("config.log.format must be json or console")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Online reports whether a remote store is configured.
func (c *Config) Online() bool {
	return c.Remote.BaseURL != ""
}

// FromYAML parses config over the defaults and validates it.
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

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with opsdeck config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `remote:
  base_url: ""
  anon_key: ""

identity:
  url: ""

operator:
  name: Tiger
  emoji: "🐯"

engine:
  settle_delay: 2s

log:
  level: warn
  format: console

server:
  addr: 127.0.0.1:7420
  base_path: /v0
`

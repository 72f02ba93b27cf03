package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists
const DefaultPath = "go-editor.yaml"

type Config struct {
	PluginsDir  string        `yaml:"plugins_dir"`
	EntryPlugin string        `yaml:"entry_plugin"`
	ScriptExt   string        `yaml:"script_ext"`
	Timeout     time.Duration `yaml:"timeout"`
	OnDuplicate string        `yaml:"on_duplicate"`
	StoragePath string        `yaml:"storage_path"`
	LogLevel    string        `yaml:"log_level"`
	ServeAddr   string        `yaml:"serve_addr"`
	Builtins    *bool         `yaml:"builtins"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, applies defaults and environment overrides. An empty
// path loads DefaultPath if it exists and defaults otherwise.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GO_EDITOR_PLUGINS_DIR"); v != "" {
		c.PluginsDir = v
	}
	if v := os.Getenv("GO_EDITOR_STORAGE_PATH"); v != "" {
		c.StoragePath = v
	}
	if v := os.Getenv("GO_EDITOR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) applyDefaults() {
	if c.PluginsDir == "" {
		c.PluginsDir = "plugins"
	}
	if c.EntryPlugin == "" {
		c.EntryPlugin = "hello"
	}
	if c.ScriptExt == "" {
		c.ScriptExt = ".lua"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.OnDuplicate == "" {
		c.OnDuplicate = "replace"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ServeAddr == "" {
		c.ServeAddr = ":8990"
	}
	if c.Builtins == nil {
		enabled := true
		c.Builtins = &enabled
	}
}

// BuiltinsEnabled reports whether compiled-in plugins should be registered
func (c *Config) BuiltinsEnabled() bool {
	return c.Builtins == nil || *c.Builtins
}

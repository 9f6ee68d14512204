package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config holds all stagebox settings, shared by the server and the CLI.
type Config struct {
	// Port is the HTTP port the server listens on.
	Port int `koanf:"port" yaml:"port"`
	// DataDir holds the sqlite database and extracted app trees.
	DataDir string `koanf:"data_dir" yaml:"data_dir"`
	// ServerURL is the base URL CLI commands talk to.
	ServerURL string `koanf:"server_url" yaml:"server_url"`
	// AllowAllOrigins relaxes CORS for development.
	AllowAllOrigins bool `koanf:"allow_all_origins" yaml:"allow_all_origins"`
	// IgnoreGlobs are doublestar patterns hidden from file trees.
	IgnoreGlobs []string `koanf:"ignore_globs" yaml:"ignore_globs"`
	// MaxUploadMB caps the size of accepted zip uploads.
	MaxUploadMB int64 `koanf:"max_upload_mb" yaml:"max_upload_mb"`
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (STAGEBOX_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: STAGEBOX_PORT -> port, etc.
	if err := k.Load(env.Provider("STAGEBOX_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "STAGEBOX_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	return nil
}

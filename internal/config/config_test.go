package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DataDir != ".stagebox" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.MaxUploadMB != 100 {
		t.Errorf("MaxUploadMB = %d, want 100", cfg.MaxUploadMB)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".stagebox.yml")
	content := "port: 9000\ndata_dir: /tmp/sb\nignore_globs:\n  - '**/*.map'\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.DataDir != "/tmp/sb" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if len(cfg.IgnoreGlobs) != 1 || cfg.IgnoreGlobs[0] != "**/*.map" {
		t.Errorf("IgnoreGlobs = %v", cfg.IgnoreGlobs)
	}
	// Untouched keys keep their defaults.
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("STAGEBOX_PORT", "7777")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = -1 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty server url", func(c *Config) { c.ServerURL = "" }},
		{"zero upload cap", func(c *Config) { c.MaxUploadMB = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".stagebox.yml")
	cfg := DefaultConfig()
	cfg.Port = 9999
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Port != 9999 {
		t.Errorf("Port = %d, want 9999", loaded.Port)
	}
}

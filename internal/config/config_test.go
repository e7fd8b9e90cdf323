package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Errorf("exists = true for a missing file at %s", path)
	}
	if cfg.Server.Bind != "127.0.0.1:8000" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
	if cfg.Art.CacheTTLSeconds != 1800 || cfg.Art.RateLimitPerMinute != 30 {
		t.Errorf("art defaults = %+v", cfg.Art)
	}
	if cfg.Staging.StaleAfterHours != 24 {
		t.Errorf("staging defaults = %+v", cfg.Staging)
	}
	if !filepath.IsAbs(cfg.Paths.StagingDir) {
		t.Errorf("staging dir not expanded: %q", cfg.Paths.StagingDir)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
bind = "0.0.0.0:9001"

[logging]
level = "DEBUG"
format = "JSON"

[rawg]
api_key = "  secret  "
base_url = "https://rawg.example.com/api/"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Server.Bind != "0.0.0.0:9001" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging not lowercased: %+v", cfg.Logging)
	}
	if cfg.RAWG.APIKey != "secret" {
		t.Errorf("api key not trimmed: %q", cfg.RAWG.APIKey)
	}
	if cfg.RAWG.BaseURL != "https://rawg.example.com/api" {
		t.Errorf("base url not trimmed: %q", cfg.RAWG.BaseURL)
	}
	// Unset sections keep their defaults.
	if cfg.Art.CacheMaxSize != 200 {
		t.Errorf("art = %+v", cfg.Art)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"empty bind", "[server]\nbind = \"  \"\n", "server.bind"},
		{"zero rate limit", "[art]\nrate_limit_per_minute = 0\n", "rate_limit_per_minute"},
		{"negative timeout", "[rawg]\ntimeout_seconds = -1\n", "timeout_seconds"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestCreateSampleThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("sample config not detected")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config must validate: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/opldock/staging")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "opldock", "staging") {
		t.Errorf("ExpandPath = %q", got)
	}

	if got, err := ExpandPath(""); err != nil || got != "" {
		t.Errorf("empty path = %q, %v", got, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s missing", dir)
		}
	}
}

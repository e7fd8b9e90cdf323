package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP bind address.
type Server struct {
	Bind string `toml:"bind"`
}

// Paths contains the working directories of the daemon.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// RAWG contains settings for the cover-art search provider.
type RAWG struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Art contains cache and rate-limit settings for art search.
type Art struct {
	CacheTTLSeconds    int     `toml:"cache_ttl_seconds"`
	CacheMaxSize       int     `toml:"cache_max_size"`
	RateLimitPerMinute int     `toml:"rate_limit_per_minute"`
	MinIntervalSeconds float64 `toml:"min_interval_seconds"`
}

// Staging contains hygiene settings for the upload staging area.
type Staging struct {
	StaleAfterHours int `toml:"stale_after_hours"`
}

// Config encapsulates all configuration values for opldock.
type Config struct {
	Server  Server  `toml:"server"`
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	RAWG    RAWG    `toml:"rawg"`
	Art     Art     `toml:"art"`
	Staging Staging `toml:"staging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{Bind: "127.0.0.1:8000"},
		Paths: Paths{
			StagingDir: "~/.cache/opldock/staging",
			LogDir:     "~/.local/state/opldock/logs",
		},
		Logging: Logging{Level: "info", Format: "console"},
		RAWG: RAWG{
			BaseURL:        "https://api.rawg.io/api/games",
			TimeoutSeconds: 20,
		},
		Art: Art{
			CacheTTLSeconds:    1800,
			CacheMaxSize:       200,
			RateLimitPerMinute: 30,
			MinIntervalSeconds: 1.5,
		},
		Staging: Staging{StaleAfterHours: 24},
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/opldock/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("opldock.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = ExpandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.RAWG.APIKey = strings.TrimSpace(c.RAWG.APIKey)
	c.RAWG.BaseURL = strings.TrimRight(strings.TrimSpace(c.RAWG.BaseURL), "/")
	return nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Bind == "" {
		return fmt.Errorf("server.bind must not be empty")
	}
	if c.Paths.StagingDir == "" {
		return fmt.Errorf("paths.staging_dir must not be empty")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.RAWG.TimeoutSeconds <= 0 {
		return fmt.Errorf("rawg.timeout_seconds must be positive")
	}
	if c.Art.CacheMaxSize <= 0 {
		return fmt.Errorf("art.cache_max_size must be positive")
	}
	if c.Art.RateLimitPerMinute <= 0 {
		return fmt.Errorf("art.rate_limit_per_minute must be positive")
	}
	if c.Staging.StaleAfterHours <= 0 {
		return fmt.Errorf("staging.stale_after_hours must be positive")
	}
	return nil
}

// EnsureDirectories creates the staging and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath expands a leading ~ and returns a cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

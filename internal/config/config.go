// ABOUTME: Configuration loader for the blackbox client
// ABOUTME: Layers defaults, config.yaml, .env files and BLACKBOX_* environment variables

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG config subdirectory
const AppName = "blackbox"

// Default service locations match a local development deployment
const (
	DefaultIdentityURL = "http://localhost:8000/api/users"
	DefaultStatusURL   = "http://localhost:8080"
	DefaultPlayURL     = "http://localhost:8003"
	DefaultPlayer      = "mpv"
)

type Config struct {
	// Services
	IdentityURL string `yaml:"identity_url"`
	StatusURL   string `yaml:"status_url"`
	PlayURL     string `yaml:"play_url"`

	// Playback
	Player     string   `yaml:"player"`
	PlayerArgs []string `yaml:"player_args"`
	EagerURLs  bool     `yaml:"eager_urls"` // resolve a day's URLs in one batch after listing

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ConfigDir holds session.json, config.yaml and debug.log
	ConfigDir string `yaml:"-"`
}

// DefaultConfigDir returns the default config directory following the XDG base directory layout
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		IdentityURL: DefaultIdentityURL,
		StatusURL:   DefaultStatusURL,
		PlayURL:     DefaultPlayURL,
		Player:      DefaultPlayer,
		PlayerArgs:  []string{"--really-quiet"},
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load builds the configuration for configDir (DefaultConfigDir when empty).
// Later layers win: defaults, config.yaml, .env files, environment.
// Command-line flags are applied by the caller afterwards.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Defaults()
	cfg.ConfigDir = configDir

	if configDir != "" {
		if err := cfg.loadFile(filepath.Join(configDir, "config.yaml")); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the environment,
	// so the real environment keeps precedence over both files.
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.IdentityURL = ensureScheme(getEnv("BLACKBOX_IDENTITY_URL", c.IdentityURL))
	c.StatusURL = ensureScheme(getEnv("BLACKBOX_STATUS_URL", c.StatusURL))
	c.PlayURL = ensureScheme(getEnv("BLACKBOX_PLAY_URL", c.PlayURL))

	c.Player = getEnv("BLACKBOX_PLAYER", c.Player)
	c.PlayerArgs = getEnvStringList("BLACKBOX_PLAYER_ARGS", c.PlayerArgs)
	c.EagerURLs = getEnvBool("BLACKBOX_EAGER_URLS", c.EagerURLs)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate checks the service URLs and the player command
func (c *Config) Validate() error {
	for _, svc := range []struct {
		name  string
		value string
	}{
		{"identity_url", c.IdentityURL},
		{"status_url", c.StatusURL},
		{"play_url", c.PlayURL},
	} {
		if svc.value == "" {
			return fmt.Errorf("%s is required", svc.name)
		}
		u, err := url.Parse(svc.value)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", svc.name, svc.value)
		}
	}
	if strings.TrimSpace(c.Player) == "" {
		return fmt.Errorf("player is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvStringList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.Fields(value)
}

// ensureScheme adds http:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}

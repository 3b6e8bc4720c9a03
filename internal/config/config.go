// Package config provides YAML-based configuration for the
// document-generation client.
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

// Config holds every client tunable. Delays are expressed in the unit
// named by the field so the YAML stays plain integers.
type Config struct {
	// Server configuration
	ServerURL     string `yaml:"server_url"`
	WebSocketPath string `yaml:"websocket_path"`

	// Request behavior
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// Scheduling tunables
	ParseDelayMillis       int `yaml:"parse_delay_millis"`
	ReconnectDelayMillis   int `yaml:"reconnect_delay_millis"`
	PollIntervalSeconds    int `yaml:"poll_interval_seconds"`
	StatusCheckDelayMillis int `yaml:"status_check_delay_millis"`

	// Output
	DownloadDir string `yaml:"download_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ServerURL:              "http://localhost:8000",
		WebSocketPath:          "/ws/progress",
		RequestTimeoutSeconds:  30,
		ParseDelayMillis:       1000,
		ReconnectDelayMillis:   3000,
		PollIntervalSeconds:    2,
		StatusCheckDelayMillis: 1000,
		DownloadDir:            "./downloads",
	}
}

// Load reads configuration from a YAML file. If the file does not exist a
// default config is written there and returned.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnvironmentOverrides()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.resolvePaths(filepath.Dir(configPath))

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Document generation client configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *Config) applyEnvironmentOverrides() {
	if serverURL := os.Getenv("DOCGEN_SERVER_URL"); serverURL != "" {
		c.ServerURL = serverURL
	}
	if downloadDir := os.Getenv("DOCGEN_DOWNLOAD_DIR"); downloadDir != "" {
		c.DownloadDir = downloadDir
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *Config) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.DownloadDir) {
		c.DownloadDir = filepath.Join(configDir, c.DownloadDir)
	}
}

// RequestTimeout returns the per-request HTTP deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ParseDelay is the pause between a finished upload and its parse request.
func (c *Config) ParseDelay() time.Duration {
	return time.Duration(c.ParseDelayMillis) * time.Millisecond
}

// ReconnectDelay is the pause before re-dialing a lost progress channel.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMillis) * time.Millisecond
}

// PollInterval is the spacing between task status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// StatusCheckDelay is the pause between starting a generation task and the
// first status poll.
func (c *Config) StatusCheckDelay() time.Duration {
	return time.Duration(c.StatusCheckDelayMillis) * time.Millisecond
}

// WebSocketURL derives the progress channel endpoint from the server URL,
// swapping the scheme to its websocket counterpart.
func (c *Config) WebSocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("server URL %q must use http or https", c.ServerURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.WebSocketPath
	return u.String(), nil
}

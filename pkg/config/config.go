package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory, with
// environment variables taking precedence for deployment overrides.
//
// Example (~/.aicbot/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 5000
// manus:
//   base_url: https://api.manus.ai/v1
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - The API key is only ever read from the environment (MANUS_API_KEY); it is
//   never written to the config file.
type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Manus  ManusConfig  `yaml:"manus"`
	Data   DataConfig   `yaml:"data"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type ManusConfig struct {
	BaseURL *string `yaml:"base_url"`
}

type DataConfig struct {
	Path *string `yaml:"path"`
}

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 5000
	DefaultManusBaseURL = "https://api.manus.ai/v1"
)

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".aicbot")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.aicbot/config.yaml.
// If the file doesn't exist, it returns a default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	if strings.TrimSpace(cfg.Host()) == "" {
		return nil, "", fmt.Errorf("invalid server.host (empty) in %s", configFile)
	}
	if port := cfg.Port(); port < 1 || port > 65535 {
		return nil, "", fmt.Errorf("invalid server.port %d in %s", port, configFile)
	}

	return cfg, configFile, nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already exist.
// It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	defaultCfg := AppConfig{
		Server: ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)},
		Manus:  ManusConfig{BaseURL: ptr(DefaultManusBaseURL)},
	}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

func (c *AppConfig) Host() string {
	if v := strings.TrimSpace(os.Getenv("AICBOT_HOST")); v != "" {
		return v
	}
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	if v := strings.TrimSpace(*c.Server.Host); v != "" {
		return v
	}
	return DefaultHost
}

func (c *AppConfig) Port() int {
	if v := strings.TrimSpace(os.Getenv("AICBOT_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p >= 1 && p <= 65535 {
			return p
		}
	}
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

// ManusAPIKey returns the upstream provider credential. Environment only.
func (c *AppConfig) ManusAPIKey() string {
	return strings.TrimSpace(os.Getenv("MANUS_API_KEY"))
}

func (c *AppConfig) ManusBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("MANUS_API_BASE_URL")); v != "" {
		return strings.TrimSuffix(v, "/")
	}
	if c == nil || c.Manus.BaseURL == nil {
		return DefaultManusBaseURL
	}
	if v := strings.TrimSpace(*c.Manus.BaseURL); v != "" {
		return strings.TrimSuffix(v, "/")
	}
	return DefaultManusBaseURL
}

// DataPath returns the SQLite database path.
func (c *AppConfig) DataPath() (string, error) {
	if v := strings.TrimSpace(os.Getenv("AICBOT_DATA_PATH")); v != "" {
		return v, nil
	}
	if c != nil && c.Data.Path != nil && strings.TrimSpace(*c.Data.Path) != "" {
		return strings.TrimSpace(*c.Data.Path), nil
	}
	configDir, _, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "aicbot.db"), nil
}

func ptr[T any](v T) *T { return &v }

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile_ReturnsDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path == "" {
		t.Fatalf("expected config path")
	}
	if got := cfg.Host(); got != DefaultHost {
		t.Fatalf("cfg.Host() = %q, want %q", got, DefaultHost)
	}
	if got := cfg.Port(); got != DefaultPort {
		t.Fatalf("cfg.Port() = %d, want %d", got, DefaultPort)
	}
	if got := cfg.ManusBaseURL(); got != DefaultManusBaseURL {
		t.Fatalf("cfg.ManusBaseURL() = %q, want %q", got, DefaultManusBaseURL)
	}
}

func TestEnsureDefaultConfig_CreatesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := EnsureDefaultConfig()
	if err != nil {
		t.Fatalf("EnsureDefaultConfig() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist at %s: %v", path, err)
	}

	cfg, gotPath, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if filepath.Clean(gotPath) != filepath.Clean(path) {
		t.Fatalf("Load() path = %s, want %s", gotPath, path)
	}
	if got := cfg.Port(); got != DefaultPort {
		t.Fatalf("cfg.Port() = %d, want %d", got, DefaultPort)
	}
}

func TestLoad_ParsesConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".aicbot")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := "server:\n  host: 0.0.0.0\n  port: 9000\nmanus:\n  base_url: https://manus.example.com/v1/\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Host(); got != "0.0.0.0" {
		t.Fatalf("cfg.Host() = %q, want %q", got, "0.0.0.0")
	}
	if got := cfg.Port(); got != 9000 {
		t.Fatalf("cfg.Port() = %d, want %d", got, 9000)
	}
	if got := cfg.ManusBaseURL(); got != "https://manus.example.com/v1" {
		t.Fatalf("cfg.ManusBaseURL() = %q, want trailing slash trimmed", got)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".aicbot")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("server:\n  port: 99999\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for out-of-range port")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AICBOT_PORT", "7777")
	t.Setenv("MANUS_API_KEY", "sk-test-key")
	t.Setenv("MANUS_API_BASE_URL", "https://override.example.com/v2/")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Port(); got != 7777 {
		t.Fatalf("cfg.Port() = %d, want 7777", got)
	}
	if got := cfg.ManusAPIKey(); got != "sk-test-key" {
		t.Fatalf("cfg.ManusAPIKey() = %q, want %q", got, "sk-test-key")
	}
	if got := cfg.ManusBaseURL(); got != "https://override.example.com/v2" {
		t.Fatalf("cfg.ManusBaseURL() = %q, want env override with slash trimmed", got)
	}
}

func TestDataPath_Default(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &AppConfig{}
	got, err := cfg.DataPath()
	if err != nil {
		t.Fatalf("DataPath() error = %v", err)
	}
	want := filepath.Join(home, ".aicbot", "aicbot.db")
	if got != want {
		t.Fatalf("DataPath() = %q, want %q", got, want)
	}
}

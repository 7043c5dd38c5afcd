package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func stubLookPath(t *testing.T, found bool) {
	t.Helper()
	orig := execLookPath
	execLookPath = func(file string) (string, error) {
		if found {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { execLookPath = orig })
}

func TestValidate(t *testing.T) {
	stubLookPath(t, true)

	base := func() Config {
		cfg := Config{}
		applyDefaults(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "relative api url",
			mutate:  func(c *Config) { c.API.BaseURL = "localhost:8000" },
			wantErr: true,
		},
		{
			name:    "volume above range",
			mutate:  func(c *Config) { c.Player.InitialVolume = 120 },
			wantErr: true,
		},
		{
			name:    "template without placeholder",
			mutate:  func(c *Config) { c.Player.MediaURLTemplate = "https://example.com/watch" },
			wantErr: true,
		},
		{
			name:    "negative burst",
			mutate:  func(c *Config) { c.Resolver.Burst = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMissingMPV(t *testing.T) {
	stubLookPath(t, false)
	cfg := Config{}
	applyDefaults(&cfg)
	cfg.Player.MPVPath = "/invalid/mpv/path"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing mpv")
	}
}

func TestLoadFile(t *testing.T) {
	stubLookPath(t, true)
	t.Setenv("DISCOTUNE_API_URL", "")
	t.Setenv("DISCOTUNE_MPV_PATH", "")
	t.Setenv("DISCOTUNE_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
base_url = "http://music.example:9000/"

[player]
initial_volume = 40
bootstrap_timeout_ms = 2500

[queue]
persist = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.API.BaseURL != "http://music.example:9000" {
		t.Errorf("base url = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.Player.InitialVolume != 40 {
		t.Errorf("initial volume = %d, want 40", cfg.Player.InitialVolume)
	}
	if cfg.BootstrapTimeout().Milliseconds() != 2500 {
		t.Errorf("bootstrap timeout = %v", cfg.BootstrapTimeout())
	}
	if cfg.PersistQueue() {
		t.Error("expected queue persistence disabled")
	}
	if cfg.Resolver.TimeoutMs != 10000 {
		t.Errorf("resolver timeout default = %d, want 10000", cfg.Resolver.TimeoutMs)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	stubLookPath(t, true)
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for explicit missing config")
	}
}

func TestEnvOverride(t *testing.T) {
	stubLookPath(t, true)
	t.Setenv("DISCOTUNE_API_URL", "https://api.example.com")
	t.Setenv("DISCOTUNE_MPV_PATH", "")
	t.Setenv("DISCOTUNE_LOG_LEVEL", "warn")

	var cfg Config
	if err := applyDotEnv(&cfg, filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("applyDotEnv: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestDotEnvFile(t *testing.T) {
	t.Setenv("DISCOTUNE_API_URL", "")
	t.Setenv("DISCOTUNE_MPV_PATH", "")
	t.Setenv("DISCOTUNE_LOG_LEVEL", "")

	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("DISCOTUNE_MPV_PATH=/opt/mpv/bin/mpv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := applyDotEnv(&cfg, file); err != nil {
		t.Fatalf("applyDotEnv: %v", err)
	}
	if cfg.Player.MPVPath != "/opt/mpv/bin/mpv" {
		t.Errorf("mpv path = %q", cfg.Player.MPVPath)
	}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds discotune runtime configuration loaded from TOML.
type Config struct {
	ConfigVersion int            `toml:"config_version"`
	API           APIConfig      `toml:"api"`
	Player        PlayerConfig   `toml:"player"`
	Resolver      ResolverConfig `toml:"resolver"`
	UI            UIConfig       `toml:"ui"`
	Queue         QueueConfig    `toml:"queue"`
	Log           LogConfig      `toml:"log"`
}

// APIConfig points at the remote discovery API.
type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	TimeoutMs int    `toml:"timeout_ms"`
}

type PlayerConfig struct {
	MPVPath            string `toml:"mpv_path"`
	IPC                string `toml:"ipc"`
	InitialVolume      int    `toml:"initial_volume"`
	MediaURLTemplate   string `toml:"media_url_template"` // %s is replaced by the media id
	YTDLFormat         string `toml:"ytdl_format"`
	BootstrapTimeoutMs int    `toml:"bootstrap_timeout_ms"`
	VolumeStep         int    `toml:"volume_step"`
}

// ResolverConfig tunes the track-to-media lookup.
type ResolverConfig struct {
	TimeoutMs  int     `toml:"timeout_ms"`
	CacheSize  int     `toml:"cache_size"`
	RatePerSec float64 `toml:"rate_per_sec"`
	Burst      int     `toml:"burst"`
}

type UIConfig struct {
	PageSize int    `toml:"page_size"`
	NoEmoji  bool   `toml:"no_emoji"`
	Theme    string `toml:"theme"`
}

// QueueConfig holds queue persistence settings.
type QueueConfig struct {
	Persist *bool `toml:"persist"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Load reads configuration from disk. If path is empty, a default OS-specific
// location is used. A missing file yields the defaults. Values from a .env file
// in the working directory override the file.
func Load(path string) (*Config, string, error) {
	cfgPath := path
	if cfgPath == "" {
		var err error
		cfgPath, err = defaultPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve config path: %w", err)
		}
	}

	var cfg Config
	data, err := os.ReadFile(cfgPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, cfgPath, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
		// first run: defaults only
	default:
		return nil, cfgPath, fmt.Errorf("read config: %w", err)
	}

	if err := applyDotEnv(&cfg, ".env"); err != nil {
		return nil, cfgPath, err
	}
	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return nil, cfgPath, err
	}

	return &cfg, cfgPath, nil
}

// applyDotEnv overlays DISCOTUNE_* values from a dotenv file and the process
// environment. A missing file is ignored.
func applyDotEnv(cfg *Config, file string) error {
	env := map[string]string{}
	if _, err := os.Stat(file); err == nil {
		read, err := godotenv.Read(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		env = read
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return env[key]
	}
	if v := lookup("DISCOTUNE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := lookup("DISCOTUNE_MPV_PATH"); v != "" {
		cfg.Player.MPVPath = v
	}
	if v := lookup("DISCOTUNE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func defaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	base := filepath.Join(dir, "discotune")
	if runtime.GOOS == "windows" {
		base = filepath.Join(dir, "Discotune")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(base, "config.toml"), nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.TimeoutMs == 0 {
		cfg.API.TimeoutMs = 8000
	}
	if cfg.Player.MPVPath == "" {
		cfg.Player.MPVPath = "mpv"
	}
	if cfg.Player.InitialVolume == 0 {
		cfg.Player.InitialVolume = 70
	}
	if cfg.Player.MediaURLTemplate == "" {
		cfg.Player.MediaURLTemplate = "https://www.youtube.com/watch?v=%s"
	}
	if cfg.Player.YTDLFormat == "" {
		cfg.Player.YTDLFormat = "bestaudio/best"
	}
	if cfg.Player.BootstrapTimeoutMs == 0 {
		cfg.Player.BootstrapTimeoutMs = 10000
	}
	if cfg.Player.VolumeStep == 0 {
		cfg.Player.VolumeStep = 5
	}
	if cfg.Resolver.TimeoutMs == 0 {
		cfg.Resolver.TimeoutMs = 10000
	}
	if cfg.Resolver.CacheSize == 0 {
		cfg.Resolver.CacheSize = 256
	}
	if cfg.Resolver.RatePerSec == 0 {
		cfg.Resolver.RatePerSec = 2
	}
	if cfg.Resolver.Burst == 0 {
		cfg.Resolver.Burst = 4
	}
	if cfg.UI.PageSize == 0 {
		cfg.UI.PageSize = 50
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = "rainbow"
	}
	// Persist defaults to true; only an explicit false disables it.
	if cfg.Queue.Persist == nil {
		persist := true
		cfg.Queue.Persist = &persist
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
}

// Validate performs semantic validation of config.
func Validate(cfg Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", cfg.API.BaseURL)
	}
	if cfg.Player.InitialVolume < 0 || cfg.Player.InitialVolume > 100 {
		return fmt.Errorf("player.initial_volume must be 0-100")
	}
	if !strings.Contains(cfg.Player.MediaURLTemplate, "%s") {
		return errors.New("player.media_url_template must contain %s")
	}
	if cfg.Resolver.RatePerSec < 0 || cfg.Resolver.Burst < 0 {
		return errors.New("resolver.rate_per_sec and resolver.burst must not be negative")
	}
	if cfg.Resolver.CacheSize < 0 {
		return errors.New("resolver.cache_size must not be negative")
	}
	if _, err := os.Stat(cfg.Player.MPVPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, lookErr := execLookPath(cfg.Player.MPVPath); lookErr != nil {
				return fmt.Errorf("mpv not found (%s): %w", cfg.Player.MPVPath, lookErr)
			}
		}
	}
	return nil
}

// PersistQueue reports whether the queue is saved between sessions.
func (c Config) PersistQueue() bool {
	return c.Queue.Persist == nil || *c.Queue.Persist
}

// APIContext returns a context bounded by the API timeout.
func (c Config) APIContext() (context.Context, context.CancelFunc) {
	d := time.Duration(c.API.TimeoutMs) * time.Millisecond
	if d == 0 {
		d = 8 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

// ResolveTimeout is the bound on a single media lookup.
func (c Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutMs) * time.Millisecond
}

// BootstrapTimeout is how long the player waits for mpv before reporting it.
func (c Config) BootstrapTimeout() time.Duration {
	return time.Duration(c.Player.BootstrapTimeoutMs) * time.Millisecond
}

// execLookPath is a test seam.
var execLookPath = func(file string) (string, error) {
	return exec.LookPath(file)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alchemmist/termreel/internal/render"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/store"
	"github.com/alchemmist/termreel/internal/timeline"
)

type Config struct {
	TmuxBin       string         `yaml:"tmux_bin"`
	DataDir       string         `yaml:"data_dir"`
	WatchInterval time.Duration  `yaml:"watch_interval"`
	Session       session.Config `yaml:"session"`
	Visual        render.Config  `yaml:"visual"`
}

func Default() Config {
	return Config{
		TmuxBin:       "tmux",
		DataDir:       store.DefaultDataDir(),
		WatchInterval: time.Second,
		Session:       session.DefaultConfig(),
		Visual:        render.DefaultConfig(),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	if v := strings.TrimSpace(os.Getenv("TERMREEL_CONFIG")); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "termreel", "config.yaml")
}

// Load reads path over the defaults. An empty path falls back to
// DefaultPath, and a missing default file just yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return timeline.Invalid("data_dir", "must not be empty")
	}
	if c.WatchInterval <= 0 {
		return timeline.Invalid("watch_interval", "must be positive, got %s", c.WatchInterval)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Visual.Validate(); err != nil {
		return fmt.Errorf("visual: %w", err)
	}
	return nil
}

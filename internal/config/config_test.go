package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemmist/termreel/internal/timeline"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.TmuxBin != "tmux" {
		t.Fatalf("expected tmux binary, got %q", cfg.TmuxBin)
	}
	if cfg.DataDir == "" {
		t.Fatal("expected non-empty data dir")
	}
	if cfg.WatchInterval != time.Second {
		t.Fatalf("expected 1s interval, got %s", cfg.WatchInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
tmux_bin: /opt/tmux
watch_interval: 250ms
session:
  width: 100
  capture_escapes: true
visual:
  fps: 24
  background: "#1e1e2e"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TmuxBin != "/opt/tmux" || cfg.WatchInterval != 250*time.Millisecond {
		t.Fatalf("unexpected top level: %+v", cfg)
	}
	if cfg.Session.Width != 100 || cfg.Session.Height != 40 || !cfg.Session.CaptureEscapes {
		t.Fatalf("unexpected session: %+v", cfg.Session)
	}
	if cfg.Visual.FPS != 24 || cfg.Visual.Background.String() != "#1e1e2e" || cfg.Visual.CellWidth != 9 {
		t.Fatalf("unexpected visual: %+v", cfg.Visual)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("visual:\n  fps: 120\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, timeline.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("TERMREEL_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TmuxBin != "tmux" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alchemmist/termreel/internal/timeline"
)

const (
	DefaultWidth       = 120
	DefaultHeight      = 40
	DefaultShell       = "/bin/bash"
	DefaultSettleDelay = 100 * time.Millisecond
)

type Config struct {
	Width          int               `yaml:"width"`
	Height         int               `yaml:"height"`
	Shell          string            `yaml:"shell"`
	Dir            string            `yaml:"dir"`
	Env            map[string]string `yaml:"env"`
	SocketDir      string            `yaml:"socket_dir"`
	SettleDelay    time.Duration     `yaml:"settle_delay"`
	CaptureEscapes bool              `yaml:"capture_escapes"`
}

func DefaultConfig() Config {
	return Config{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		Shell:       DefaultShell,
		SocketDir:   DefaultSocketDir(),
		SettleDelay: DefaultSettleDelay,
	}
}

func DefaultSocketDir() string {
	return filepath.Join(os.TempDir(), "termreel")
}

func (c Config) Validate() error {
	if c.Width < 1 || c.Width > timeline.MaxDimension {
		return timeline.Invalid("width", "%d outside [1,%d]", c.Width, timeline.MaxDimension)
	}
	if c.Height < 1 || c.Height > timeline.MaxDimension {
		return timeline.Invalid("height", "%d outside [1,%d]", c.Height, timeline.MaxDimension)
	}
	if strings.TrimSpace(c.Shell) == "" {
		return timeline.Invalid("shell", "must not be empty")
	}
	if c.SettleDelay < 0 {
		return timeline.Invalid("settle_delay", "must not be negative, got %s", c.SettleDelay)
	}
	return nil
}

package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alchemmist/termreel/internal/timeline"
)

const (
	DefaultFPS        = 10
	DefaultFontPath   = "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf"
	DefaultFontSize   = 14
	DefaultCellWidth  = 9
	DefaultCellHeight = 18

	MaxFPS = 60
)

// Config holds the visual parameters shared by the renderer and both image
// encoders.
type Config struct {
	FPS        int     `yaml:"fps"`
	FontPath   string  `yaml:"font_path"`
	FontSize   float64 `yaml:"font_size"`
	Background Color   `yaml:"background"`
	Foreground Color   `yaml:"foreground"`
	CellWidth  int     `yaml:"cell_width"`
	CellHeight int     `yaml:"cell_height"`
}

func DefaultConfig() Config {
	return Config{
		FPS:        DefaultFPS,
		FontPath:   DefaultFontPath,
		FontSize:   DefaultFontSize,
		Background: Color{0, 0, 0},
		Foreground: Color{200, 200, 200},
		CellWidth:  DefaultCellWidth,
		CellHeight: DefaultCellHeight,
	}
}

func (c Config) Validate() error {
	if c.FPS < 1 || c.FPS > MaxFPS {
		return timeline.Invalid("fps", "%d outside [1,%d]", c.FPS, MaxFPS)
	}
	if c.FontSize <= 0 {
		return timeline.Invalid("font_size", "must be positive, got %v", c.FontSize)
	}
	if c.CellWidth < 1 {
		return timeline.Invalid("cell_width", "must be positive, got %d", c.CellWidth)
	}
	if c.CellHeight < 1 {
		return timeline.Invalid("cell_height", "must be positive, got %d", c.CellHeight)
	}
	return nil
}

// FrameDelay is the uniform per-frame delay, round(1000/fps) milliseconds.
func (c Config) FrameDelay() time.Duration {
	ms := math.Round(1000 / float64(c.FPS))
	return time.Duration(ms) * time.Millisecond
}

// Color is an opaque RGB colour written as #rrggbb.
type Color struct {
	R, G, B uint8
}

// ParseColor accepts #rgb or #rrggbb, with or without the leading '#'.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func (c Color) MarshalYAML() (any, error) {
	return c.String(), nil
}

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

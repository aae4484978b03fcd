// Package render rasterizes snapshots and encodes them as GIF animations and
// PNG stills.
package render

import (
	"image"
	"image/draw"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/alchemmist/termreel/internal/timeline"
)

// Renderer draws the plain text of a snapshot onto a fixed cell grid.
// It is safe for concurrent use; glyph rasterization is serialized because
// opentype faces keep per-face scratch buffers.
type Renderer struct {
	cfg      Config
	mu       sync.Mutex
	face     font.Face
	ascent   int
	fallback bool
	logger   *slog.Logger
}

// NewRenderer validates cfg and loads its font. A font that cannot be loaded
// is replaced by FallbackFace with a warning; it never fails the renderer.
func NewRenderer(cfg Config, logger *slog.Logger) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{cfg: cfg, logger: logger}
	face, err := loadFace(cfg.FontPath, cfg.FontSize)
	if err != nil {
		logger.Warn("font unavailable, using built-in face", "path", cfg.FontPath, "err", err)
		face = FallbackFace
		r.fallback = true
	}
	r.face = face
	r.ascent = face.Metrics().Ascent.Ceil()
	return r, nil
}

func (r *Renderer) Config() Config { return r.cfg }

// UsingFallback reports whether the built-in face replaced the configured font.
func (r *Renderer) UsingFallback() bool { return r.fallback }

// Bounds is the canvas a snapshot of the given size renders into.
func (r *Renderer) Bounds(width, height int) image.Rectangle {
	return image.Rect(0, 0, width*r.cfg.CellWidth, height*r.cfg.CellHeight)
}

// Render rasterizes s. Control sequences are stripped, at most s.Height()
// lines are drawn, and text running past the right edge is cut off.
func (r *Renderer) Render(s timeline.Snapshot) *image.RGBA {
	img := image.NewRGBA(r.Bounds(s.Width(), s.Height()))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.cfg.Background.RGBA()), image.Point{}, draw.Src)

	lines := strings.Split(StripControl(s.Content()), "\n")
	if len(lines) > s.Height() {
		lines = lines[:s.Height()]
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.cfg.Foreground.RGBA()),
		Face: r.face,
	}
	maxX := fixed.I(img.Bounds().Dx())
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, line := range lines {
		if line == "" {
			continue
		}
		d.Dot = fixed.P(0, i*r.cfg.CellHeight+r.ascent)
		r.drawClipped(d, line, maxX)
	}
	return img
}

func (r *Renderer) drawClipped(d *font.Drawer, line string, maxX fixed.Int26_6) {
	prev := rune(-1)
	for _, c := range line {
		if prev >= 0 {
			d.Dot.X += d.Face.Kern(prev, c)
		}
		if d.Dot.X >= maxX {
			return
		}
		dr, mask, maskp, advance, ok := d.Face.Glyph(d.Dot, c)
		if ok {
			draw.DrawMask(d.Dst, dr, d.Src, image.Point{}, mask, maskp, draw.Over)
		}
		d.Dot.X += advance
		prev = c
	}
}

// Close releases the loaded font face.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallback || r.face == nil {
		return nil
	}
	return r.face.Close()
}

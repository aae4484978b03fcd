package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"

	"github.com/alchemmist/termreel/internal/timeline"
)

// GIFEncoder renders every snapshot as one frame of a looping GIF with a
// uniform frame delay. It satisfies timeline.AnimationEncoder.
type GIFEncoder struct {
	r *Renderer
}

func NewGIFEncoder(r *Renderer) *GIFEncoder {
	return &GIFEncoder{r: r}
}

func (e *GIFEncoder) EncodeAnimation(w io.Writer, frames []timeline.Snapshot) error {
	if len(frames) == 0 {
		return timeline.ErrEmptyTimeline
	}
	cfg := e.r.Config()
	pal := gradientPalette(cfg.Background, cfg.Foreground)
	delay := delayCentiseconds(cfg)

	images := make([]*image.RGBA, len(frames))
	var screen image.Rectangle
	for i, s := range frames {
		images[i] = e.r.Render(s)
		screen = screen.Union(images[i].Bounds())
	}

	// Every frame covers the whole logical screen so a smaller snapshot
	// never leaves glyphs of a larger predecessor visible.
	anim := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: 0,
		Config: image.Config{
			ColorModel: pal,
			Width:      screen.Dx(),
			Height:     screen.Dy(),
		},
	}
	for _, rgba := range images {
		p := image.NewPaletted(screen, pal)
		draw.Draw(p, p.Bounds(), image.NewUniform(cfg.Background.RGBA()), image.Point{}, draw.Src)
		draw.Draw(p, rgba.Bounds(), rgba, image.Point{}, draw.Src)
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

// delayCentiseconds converts the frame delay to GIF units, never below 1.
func delayCentiseconds(cfg Config) int {
	ms := cfg.FrameDelay().Milliseconds()
	cs := int((ms + 5) / 10)
	if cs < 1 {
		cs = 1
	}
	return cs
}

// gradientPalette spans 256 steps from bg to fg. Anti-aliased glyph edges
// land on the intermediate entries.
func gradientPalette(bg, fg Color) color.Palette {
	pal := make(color.Palette, 256)
	lerp := func(a, b uint8, i int) uint8 {
		return uint8((int(a)*(255-i) + int(b)*i + 127) / 255)
	}
	for i := range pal {
		pal[i] = color.RGBA{
			R: lerp(bg.R, fg.R, i),
			G: lerp(bg.G, fg.G, i),
			B: lerp(bg.B, fg.B, i),
			A: 0xff,
		}
	}
	return pal
}

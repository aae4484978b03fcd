package render

import (
	"fmt"
	"image/png"
	"io"

	"github.com/alchemmist/termreel/internal/timeline"
)

// PNGEncoder writes one rendered snapshot. It satisfies
// timeline.StillEncoder.
type PNGEncoder struct {
	r *Renderer
}

func NewPNGEncoder(r *Renderer) *PNGEncoder {
	return &PNGEncoder{r: r}
}

func (e *PNGEncoder) EncodeStill(w io.Writer, s timeline.Snapshot) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, e.r.Render(s)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

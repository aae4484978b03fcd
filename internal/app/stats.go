package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/alchemmist/termreel/internal/recording"
	"github.com/alchemmist/termreel/internal/timeline"
)

// Stats summarizes the recording ref resolves to and charts the gaps
// between its frames.
func (a *App) Stats(ref string) (string, error) {
	tl, rec, err := a.store.LoadTimeline(ref)
	if err != nil {
		return "", err
	}
	return FormatStats(rec, tl), nil
}

// FrameGaps returns the milliseconds between consecutive frames.
func FrameGaps(tl *timeline.Timeline) []float64 {
	snaps := tl.Snapshots()
	if len(snaps) < 2 {
		return nil
	}
	out := make([]float64, 0, len(snaps)-1)
	for i := 1; i < len(snaps); i++ {
		gap := snaps[i].Timestamp().Sub(snaps[i-1].Timestamp())
		out = append(out, float64(gap)/float64(time.Millisecond))
	}
	return out
}

func FormatStats(rec recording.Record, tl *timeline.Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:       %s\n", rec.ID)
	fmt.Fprintf(&b, "name:     %s\n", rec.Name)
	if t := tl.Title(); t != "" {
		fmt.Fprintf(&b, "title:    %s\n", t)
	}
	fmt.Fprintf(&b, "size:     %dx%d\n", tl.Width(), tl.Height())
	fmt.Fprintf(&b, "frames:   %d\n", tl.Len())
	fmt.Fprintf(&b, "duration: %s\n", tl.Duration().Round(time.Millisecond))

	gaps := FrameGaps(tl)
	if len(gaps) == 0 {
		return b.String()
	}
	lo, hi, sum := gaps[0], gaps[0], 0.0
	for _, g := range gaps {
		lo = min(lo, g)
		hi = max(hi, g)
		sum += g
	}
	fmt.Fprintf(&b, "gap ms:   min %.0f  avg %.0f  max %.0f\n\n", lo, sum/float64(len(gaps)), hi)
	if len(gaps) > 1 {
		b.WriteString(asciigraph.Plot(gaps,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("gap between frames (ms)"),
		))
		b.WriteString("\n")
	}
	return b.String()
}

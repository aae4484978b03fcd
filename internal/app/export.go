package app

import (
	"github.com/alchemmist/termreel/internal/asciicast"
	"github.com/alchemmist/termreel/internal/render"
	"github.com/alchemmist/termreel/internal/timeline"
)

// ExportOptions names the artifacts to write. Empty paths are skipped.
type ExportOptions struct {
	Cast string
	GIF  string
	PNG  string
	// Frame selects the PNG snapshot; negative counts from the end.
	Frame int
	// FPS overrides the configured animation rate when positive.
	FPS int
}

func (o ExportOptions) Any() bool {
	return o.Cast != "" || o.GIF != "" || o.PNG != ""
}

// Export writes the artifacts for the recording ref resolves to.
func (a *App) Export(ref string, opts ExportOptions) ([]string, error) {
	tl, _, err := a.store.LoadTimeline(ref)
	if err != nil {
		return nil, err
	}
	return a.ExportTimeline(tl, opts)
}

// ExportTimeline writes each requested artifact and returns the paths
// written before any failure.
func (a *App) ExportTimeline(tl *timeline.Timeline, opts ExportOptions) ([]string, error) {
	var written []string
	if opts.Cast != "" {
		if err := tl.ExportReplayLog(opts.Cast, asciicast.NewEncoder()); err != nil {
			return written, err
		}
		written = append(written, opts.Cast)
		a.logger.Info("exported replay log", "path", opts.Cast, "frames", tl.Len())
	}
	if opts.GIF == "" && opts.PNG == "" {
		return written, nil
	}

	vis := a.cfg.Visual
	if opts.FPS > 0 {
		vis.FPS = opts.FPS
	}
	r, err := render.NewRenderer(vis, a.logger)
	if err != nil {
		return written, err
	}
	defer r.Close()

	if opts.GIF != "" {
		if err := tl.ExportAnimation(opts.GIF, render.NewGIFEncoder(r)); err != nil {
			return written, err
		}
		written = append(written, opts.GIF)
		a.logger.Info("exported animation", "path", opts.GIF, "frames", tl.Len(), "fps", vis.FPS)
	}
	if opts.PNG != "" {
		if err := tl.ExportStill(opts.PNG, render.NewPNGEncoder(r), opts.Frame); err != nil {
			return written, err
		}
		written = append(written, opts.PNG)
		a.logger.Info("exported still", "path", opts.PNG, "frame", opts.Frame)
	}
	return written, nil
}

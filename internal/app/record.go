package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/alchemmist/termreel/internal/recording"
	"github.com/alchemmist/termreel/internal/script"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/timeline"
)

type RecordOptions struct {
	// Name catalogs the recording. Defaults to the script title.
	Name string
	// Export, when it names any output, is run after saving.
	Export ExportOptions
	// NoSave skips the store; the timeline is only exported.
	NoSave bool
}

type RecordResult struct {
	Record   recording.Record
	Timeline *timeline.Timeline
	Files    []string
}

// Record plays sc in a fresh session, saves the timeline and runs any
// requested exports. A failing step still closes the session.
func (a *App) Record(ctx context.Context, sc script.Script, opts RecordOptions) (RecordResult, error) {
	cfg := sc.Apply(a.cfg.Session)
	sess, err := session.New(cfg, a.newBackend(), session.WithLogger(a.logger))
	if err != nil {
		return RecordResult{}, err
	}
	if err := sess.Start(); err != nil {
		return RecordResult{}, err
	}
	runErr := sc.Run(ctx, sess)
	closeErr := sess.Close()
	if runErr != nil {
		return RecordResult{Timeline: sess.Timeline()}, runErr
	}
	if closeErr != nil {
		a.logger.Warn("session cleanup failed", "err", closeErr)
	}

	tl := sess.Timeline()
	res := RecordResult{Timeline: tl}
	a.logger.Info("recording finished", "frames", tl.Len(), "duration", tl.Duration())

	if !opts.NoSave {
		name := strings.TrimSpace(opts.Name)
		if name == "" {
			name = recordingName(sc.Title)
		}
		rec, err := a.store.Save(name, tl)
		if err != nil {
			return res, fmt.Errorf("save recording: %w", err)
		}
		res.Record = rec
	}
	if opts.Export.Any() {
		files, err := a.ExportTimeline(tl, opts.Export)
		res.Files = files
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func recordingName(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return "recording"
	}
	return strings.Join(strings.Fields(title), "-")
}

package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/alchemmist/termreel/internal/recording"
	"github.com/alchemmist/termreel/internal/render"
	"github.com/alchemmist/termreel/internal/timeline"
)

// WatchOptions configures recording of an existing tmux pane.
type WatchOptions struct {
	// Target is a tmux target; empty means the current session.
	Target   string
	Name     string
	Interval time.Duration
	// MaxFrames stops the watch after that many frames when positive.
	MaxFrames int
	// KeepDuplicates records a frame on every tick even if nothing changed.
	KeepDuplicates bool
	Escapes        bool
}

// Watch samples Target until ctx is done, the target goes away or MaxFrames
// is reached, then saves whatever was captured. Only one watch per target
// may run at a time.
func (a *App) Watch(ctx context.Context, opts WatchOptions) (recording.Record, error) {
	target := strings.TrimSpace(opts.Target)
	if target == "" {
		cur, err := a.tmux.CurrentSession()
		if err != nil {
			return recording.Record{}, fmt.Errorf("resolve current session: %w", err)
		}
		target = cur
	}
	if !a.tmux.SessionExists(target) {
		return recording.Record{}, fmt.Errorf("watch %s: target not found", target)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = a.cfg.WatchInterval
	}

	unlock, err := acquireLock(a.tmux.SocketPath() + "\x00" + target)
	if err != nil {
		return recording.Record{}, err
	}
	defer unlock()

	tl := timeline.New(timeline.WithTitle(target))
	last := ""
	sample := func() (bool, error) {
		s, err := a.capturePane(target, opts.Escapes)
		if err != nil {
			return false, err
		}
		if !opts.KeepDuplicates && tl.Len() > 0 && s.Content() == last {
			return true, nil
		}
		last = s.Content()
		if err := tl.Append(s); err != nil {
			return false, err
		}
		a.logger.Debug("watch frame", "target", target, "frames", tl.Len())
		return opts.MaxFrames <= 0 || tl.Len() < opts.MaxFrames, nil
	}

	a.logger.Info("watching", "target", target, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	more, err := sample()
	for err == nil && more {
		select {
		case <-ctx.Done():
			more = false
		case <-ticker.C:
			if !a.tmux.SessionExists(target) {
				a.logger.Info("watch target gone", "target", target)
				more = false
				continue
			}
			more, err = sample()
		}
	}
	if err != nil {
		a.logger.Error("watch capture failed", "target", target, "err", err)
	}
	if tl.Len() == 0 {
		return recording.Record{}, errors.Join(timeline.ErrEmptyTimeline, err)
	}

	name := opts.Name
	if strings.TrimSpace(name) == "" {
		name = "watch-" + target
	}
	rec, saveErr := a.store.Save(name, tl)
	if saveErr != nil {
		return recording.Record{}, saveErr
	}
	return rec, err
}

func (a *App) capturePane(target string, escapes bool) (timeline.Snapshot, error) {
	w, h, err := a.tmux.PaneSize(target)
	if err != nil {
		return timeline.Snapshot{}, err
	}
	out, err := a.tmux.CapturePane(target, escapes)
	if err != nil {
		return timeline.Snapshot{}, err
	}
	content := out
	var opts []timeline.SnapshotOption
	if escapes {
		content = render.StripControl(out)
		opts = append(opts, timeline.WithRawControlData([]byte(out)))
	}
	return timeline.NewSnapshot(content, w, h, time.Now(), opts...)
}

func acquireLock(key string) (func(), error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		return nil, err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	lockPath := filepath.Join(runtimeDir, fmt.Sprintf("termreel-watch-%x.lock", h.Sum64()))
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("watch already running for this target")
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

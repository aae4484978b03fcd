package timeline

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReplayEncoder writes a whole timeline as a replay log.
type ReplayEncoder interface {
	EncodeReplay(w io.Writer, tl *Timeline) error
}

// AnimationEncoder writes a multi-frame image from one or more snapshots.
type AnimationEncoder interface {
	EncodeAnimation(w io.Writer, frames []Snapshot) error
}

// StillEncoder writes a single-frame image of one snapshot.
type StillEncoder interface {
	EncodeStill(w io.Writer, s Snapshot) error
}

// ExportReplayLog writes the replay log for t to path.
func (t *Timeline) ExportReplayLog(path string, enc ReplayEncoder) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return enc.EncodeReplay(w, t)
	})
}

// ExportAnimation renders every snapshot into an animated image at path.
// An empty timeline is rejected before any file is created.
func (t *Timeline) ExportAnimation(path string, enc AnimationEncoder) error {
	if len(t.snapshots) == 0 {
		return ErrEmptyTimeline
	}
	frames := t.Snapshots()
	return WriteFileAtomic(path, func(w io.Writer) error {
		return enc.EncodeAnimation(w, frames)
	})
}

// ExportStill renders the snapshot at index (negative counts from the end)
// into a still image at path.
func (t *Timeline) ExportStill(path string, enc StillEncoder, index int) error {
	if len(t.snapshots) == 0 {
		return ErrEmptyTimeline
	}
	s, err := t.At(index)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, func(w io.Writer) error {
		return enc.EncodeStill(w, s)
	})
}

// WriteFileAtomic streams write into a temporary file next to path and
// renames it into place only if every step succeeds. On failure the
// temporary file is removed and path is left as it was.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Errorf("export %s: temp name: %w", path, err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+hex.EncodeToString(suffix)+".tmp")

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, 64*1024)
	if err := write(bw); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		f = nil
		return fmt.Errorf("export %s: %w", path, err)
	}
	f = nil
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

// Package recording defines the on-disk form of a saved timeline.
package recording

import (
	"fmt"
	"time"

	"github.com/alchemmist/termreel/internal/timeline"
)

const FormatVersion = 1

type File struct {
	Version   int               `json:"version"`
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Title     string            `json:"title,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Env       map[string]string `json:"env,omitempty"`
	Frames    []Frame           `json:"frames"`
}

// Frame is one snapshot. Raw is base64 in JSON.
type Frame struct {
	Content   string            `json:"content"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp time.Time         `json:"timestamp"`
	Raw       []byte            `json:"raw,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Record is the catalog row describing a saved recording.
type Record struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Title     string        `json:"title,omitempty"`
	File      string        `json:"file"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Frames    int           `json:"frames"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	SavedAt   time.Time     `json:"saved_at"`
}

func FromTimeline(id, name string, tl *timeline.Timeline) File {
	snaps := tl.Snapshots()
	f := File{
		Version:   FormatVersion,
		ID:        id,
		Name:      name,
		Title:     tl.Title(),
		StartedAt: tl.StartedAt(),
		Width:     tl.Width(),
		Height:    tl.Height(),
		Env:       tl.Environment(),
		Frames:    make([]Frame, 0, len(snaps)),
	}
	for _, s := range snaps {
		fr := Frame{
			Content:   s.Content(),
			Width:     s.Width(),
			Height:    s.Height(),
			Timestamp: s.Timestamp(),
			Raw:       s.RawControlData(),
		}
		if tags := s.Tags(); len(tags) > 0 {
			fr.Tags = tags
		}
		f.Frames = append(f.Frames, fr)
	}
	return f
}

// Timeline rebuilds the timeline the file was made from.
func (f File) Timeline() (*timeline.Timeline, error) {
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported recording version %d", f.Version)
	}
	opts := []timeline.Option{
		timeline.WithStartedAt(f.StartedAt),
		timeline.WithTitle(f.Title),
		timeline.WithEnvironment(f.Env),
	}
	if f.Width > 0 && f.Height > 0 {
		opts = append(opts, timeline.WithSize(f.Width, f.Height))
	}
	tl := timeline.New(opts...)
	for i, fr := range f.Frames {
		var sopts []timeline.SnapshotOption
		if fr.Raw != nil {
			sopts = append(sopts, timeline.WithRawControlData(fr.Raw))
		}
		if len(fr.Tags) > 0 {
			sopts = append(sopts, timeline.WithTags(fr.Tags))
		}
		s, err := timeline.NewSnapshot(fr.Content, fr.Width, fr.Height, fr.Timestamp, sopts...)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if err := tl.Append(s); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return tl, nil
}

// Summary describes f as a catalog row stored at path.
func (f File) Summary(path string, savedAt time.Time) Record {
	r := Record{
		ID:        f.ID,
		Name:      f.Name,
		Title:     f.Title,
		File:      path,
		Width:     f.Width,
		Height:    f.Height,
		Frames:    len(f.Frames),
		StartedAt: f.StartedAt,
		SavedAt:   savedAt,
	}
	if n := len(f.Frames); n > 0 {
		r.Duration = f.Frames[n-1].Timestamp.Sub(f.StartedAt)
	}
	return r
}

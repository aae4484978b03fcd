// Package timeline models a recorded terminal session as an ordered list of
// immutable screen snapshots and exports it through pluggable encoders.
//
// A Timeline is not safe for concurrent use. Exports only read it, so several
// exports may run at once on a timeline nobody is appending to anymore.
package timeline

import (
	"maps"
	"time"
)

// Timeline is an append-only record of snapshots plus session metadata.
type Timeline struct {
	snapshots []Snapshot
	startedAt time.Time
	width     int
	height    int
	title     string
	env       map[string]string
}

// Option configures a Timeline created by New.
type Option func(*Timeline)

// WithStartedAt fixes the start instant instead of using time.Now.
func WithStartedAt(t time.Time) Option {
	return func(tl *Timeline) {
		tl.startedAt = t
	}
}

// WithSize pre-seeds the recorded dimensions. The first Append still
// overrides them.
func WithSize(width, height int) Option {
	return func(tl *Timeline) {
		tl.width = width
		tl.height = height
	}
}

// WithTitle sets the session title.
func WithTitle(title string) Option {
	return func(tl *Timeline) {
		tl.title = title
	}
}

// WithEnvironment sets the environment tags.
func WithEnvironment(env map[string]string) Option {
	return func(tl *Timeline) {
		tl.env = maps.Clone(env)
	}
}

// New creates an empty timeline started now.
func New(opts ...Option) *Timeline {
	tl := &Timeline{startedAt: time.Now()}
	for _, o := range opts {
		o(tl)
	}
	return tl
}

// Append adds s at the end. The first snapshot latches the timeline's
// width and height; later snapshots never change them. A zero Snapshot
// that did not come from NewSnapshot is rejected.
func (t *Timeline) Append(s Snapshot) error {
	if s.width < 1 || s.height < 1 {
		return Invalid("snapshot", "width and height must be at least 1, got %dx%d", s.width, s.height)
	}
	if len(t.snapshots) == 0 {
		t.width = s.width
		t.height = s.height
	}
	t.snapshots = append(t.snapshots, s)
	return nil
}

// Len returns the number of snapshots.
func (t *Timeline) Len() int {
	return len(t.snapshots)
}

// At returns the snapshot at index. Negative indexes count from the end,
// so -1 is the last snapshot.
func (t *Timeline) At(index int) (Snapshot, error) {
	n := len(t.snapshots)
	i := index
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return Snapshot{}, &IndexError{Index: index, Len: n}
	}
	return t.snapshots[i], nil
}

// Snapshots returns the snapshots in capture order. The slice is a copy.
func (t *Timeline) Snapshots() []Snapshot {
	out := make([]Snapshot, len(t.snapshots))
	copy(out, t.snapshots)
	return out
}

func (t *Timeline) StartedAt() time.Time { return t.startedAt }
func (t *Timeline) Width() int           { return t.width }
func (t *Timeline) Height() int          { return t.height }
func (t *Timeline) Title() string        { return t.title }

// Size returns the recorded width and height.
func (t *Timeline) Size() (width, height int) {
	return t.width, t.height
}

func (t *Timeline) SetTitle(title string) {
	t.title = title
}

// Environment returns a copy of the environment tags.
func (t *Timeline) Environment() map[string]string {
	return maps.Clone(t.env)
}

func (t *Timeline) SetEnvironment(env map[string]string) {
	t.env = maps.Clone(env)
}

// Duration is the last snapshot's timestamp minus the start instant, or 0
// when empty. Clock skew can make it negative; it is not clamped.
func (t *Timeline) Duration() time.Duration {
	if len(t.snapshots) == 0 {
		return 0
	}
	return t.snapshots[len(t.snapshots)-1].timestamp.Sub(t.startedAt)
}

// Offset returns s's capture time relative to the start of the timeline.
func (t *Timeline) Offset(s Snapshot) time.Duration {
	return s.timestamp.Sub(t.startedAt)
}

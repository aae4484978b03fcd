package timeline

import (
	"maps"
	"time"
)

// MaxDimension bounds snapshot width and height. Larger captures are
// treated as malformed.
const MaxDimension = 1000

// Snapshot is one captured screen state. It has no exported fields and no
// mutating methods; the With* methods return modified copies.
type Snapshot struct {
	content   string
	width     int
	height    int
	timestamp time.Time
	raw       []byte
	tags      map[string]string
}

// SnapshotOption sets an optional Snapshot field at construction.
type SnapshotOption func(*Snapshot)

// WithRawControlData preserves the byte-exact control payload of a capture.
func WithRawControlData(b []byte) SnapshotOption {
	return func(s *Snapshot) {
		if b == nil {
			s.raw = nil
			return
		}
		s.raw = append([]byte(nil), b...)
	}
}

// WithTags attaches caller annotations.
func WithTags(tags map[string]string) SnapshotOption {
	return func(s *Snapshot) {
		if len(tags) == 0 {
			s.tags = nil
			return
		}
		s.tags = maps.Clone(tags)
	}
}

// NewSnapshot validates dimensions and returns a Snapshot.
func NewSnapshot(content string, width, height int, ts time.Time, opts ...SnapshotOption) (Snapshot, error) {
	if err := checkDimension("width", width); err != nil {
		return Snapshot{}, err
	}
	if err := checkDimension("height", height); err != nil {
		return Snapshot{}, err
	}
	s := Snapshot{
		content:   content,
		width:     width,
		height:    height,
		timestamp: ts,
	}
	for _, o := range opts {
		o(&s)
	}
	return s, nil
}

func checkDimension(field string, v int) error {
	if v < 1 || v > MaxDimension {
		return Invalid(field, "%d outside [1,%d]", v, MaxDimension)
	}
	return nil
}

func (s Snapshot) Content() string      { return s.content }
func (s Snapshot) Width() int           { return s.width }
func (s Snapshot) Height() int          { return s.height }
func (s Snapshot) Timestamp() time.Time { return s.timestamp }

// Size returns the width and height in cells.
func (s Snapshot) Size() (width, height int) {
	return s.width, s.height
}

// RawControlData returns a copy of the preserved control payload, or nil.
func (s Snapshot) RawControlData() []byte {
	if s.raw == nil {
		return nil
	}
	return append([]byte(nil), s.raw...)
}

// Tags returns a copy of the annotations.
func (s Snapshot) Tags() map[string]string {
	if s.tags == nil {
		return map[string]string{}
	}
	return maps.Clone(s.tags)
}

// Tag looks up one annotation.
func (s Snapshot) Tag(key string) (string, bool) {
	v, ok := s.tags[key]
	return v, ok
}

// WithTag returns a copy of s with key set to value.
func (s Snapshot) WithTag(key, value string) Snapshot {
	out := s
	out.tags = maps.Clone(s.tags)
	if out.tags == nil {
		out.tags = make(map[string]string, 1)
	}
	out.tags[key] = value
	return out
}

// WithContent returns a copy of s holding content instead.
func (s Snapshot) WithContent(content string) Snapshot {
	out := s
	out.content = content
	return out
}

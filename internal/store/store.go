package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/alchemmist/termreel/internal/recording"
	"github.com/alchemmist/termreel/internal/timeline"
)

const (
	indexFileName     = "index.db"
	recordingsDirName = "recordings"
	defaultDirPerm    = 0o755
)

// ErrNotFound matches os.ErrNotExist.
var ErrNotFound = fmt.Errorf("recording not found: %w", os.ErrNotExist)

// Store keeps each recording as a JSON file and catalogs them in SQLite.
type Store struct {
	baseDir string
	db      *sql.DB
	logger  *slog.Logger
	mu      sync.Mutex
	now     func() time.Time
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func Open(baseDir string, opts ...Option) (*Store, error) {
	s := &Store{baseDir: baseDir, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if err := os.MkdirAll(filepath.Join(baseDir, recordingsDirName), defaultDirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := openIndex(filepath.Join(baseDir, indexFileName))
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

func DefaultDataDir() string {
	if v := strings.TrimSpace(os.Getenv("TERMREEL_DATA_DIR")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".termreel"
	}
	return filepath.Join(home, ".local", "share", "termreel")
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes tl under a new ID and catalogs it under name.
func (s *Store) Save(name string, tl *timeline.Timeline) (recording.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return recording.Record{}, errors.New("empty recording name")
	}
	id := ulid.MustNew(ulid.Timestamp(s.now()), ulid.Monotonic(rand.Reader, 0)).String()
	f := recording.FromTimeline(id, name, tl)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordingPath(id)
	if err := writeJSONAtomic(path, f); err != nil {
		return recording.Record{}, err
	}
	rec := f.Summary(path, s.now().UTC())
	if err := insertRecord(s.db, rec); err != nil {
		_ = os.Remove(path)
		return recording.Record{}, err
	}
	s.logger.Debug("recording saved", "id", id, "name", name, "frames", rec.Frames, "file", path)
	return rec, nil
}

// Resolve finds the catalog row for ref, which is either an ID or a name.
// A name resolves to its newest recording.
func (s *Store) Resolve(ref string) (recording.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return s.Latest()
	}
	rec, err := recordByID(s.db, ref)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return recording.Record{}, err
	}
	rec, err = latestByName(s.db, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return recording.Record{}, fmt.Errorf("%q: %w", ref, ErrNotFound)
	}
	return rec, err
}

// Load returns the recording file and catalog row for ref.
func (s *Store) Load(ref string) (recording.File, recording.Record, error) {
	rec, err := s.Resolve(ref)
	if err != nil {
		return recording.File{}, recording.Record{}, err
	}
	var f recording.File
	b, err := os.ReadFile(rec.File)
	if err != nil {
		return recording.File{}, rec, err
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return recording.File{}, rec, fmt.Errorf("decode %s: %w", rec.File, err)
	}
	return f, rec, nil
}

// LoadTimeline is Load followed by File.Timeline.
func (s *Store) LoadTimeline(ref string) (*timeline.Timeline, recording.Record, error) {
	f, rec, err := s.Load(ref)
	if err != nil {
		return nil, rec, err
	}
	tl, err := f.Timeline()
	if err != nil {
		return nil, rec, fmt.Errorf("%s: %w", rec.ID, err)
	}
	return tl, rec, nil
}

// List returns every recording, newest first.
func (s *Store) List() ([]recording.Record, error) {
	return listRecords(s.db)
}

func (s *Store) Latest() (recording.Record, error) {
	recs, err := s.List()
	if err != nil {
		return recording.Record{}, err
	}
	if len(recs) == 0 {
		return recording.Record{}, ErrNotFound
	}
	return recs[0], nil
}

// Delete removes the recording ref resolves to.
func (s *Store) Delete(ref string) (recording.Record, error) {
	rec, err := s.Resolve(ref)
	if err != nil {
		return recording.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := deleteRecord(s.db, rec.ID); err != nil {
		return recording.Record{}, err
	}
	if err := os.Remove(rec.File); err != nil && !errors.Is(err, os.ErrNotExist) {
		return rec, err
	}
	s.logger.Debug("recording deleted", "id", rec.ID, "name", rec.Name)
	return rec, nil
}

func (s *Store) recordingPath(id string) string {
	return filepath.Join(s.baseDir, recordingsDirName, id+".json")
}

func writeJSONAtomic(path string, v any) error {
	return timeline.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/session/sessiontest"
	"github.com/alchemmist/termreel/internal/store"
	"github.com/alchemmist/termreel/internal/timeline"
)

// isolate keeps run away from the user's config and data.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TERMREEL_CONFIG", filepath.Join(dir, "absent.yaml"))
	t.Setenv("TERMREEL_DATA_DIR", filepath.Join(dir, "data"))
	return filepath.Join(dir, "data")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func useFakeBackend(t *testing.T, replies map[string]string) {
	t.Helper()
	prev := backendFactory
	backendFactory = func() session.Backend {
		b := sessiontest.New()
		for k, v := range replies {
			b.Replies[k] = v
		}
		return b
	}
	t.Cleanup(func() { backendFactory = prev })
}

// seedStore saves a two-frame recording named name into dataDir.
func seedStore(t *testing.T, dataDir, name string) string {
	t.Helper()
	st, err := store.Open(dataDir, store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	tl := timeline.New(timeline.WithStartedAt(start), timeline.WithTitle(name))
	for i, content := range []string{"$ ls\n", "$ ls\nREADME.md\n$ "} {
		s, err := timeline.NewSnapshot(content, 40, 10, start.Add(time.Duration(i)*300*time.Millisecond))
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		tl.Append(s)
	}
	rec, err := st.Save(name, tl)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return rec.ID
}

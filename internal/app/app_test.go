package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alchemmist/termreel/internal/asciicast"
	"github.com/alchemmist/termreel/internal/config"
	"github.com/alchemmist/termreel/internal/script"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/session/sessiontest"
	"github.com/alchemmist/termreel/internal/timeline"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Session.SettleDelay = time.Millisecond
	cfg.Visual.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config, fake *sessiontest.Backend) *App {
	t.Helper()
	opts := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	if fake != nil {
		opts = append(opts, WithBackendFactory(func() session.Backend { return fake }))
	}
	a, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func demoScript(t *testing.T) script.Script {
	t.Helper()
	sc, err := script.Parse([]byte(`
title: Hello World
width: 40
height: 10
steps:
  - command: echo hello
  - expect: hello
  - capture: true
`))
	if err != nil {
		t.Fatalf("parse script: %v", err)
	}
	return sc
}

func TestRecordSavesAndExports(t *testing.T) {
	fake := sessiontest.New()
	fake.Replies["echo hello"] = "hello"
	a := newTestApp(t, testConfig(t), fake)
	out := t.TempDir()

	res, err := a.Record(context.Background(), demoScript(t), RecordOptions{
		Export: ExportOptions{
			Cast:  filepath.Join(out, "demo.cast"),
			GIF:   filepath.Join(out, "demo.gif"),
			PNG:   filepath.Join(out, "demo.png"),
			Frame: -1,
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.Record.Name != "hello-world" || res.Record.Frames != 2 {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 exported files, got %v", res.Files)
	}
	for _, f := range res.Files {
		if st, err := os.Stat(f); err != nil || st.Size() == 0 {
			t.Fatalf("missing export %s: %v", f, err)
		}
	}
	if !fake.Destroyed() {
		t.Fatal("session backend was not destroyed")
	}

	tl, rec, err := a.Load("hello-world")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.ID != res.Record.ID || tl.Len() != 2 || tl.Width() != 40 {
		t.Fatalf("unexpected loaded timeline: rec=%+v len=%d width=%d", rec, tl.Len(), tl.Width())
	}
}

func TestRecordStepFailureClosesSession(t *testing.T) {
	fake := sessiontest.New()
	a := newTestApp(t, testConfig(t), fake)
	sc, err := script.Parse([]byte("steps:\n  - expect: never\n    timeout: 10ms\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = a.Record(context.Background(), sc, RecordOptions{Name: "x"})
	if !errors.Is(err, session.ErrExpectTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !fake.Destroyed() {
		t.Fatal("session backend was not destroyed")
	}
	if recs, _ := a.ListRecords(); len(recs) != 0 {
		t.Fatalf("failed recording must not be saved, got %v", recs)
	}
}

func TestRecordNoSave(t *testing.T) {
	fake := sessiontest.New()
	fake.Replies["echo hello"] = "hello"
	a := newTestApp(t, testConfig(t), fake)
	res, err := a.Record(context.Background(), demoScript(t), RecordOptions{NoSave: true})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.Timeline.Len() != 2 || res.Record.ID != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if recs, _ := a.ListRecords(); len(recs) != 0 {
		t.Fatalf("expected nothing saved, got %v", recs)
	}
}

func TestExportByRef(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	tl := timeline.New()
	for _, c := range []string{"one\n", "two\n"} {
		s, err := timeline.NewSnapshot(c, 20, 5, time.Now())
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		tl.Append(s)
	}
	if _, err := a.Save("pair", tl); err != nil {
		t.Fatalf("save: %v", err)
	}

	cast := filepath.Join(t.TempDir(), "pair.cast")
	files, err := a.Export("pair", ExportOptions{Cast: cast})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(files) != 1 || files[0] != cast {
		t.Fatalf("unexpected files %v", files)
	}
	f, err := os.Open(cast)
	if err != nil {
		t.Fatalf("open cast: %v", err)
	}
	defer f.Close()
	h, events, err := asciicast.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Width != 20 || len(events) != 2 || events[1].Data != "two\n" {
		t.Fatalf("unexpected cast: %+v %+v", h, events)
	}
}

func TestExportStillOutOfRange(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	tl := timeline.New()
	s, _ := timeline.NewSnapshot("x", 5, 5, time.Now())
	tl.Append(s)

	png := filepath.Join(t.TempDir(), "x.png")
	_, err := a.ExportTimeline(tl, ExportOptions{PNG: png, Frame: 3})
	if !errors.Is(err, timeline.ErrIndexOutOfRange) {
		t.Fatalf("expected index error, got %v", err)
	}
	if _, statErr := os.Stat(png); !os.IsNotExist(statErr) {
		t.Fatalf("png must not exist, stat: %v", statErr)
	}
}

func TestExportUnknownRef(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	_, err := a.Export("ghost", ExportOptions{Cast: filepath.Join(t.TempDir(), "x.cast")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestSelectWithFZFNoRecords(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	_, err := a.SelectWithFZF()
	if err == nil {
		t.Fatal("expected error when there are no records")
	}
	if !strings.Contains(err.Error(), "no saved recordings found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	unlock1, err := acquireLock("/tmp/tmux.sock\x00demo")
	if err != nil {
		t.Fatalf("first lock should succeed, got %v", err)
	}
	defer unlock1()

	_, err = acquireLock("/tmp/tmux.sock\x00demo")
	if err == nil {
		t.Fatal("second lock should fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected lock error: %v", err)
	}

	other, err := acquireLock("/tmp/tmux.sock\x00other")
	if err != nil {
		t.Fatalf("lock on another target should succeed, got %v", err)
	}
	other()

	unlock1()

	unlock2, err := acquireLock("/tmp/tmux.sock\x00demo")
	if err != nil {
		t.Fatalf("lock after unlock should succeed, got %v", err)
	}
	unlock2()
}

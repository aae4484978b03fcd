package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/session/sessiontest"
	"github.com/alchemmist/termreel/internal/timeline"
)

func testConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Width = 80
	cfg.Height = 24
	cfg.SettleDelay = time.Millisecond
	return cfg
}

func started(t *testing.T, fake *sessiontest.Backend) *session.Session {
	t.Helper()
	s, err := session.New(testConfig(), fake)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaultConfig(t *testing.T) {
	cfg := session.DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 120, cfg.Width)
	require.Equal(t, 40, cfg.Height)
	require.Equal(t, "/bin/bash", cfg.Shell)
	require.Equal(t, 100*time.Millisecond, cfg.SettleDelay)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*session.Config){
		"width":  func(c *session.Config) { c.Width = 0 },
		"height": func(c *session.Config) { c.Height = 1001 },
		"shell":  func(c *session.Config) { c.Shell = " " },
		"settle": func(c *session.Config) { c.SettleDelay = -time.Second },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := session.DefaultConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), timeline.ErrValidation)
			_, err := session.New(cfg, sessiontest.New())
			require.ErrorIs(t, err, timeline.ErrValidation)
		})
	}
}

func TestNotStarted(t *testing.T) {
	s, err := session.New(testConfig(), sessiontest.New())
	require.NoError(t, err)
	ctx := context.Background()

	require.ErrorIs(t, s.SendKeys(ctx, session.KeyEnter, true), session.ErrNotStarted)
	_, err = s.Capture()
	require.ErrorIs(t, err, session.ErrNotStarted)
	require.ErrorIs(t, s.ExpectText(ctx, "x", time.Millisecond), session.ErrNotStarted)
	require.NoError(t, s.Close())
}

func TestStartFailure(t *testing.T) {
	fake := sessiontest.New()
	fake.FailCreate = errors.New("no tmux")
	s, err := session.New(testConfig(), fake)
	require.NoError(t, err)
	require.ErrorContains(t, s.Start(), "no tmux")
	require.False(t, s.Started())
}

func TestSendKeysRecords(t *testing.T) {
	fake := sessiontest.New()
	s := started(t, fake)
	ctx := context.Background()

	require.NoError(t, s.SendText(ctx, "ls", true))
	require.NoError(t, s.SendKeys(ctx, session.KeyTab, false))
	require.Equal(t, 1, s.Timeline().Len())

	snap, err := s.Timeline().At(0)
	require.NoError(t, err)
	require.Equal(t, "$ ls", snap.Content())
	require.Equal(t, 80, snap.Width())
	require.Equal(t, 24, snap.Height())
}

func TestSendCommandRecordsOnlyEnter(t *testing.T) {
	fake := sessiontest.New()
	fake.Replies["echo hi"] = "hi"
	s := started(t, fake)

	require.NoError(t, s.SendCommand(context.Background(), "echo hi", true))
	require.Equal(t, 1, s.Timeline().Len())
	require.Equal(t, []session.KeySequence{session.Literal("echo hi"), session.KeyEnter}, fake.Sent())

	snap, _ := s.Timeline().At(-1)
	require.Equal(t, "$ echo hi\nhi\n$ ", snap.Content())
}

func TestSendTextRejectsEmpty(t *testing.T) {
	s := started(t, sessiontest.New())
	require.ErrorIs(t, s.SendText(context.Background(), "", true), timeline.ErrValidation)
}

func TestCaptureDoesNotRecord(t *testing.T) {
	s := started(t, sessiontest.New())
	_, err := s.Capture()
	require.NoError(t, err)
	require.Equal(t, 0, s.Timeline().Len())

	_, err = s.Record()
	require.NoError(t, err)
	require.Equal(t, 1, s.Timeline().Len())
}

func TestCaptureEscapesKeepsRaw(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureEscapes = true
	s, err := session.New(cfg, sessiontest.New())
	require.NoError(t, err)
	require.NoError(t, s.Start())

	snap, err := s.Capture()
	require.NoError(t, err)
	require.Equal(t, []byte("\x1b[0m$ "), snap.RawControlData())
	require.Equal(t, "$ ", snap.Content())
}

func TestExpectText(t *testing.T) {
	fake := sessiontest.New()
	fake.Replies["make"] = "build ok"
	s := started(t, fake)
	ctx := context.Background()

	require.NoError(t, s.SendCommand(ctx, "make", false))
	require.NoError(t, s.ExpectText(ctx, `build (ok|failed)`, time.Second))
	require.Equal(t, 0, s.Timeline().Len())
}

func TestExpectTextTimeout(t *testing.T) {
	fake := sessiontest.New()
	s := started(t, fake)

	err := s.ExpectText(context.Background(), "never", 150*time.Millisecond)
	require.ErrorIs(t, err, session.ErrExpectTimeout)
	require.GreaterOrEqual(t, fake.Captures(), 2)
}

func TestExpectTextBadPattern(t *testing.T) {
	s := started(t, sessiontest.New())
	require.ErrorIs(t, s.ExpectText(context.Background(), "(", time.Second), timeline.ErrValidation)
}

func TestExpectTextCancelled(t *testing.T) {
	s := started(t, sessiontest.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.ExpectText(ctx, "never", time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCloseDestroysBackendAndKeepsTimeline(t *testing.T) {
	fake := sessiontest.New()
	s, err := session.New(testConfig(), fake)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	_, err = s.Record()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.True(t, fake.Destroyed())
	require.Equal(t, 1, s.Timeline().Len())
	require.NoError(t, s.Close())
}

func TestWithTimelineAppendsToExisting(t *testing.T) {
	tl := timeline.New(timeline.WithTitle("demo"))
	s, err := session.New(testConfig(), sessiontest.New(), session.WithTimeline(tl))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	_, err = s.Record()
	require.NoError(t, err)
	require.Equal(t, 1, tl.Len())
	require.Equal(t, "demo", s.Timeline().Title())
}

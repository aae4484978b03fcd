// Package session drives a terminal through a Backend and records what it
// shows into a timeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/alchemmist/termreel/internal/timeline"
)

const expectPollInterval = 100 * time.Millisecond

var (
	ErrNotStarted    = errors.New("session not started")
	ErrExpectTimeout = errors.New("expected text did not appear")
)

// Session is not safe for concurrent use.
type Session struct {
	cfg      Config
	backend  Backend
	timeline *timeline.Timeline
	logger   *slog.Logger
	started  bool
	sleep    func(context.Context, time.Duration) error
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeline records into tl instead of a fresh timeline.
func WithTimeline(tl *timeline.Timeline) Option {
	return func(s *Session) {
		if tl != nil {
			s.timeline = tl
		}
	}
}

func New(cfg Config, backend Backend, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, errors.New("nil backend")
	}
	s := &Session{
		cfg:     cfg,
		backend: backend,
		logger:  slog.Default(),
		sleep:   sleepContext,
	}
	for _, o := range opts {
		o(s)
	}
	if s.timeline == nil {
		s.timeline = timeline.New(
			timeline.WithSize(cfg.Width, cfg.Height),
			timeline.WithEnvironment(cfg.Env),
		)
	}
	return s, nil
}

func (s *Session) Config() Config { return s.cfg }

// Timeline is the live recording; it keeps growing while the session runs.
func (s *Session) Timeline() *timeline.Timeline { return s.timeline }

func (s *Session) Started() bool { return s.started }

// Start creates the backend terminal. Starting twice is a no-op.
func (s *Session) Start() error {
	if s.started {
		return nil
	}
	if err := s.backend.Create(s.cfg); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	s.started = true
	s.logger.Debug("session started", "width", s.cfg.Width, "height", s.cfg.Height, "shell", s.cfg.Shell)
	return nil
}

// SendKeys sends k. With record set it waits for the settle delay and then
// appends a capture to the timeline.
func (s *Session) SendKeys(ctx context.Context, k KeySequence, record bool) error {
	if !s.started {
		return ErrNotStarted
	}
	if err := k.Validate(); err != nil {
		return err
	}
	if err := s.backend.SendKeys(k); err != nil {
		return fmt.Errorf("send keys %s: %w", k, err)
	}
	if !record {
		return nil
	}
	if err := s.sleep(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}
	_, err := s.Record()
	return err
}

// SendText types text literally.
func (s *Session) SendText(ctx context.Context, text string, record bool) error {
	k, err := NewKeySequence(text, true)
	if err != nil {
		return err
	}
	return s.SendKeys(ctx, k, record)
}

// SendCommand types command and presses Enter. Only the state after Enter
// is recorded.
func (s *Session) SendCommand(ctx context.Context, command string, record bool) error {
	if err := s.SendText(ctx, command, false); err != nil {
		return err
	}
	return s.SendKeys(ctx, KeyEnter, record)
}

// Capture reads the screen without recording it.
func (s *Session) Capture() (timeline.Snapshot, error) {
	if !s.started {
		return timeline.Snapshot{}, ErrNotStarted
	}
	c, err := s.backend.Capture()
	if err != nil {
		return timeline.Snapshot{}, fmt.Errorf("capture: %w", err)
	}
	var opts []timeline.SnapshotOption
	if c.Raw != nil {
		opts = append(opts, timeline.WithRawControlData(c.Raw))
	}
	return timeline.NewSnapshot(c.Content, c.Width, c.Height, c.Timestamp, opts...)
}

// Record captures the screen and appends it to the timeline.
func (s *Session) Record() (timeline.Snapshot, error) {
	snap, err := s.Capture()
	if err != nil {
		return timeline.Snapshot{}, err
	}
	if err := s.timeline.Append(snap); err != nil {
		return timeline.Snapshot{}, err
	}
	s.logger.Debug("frame recorded", "frames", s.timeline.Len())
	return snap, nil
}

// ExpectText polls the screen until pattern matches or timeout passes. On
// timeout it returns ErrExpectTimeout; a cancelled ctx returns ctx.Err().
func (s *Session) ExpectText(ctx context.Context, pattern string, timeout time.Duration) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return timeline.Invalid("pattern", "%v", err)
	}
	_, err = s.Expect(ctx, re, timeout)
	return err
}

// Expect is ExpectText for a compiled pattern. It returns the matching
// snapshot, which is not recorded.
func (s *Session) Expect(ctx context.Context, re *regexp.Regexp, timeout time.Duration) (timeline.Snapshot, error) {
	if !s.started {
		return timeline.Snapshot{}, ErrNotStarted
	}
	deadline := time.Now().Add(timeout)
	for {
		snap, err := s.Capture()
		if err != nil {
			return timeline.Snapshot{}, err
		}
		if re.MatchString(snap.Content()) {
			return snap, nil
		}
		if !time.Now().Before(deadline) {
			return timeline.Snapshot{}, fmt.Errorf("%w: %q within %s", ErrExpectTimeout, re.String(), timeout)
		}
		if err := s.sleep(ctx, expectPollInterval); err != nil {
			return timeline.Snapshot{}, err
		}
	}
}

// Close destroys the backend terminal. The timeline stays readable.
func (s *Session) Close() error {
	if !s.started {
		return nil
	}
	s.started = false
	if err := s.backend.Destroy(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.logger.Debug("session closed", "frames", s.timeline.Len())
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package app

import (
	"errors"
	"log/slog"

	"github.com/alchemmist/termreel/internal/config"
	"github.com/alchemmist/termreel/internal/recording"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/store"
	"github.com/alchemmist/termreel/internal/timeline"
	"github.com/alchemmist/termreel/internal/tmux"
)

var ErrNoRecordings = errors.New("no saved recordings found")

type App struct {
	cfg        config.Config
	store      *store.Store
	tmux       *tmux.Client
	logger     *slog.Logger
	newBackend func() session.Backend
}

type Option func(*App)

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithBackendFactory replaces the tmux backend used for recorded sessions.
func WithBackendFactory(f func() session.Backend) Option {
	return func(a *App) {
		if f != nil {
			a.newBackend = f
		}
	}
}

func New(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		tmux:   tmux.NewClient(cfg.TmuxBin),
		logger: slog.Default(),
	}
	a.newBackend = func() session.Backend { return session.NewTmuxBackend(a.cfg.TmuxBin) }
	for _, o := range opts {
		o(a)
	}
	st, err := store.Open(cfg.DataDir, store.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.store = st
	return a, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) Config() config.Config { return a.cfg }

func (a *App) Logger() *slog.Logger { return a.logger }

// NewBackend returns a fresh backend for an interactive session.
func (a *App) NewBackend() session.Backend { return a.newBackend() }

func (a *App) ListRecords() ([]recording.Record, error) {
	return a.store.List()
}

// Load resolves ref (ID, name or empty for the latest) to a timeline.
func (a *App) Load(ref string) (*timeline.Timeline, recording.Record, error) {
	return a.store.LoadTimeline(ref)
}

func (a *App) Save(name string, tl *timeline.Timeline) (recording.Record, error) {
	return a.store.Save(name, tl)
}

func (a *App) Delete(ref string) (recording.Record, error) {
	return a.store.Delete(ref)
}

func (a *App) pickerRecords() ([]recording.Record, error) {
	records, err := a.store.List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecordings
	}
	return records, nil
}

// SelectWithTUI lets the user pick a recording and returns its ID.
func (a *App) SelectWithTUI() (string, error) {
	records, err := a.pickerRecords()
	if err != nil {
		return "", err
	}
	return chooseRecording(records, a.lastScreen)
}

func (a *App) lastScreen(id string) (string, error) {
	tl, _, err := a.store.LoadTimeline(id)
	if err != nil {
		return "", err
	}
	last, err := tl.At(-1)
	if err != nil {
		return "", err
	}
	return last.Content(), nil
}

func (a *App) SelectWithFZF() (string, error) {
	records, err := a.pickerRecords()
	if err != nil {
		return "", err
	}
	return chooseRecordingFZF(records)
}

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alchemmist/termreel/internal/render"
	"github.com/alchemmist/termreel/internal/tmux"
)

// Capture is one raw screen read from a backend.
type Capture struct {
	Content   string
	Raw       []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Backend hosts the terminal a Session drives.
type Backend interface {
	Create(cfg Config) error
	SendKeys(k KeySequence) error
	Capture() (Capture, error)
	Destroy() error
}

var ErrBackendNotCreated = errors.New("backend session not created")

// TmuxBackend runs every session on its own tmux server so recordings never
// touch the user's sessions.
type TmuxBackend struct {
	bin    string
	name   string
	socket string
	cfg    Config
	client *tmux.Client
}

func NewTmuxBackend(bin string) *TmuxBackend {
	return &TmuxBackend{bin: bin}
}

// Name is the tmux session name, empty before Create.
func (b *TmuxBackend) Name() string { return b.name }

// Socket is the server socket path, empty before Create.
func (b *TmuxBackend) Socket() string { return b.socket }

func (b *TmuxBackend) Create(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dir := cfg.SocketDir
	if dir == "" {
		dir = DefaultSocketDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("socket dir: %w", err)
	}

	name := "termreel-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	socket := filepath.Join(dir, name+".sock")
	client := tmux.NewClient(b.bin).WithSocket(socket)
	spec := tmux.SessionSpec{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Dir:     cfg.Dir,
		Env:     cfg.Env,
		Command: strings.Fields(cfg.Shell),
	}
	if err := client.NewSession(name, spec); err != nil {
		return err
	}
	b.name, b.socket, b.cfg, b.client = name, socket, cfg, client
	return nil
}

func (b *TmuxBackend) SendKeys(k KeySequence) error {
	if b.client == nil {
		return ErrBackendNotCreated
	}
	if err := k.Validate(); err != nil {
		return err
	}
	return b.client.SendKeys(b.name, k.Keys, k.Literal)
}

// Capture reads the pane once. With escapes enabled the SGR-laden read is
// kept as the raw payload and the plain content is derived from it, so both
// describe the same instant.
func (b *TmuxBackend) Capture() (Capture, error) {
	if b.client == nil {
		return Capture{}, ErrBackendNotCreated
	}
	out, err := b.client.CapturePane(b.name, b.cfg.CaptureEscapes)
	if err != nil {
		return Capture{}, err
	}
	c := Capture{
		Content:   out,
		Width:     b.cfg.Width,
		Height:    b.cfg.Height,
		Timestamp: time.Now(),
	}
	if b.cfg.CaptureEscapes {
		c.Content = render.StripControl(out)
		c.Raw = []byte(out)
	}
	return c, nil
}

// Destroy kills the private server and removes its socket.
func (b *TmuxBackend) Destroy() error {
	if b.client == nil {
		return nil
	}
	err := b.client.KillServer()
	if rmErr := os.Remove(b.socket); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	b.client = nil
	return err
}

// Package sessiontest provides an in-memory session backend for tests.
package sessiontest

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/alchemmist/termreel/internal/session"
)

// Backend echoes typed text onto a fake screen. When Enter is pressed the
// current line is looked up in Replies and the reply is printed below it.
type Backend struct {
	Replies map[string]string
	// Clock, if set, stamps captures instead of time.Now.
	Clock func() time.Time
	// FailCreate makes Create return this error.
	FailCreate error

	mu        sync.Mutex
	cfg       session.Config
	created   bool
	destroyed bool
	screen    strings.Builder
	line      strings.Builder
	sent      []session.KeySequence
	captures  int
}

func New() *Backend {
	return &Backend{Replies: map[string]string{}}
}

func (b *Backend) Create(cfg session.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailCreate != nil {
		return b.FailCreate
	}
	b.cfg = cfg
	b.created = true
	b.screen.WriteString("$ ")
	return nil
}

func (b *Backend) SendKeys(k session.KeySequence) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.created {
		return errors.New("fake backend not created")
	}
	b.sent = append(b.sent, k)
	if k.Literal {
		b.screen.WriteString(k.Keys)
		b.line.WriteString(k.Keys)
		return nil
	}
	switch k.Keys {
	case "Enter":
		cmd := b.line.String()
		b.line.Reset()
		b.screen.WriteString("\n")
		if reply, ok := b.Replies[cmd]; ok {
			b.screen.WriteString(reply)
			if !strings.HasSuffix(reply, "\n") {
				b.screen.WriteString("\n")
			}
		}
		b.screen.WriteString("$ ")
	case "C-c":
		b.line.Reset()
		b.screen.WriteString("^C\n$ ")
	}
	return nil
}

func (b *Backend) Capture() (session.Capture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.created {
		return session.Capture{}, errors.New("fake backend not created")
	}
	b.captures++
	now := time.Now()
	if b.Clock != nil {
		now = b.Clock()
	}
	c := session.Capture{
		Content:   b.screen.String(),
		Width:     b.cfg.Width,
		Height:    b.cfg.Height,
		Timestamp: now,
	}
	if b.cfg.CaptureEscapes {
		c.Raw = []byte("\x1b[0m" + c.Content)
	}
	return c, nil
}

func (b *Backend) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = false
	b.destroyed = true
	return nil
}

// Sent returns every key sequence received so far.
func (b *Backend) Sent() []session.KeySequence {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]session.KeySequence(nil), b.sent...)
}

func (b *Backend) Captures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captures
}

func (b *Backend) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

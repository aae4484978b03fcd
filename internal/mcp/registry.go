package mcp

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/alchemmist/termreel/internal/session"
)

var errUnknownSession = errors.New("unknown session")

// liveSession serializes every tool call that touches one session.
type liveSession struct {
	mu   sync.Mutex
	id   string
	sess *session.Session
}

type registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*liveSession)}
}

func (r *registry) add(s *session.Session) *liveSession {
	ls := &liveSession{id: uuid.NewString(), sess: s}
	r.mu.Lock()
	r.sessions[ls.id] = ls
	r.mu.Unlock()
	return ls
}

func (r *registry) get(id string) (*liveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownSession, id)
	}
	return ls, nil
}

// remove drops id and returns it so the caller can close it.
func (r *registry) remove(id string) (*liveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownSession, id)
	}
	delete(r.sessions, id)
	return ls, nil
}

func (r *registry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// drain empties the registry and returns what it held.
func (r *registry) drain() []*liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*liveSession, 0, len(r.sessions))
	for id, ls := range r.sessions {
		out = append(out, ls)
		delete(r.sessions, id)
	}
	return out
}

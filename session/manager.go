package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"text-expander/desktop"
	"text-expander/metrics"
	"text-expander/resolver"
	"text-expander/templates"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrSessionActive = errors.New("another session is already open")
	ErrWrongKind     = errors.New("operation not supported by this session")
	ErrNotResolvable = errors.New("fragment does not resolve to a single template")
	ErrNoCollection  = errors.New("no template found for this window")
	ErrClosed        = errors.New("session closed")
)

// Policy decides what a trigger does while another session is open.
type Policy string

const (
	// PolicyReject refuses new sessions while one is open.
	PolicyReject Policy = "reject"
	// PolicyIndependent opens another, unrelated session.
	PolicyIndependent Policy = "independent"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyReject, PolicyIndependent:
		return p, nil
	default:
		return "", fmt.Errorf("unknown session policy %q", s)
	}
}

// Store is the part of the template store sessions use.
type Store interface {
	Find(windowTitle string) (*templates.Collection, error)
	AppendEntry(h templates.Handle, key, snippet string) (*templates.Collection, error)
}

// Options tune a Manager. Zero values pick the defaults.
type Options struct {
	Policy      Policy
	IdleTimeout time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

// Manager owns the open sessions. OpenResolve and OpenAdd are the entry
// points a hotkey dispatcher calls.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store       Store
	window      desktop.WindowSource
	inserter    desktop.Inserter
	policy      Policy
	idleTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager creates a Manager. window is consulted when a trigger does not
// carry a title; inserter receives committed snippets.
func NewManager(store Store, window desktop.WindowSource, inserter desktop.Inserter, opts Options) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		store:       store,
		window:      window,
		inserter:    inserter,
		policy:      opts.Policy,
		idleTimeout: opts.IdleTimeout,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if m.policy == "" {
		m.policy = PolicyReject
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = 10 * time.Minute
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// OpenResolve starts a resolve-and-insert session. A window without a
// matching collection still opens a session; every match then reports
// NoCollection.
func (m *Manager) OpenResolve(ctx context.Context, windowTitle string) (*Session, error) {
	return m.open(ctx, KindResolve, windowTitle)
}

// OpenAdd starts an add-entry session. It fails with ErrNoCollection when
// the window has no collection to add to.
func (m *Manager) OpenAdd(ctx context.Context, windowTitle string) (*Session, error) {
	return m.open(ctx, KindAdd, windowTitle)
}

func (m *Manager) open(ctx context.Context, kind Kind, windowTitle string) (*Session, error) {
	if err := m.admit(); err != nil {
		return nil, err
	}

	if windowTitle == "" {
		if m.window == nil {
			return nil, errors.New("no window title given and no window source configured")
		}
		title, err := m.window.ActiveWindowTitle(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading active window title: %w", err)
		}
		windowTitle = title
	}

	collection, err := m.store.Find(windowTitle)
	switch {
	case errors.Is(err, templates.ErrNoCollection):
		if kind == KindAdd {
			return nil, ErrNoCollection
		}
		collection = nil
	case err != nil:
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:          uuid.New().String(),
		Kind:        kind,
		WindowTitle: windowTitle,
		CreatedAt:   now,
		m:           m,
		lastActive:  now,
		collection:  collection,
		done:        make(chan struct{}),
	}
	if kind == KindResolve {
		s.result = resolver.Match(collection, "")
	}

	m.mu.Lock()
	if m.policy == PolicyReject && len(m.sessions) > 0 {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsActive.WithLabelValues(string(kind)).Inc()
	fields := []zap.Field{
		zap.String("session", s.ID),
		zap.String("kind", string(kind)),
		zap.String("title", windowTitle),
	}
	if collection != nil {
		fields = append(fields, zap.String("collection", collection.Name))
	}
	m.logger.Info("session opened", fields...)
	return s, nil
}

// admit fails fast under PolicyReject before any window or store work.
func (m *Manager) admit() error {
	if m.policy != PolicyReject {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.sessions) > 0 {
		return ErrSessionActive
	}
	return nil
}

// List returns open sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close aborts a session. Nothing is written. A commit already inserting
// completes first, and Close then reports ErrNotFound.
func (m *Manager) Close(id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !s.abort() {
		return ErrNotFound
	}
	return nil
}

// Reap closes sessions idle for longer than the idle timeout and returns
// their IDs. Sessions with a commit in flight are left alone.
func (m *Manager) Reap(now time.Time) []string {
	var stale []*Session
	m.mu.RLock()
	for _, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.idleTimeout {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		if !s.tryAbort() {
			continue
		}
		ids = append(ids, s.ID)
		m.logger.Info("idle session reaped", zap.String("session", s.ID))
	}
	sort.Strings(ids)
	return ids
}

// RunReaper calls Reap every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap(m.now())
		}
	}
}

// finish removes s and closes its done channel. It reports whether s was
// still registered.
func (m *Manager) finish(s *Session) bool {
	m.mu.Lock()
	_, ok := m.sessions[s.ID]
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	if ok {
		metrics.SessionsActive.WithLabelValues(string(s.Kind)).Dec()
	}
	s.end()
	return ok
}

package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"text-expander/metrics"
	"text-expander/resolver"
	"text-expander/templates"
)

// Kind distinguishes the two interaction flows a hotkey can start.
type Kind string

const (
	KindResolve Kind = "resolve"
	KindAdd     Kind = "add"
)

// Event is pushed to the session's live client.
type Event struct {
	Type       string                `json:"type"`
	Result     *resolver.Result      `json:"result,omitempty"`
	Preview    string                `json:"preview,omitempty"`
	Collection *templates.Collection `json:"collection,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// Session is one interaction started by a hotkey. It holds the collection
// bound when it was opened and the last computed match; it is never shared
// between triggers.
type Session struct {
	ID          string
	Kind        Kind
	WindowTitle string
	CreatedAt   time.Time

	m          *Manager
	mu         sync.Mutex
	commitMu   sync.Mutex // held from the closed check until the session ends
	lastActive time.Time
	collection *templates.Collection
	result     resolver.Result

	outMu    sync.Mutex
	outChan  chan Event
	kickChan chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// View is the JSON form of a session.
type View struct {
	ID           string           `json:"id"`
	Kind         Kind             `json:"kind"`
	WindowTitle  string           `json:"window_title"`
	Collection   string           `json:"collection,omitempty"`
	TriggerNames []string         `json:"trigger_names,omitempty"`
	Label        string           `json:"label"`
	Result       *resolver.Result `json:"result,omitempty"`
	Connected    bool             `json:"connected"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActive   time.Time        `json:"last_active"`
}

// View returns a consistent snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		ID:          s.ID,
		Kind:        s.Kind,
		WindowTitle: s.WindowTitle,
		Label:       s.labelLocked(),
		CreatedAt:   s.CreatedAt,
		LastActive:  s.lastActive,
	}
	if s.collection != nil {
		v.Collection = s.collection.Name
		v.TriggerNames = append([]string(nil), s.collection.TriggerNames...)
	}
	if s.Kind == KindResolve {
		r := s.result
		v.Result = &r
	}
	s.mu.Unlock()

	s.outMu.Lock()
	v.Connected = s.outChan != nil
	s.outMu.Unlock()
	return v
}

// Label describes the bound collection, e.g. "Active template for: mail".
func (s *Session) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelLocked()
}

func (s *Session) labelLocked() string {
	if s.collection == nil {
		return "No template found for this window"
	}
	names := strings.Join(s.collection.TriggerNames, ", ")
	if s.Kind == KindAdd {
		return "Add entry to the template: " + names
	}
	return "Active template for: " + names
}

// Collection returns the bound collection snapshot, or nil.
func (s *Session) Collection() *templates.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection
}

// Result returns the last computed match.
func (s *Session) Result() resolver.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// LastActive reports when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SetFragment recomputes the match for fragment from scratch and records it
// as the session's current result.
func (s *Session) SetFragment(fragment string) (resolver.Result, error) {
	if s.Kind != KindResolve {
		return resolver.Result{}, fmt.Errorf("%w: %s session has no fragment", ErrWrongKind, s.Kind)
	}
	if s.closed() {
		return resolver.Result{}, ErrClosed
	}

	s.mu.Lock()
	res := resolver.Match(s.collection, fragment)
	s.result = res
	s.lastActive = s.m.now()
	s.mu.Unlock()

	metrics.LookupsTotal.WithLabelValues(res.Kind.String()).Inc()
	s.publish(Event{Type: "result", Result: &res, Preview: res.Preview()})
	return res, nil
}

// Commit inserts the snippet of the current result and ends the session.
// Results that do not resolve return ErrNotResolvable and leave the session
// open so the user can keep typing. At most one commit inserts; a concurrent
// commit or abort waits for it and then finds the session closed.
func (s *Session) Commit(ctx context.Context) (string, error) {
	if s.Kind != KindResolve {
		return "", fmt.Errorf("%w: cannot commit a %s session", ErrWrongKind, s.Kind)
	}
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.closed() {
		return "", ErrClosed
	}

	res := s.Result()
	text, ok := resolver.Resolve(res)
	if !ok {
		metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w: %s", ErrNotResolvable, resolver.CommitMessage(res))
	}
	if err := s.m.inserter.Insert(ctx, text); err != nil {
		metrics.CommitsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("inserting snippet: %w", err)
	}

	metrics.CommitsTotal.WithLabelValues("inserted").Inc()
	s.m.logger.Info("snippet inserted",
		zap.String("session", s.ID),
		zap.String("key", res.Key),
	)
	s.publish(Event{Type: "committed", Result: &res})
	s.m.finish(s)
	return text, nil
}

// AddEntry appends key→snippet to the bound collection. The session stays
// open so several entries can be added in a row.
func (s *Session) AddEntry(key, snippet string) (*templates.Collection, error) {
	if s.Kind != KindAdd {
		return nil, fmt.Errorf("%w: cannot add entries from a %s session", ErrWrongKind, s.Kind)
	}
	if s.closed() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := s.m.store.AppendEntry(s.collection.Handle(), key, snippet)
	if err != nil {
		return nil, err
	}
	s.collection = updated
	s.lastActive = s.m.now()
	s.publish(Event{Type: "saved", Collection: updated})
	return updated, nil
}

// SetClient registers a channel to receive session events. A previously
// registered client is kicked: its kick channel is closed. The returned kick
// channel is closed if this client is displaced in turn.
func (s *Session) SetClient(ch chan Event) <-chan struct{} {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.kickChan != nil {
		close(s.kickChan)
	}
	kick := make(chan struct{})
	s.kickChan = kick
	s.outChan = ch
	return kick
}

// ClearClient detaches ch if it is still the current client and closes it.
func (s *Session) ClearClient(ch chan Event) {
	s.outMu.Lock()
	if s.outChan == ch {
		s.outChan = nil
		s.kickChan = nil
	}
	s.outMu.Unlock()
	close(ch)
}

// Done is closed when the session ends, by commit, abort or reaping.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) publish(ev Event) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outChan == nil {
		return
	}
	select {
	case s.outChan <- ev:
	default:
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// abort ends the session unless a commit got there first. It reports
// whether this call closed it.
func (s *Session) abort() bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.m.finish(s)
}

// tryAbort is abort that gives up when a commit is in flight.
func (s *Session) tryAbort() bool {
	if !s.commitMu.TryLock() {
		return false
	}
	defer s.commitMu.Unlock()
	return s.m.finish(s)
}

func (s *Session) end() {
	s.closeOnce.Do(func() { close(s.done) })
}

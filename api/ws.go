package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"text-expander/resolver"
	"text-expander/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is what the client sends.
type wsMessage struct {
	Type     string `json:"type"`
	Fragment string `json:"fragment,omitempty"`
	Key      string `json:"key,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session", id), zap.Error(err))
		return
	}
	defer conn.Close()

	// gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeMsg := func(ev session.Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}

	outChan := make(chan session.Event, 64)
	kick := s.SetClient(outChan) // displaces any earlier client
	defer s.ClearClient(outChan)

	opened := session.Event{Type: "opened", Message: s.Label(), Collection: s.Collection()}
	if s.Kind == session.KindResolve {
		res := s.Result()
		opened.Result = &res
		opened.Preview = res.Preview()
	}
	if err := writeMsg(opened); err != nil {
		return
	}

	// Pump session events to the client. When the session ends, flush what
	// is queued, say "closed" and drop the connection so the read loop
	// below unblocks.
	go func() {
		for {
			select {
			case ev, ok := <-outChan:
				if !ok {
					return
				}
				if err := writeMsg(ev); err != nil {
					return
				}
			case <-s.Done():
				drain(outChan, writeMsg)
				_ = writeMsg(session.Event{Type: "closed"})
				conn.Close()
				return
			case <-kick:
				// Displaced by a newer connection; no "closed" message since
				// the session itself is still open.
				conn.Close()
				return
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Client went away or the pump closed the connection. The
			// session stays open either way.
			return
		}

		switch msg.Type {
		case "fragment":
			if _, err := s.SetFragment(msg.Fragment); err != nil {
				_ = writeMsg(errorEvent(s, err))
			}
		case "commit":
			if _, err := s.Commit(r.Context()); err != nil {
				_ = writeMsg(errorEvent(s, err))
			}
		case "add":
			if _, err := s.AddEntry(msg.Key, msg.Snippet); err != nil {
				_ = writeMsg(errorEvent(s, err))
			}
		case "close":
			_ = h.manager.Close(s.ID)
		default:
			_ = writeMsg(session.Event{Type: "error", Message: "unknown message type " + msg.Type})
		}
	}
}

// errorEvent turns a refused operation into the text shown to the user.
func errorEvent(s *session.Session, err error) session.Event {
	msg := err.Error()
	if errors.Is(err, session.ErrNotResolvable) {
		msg = resolver.CommitMessage(s.Result())
	}
	return session.Event{Type: "error", Message: msg}
}

// drain writes whatever is already queued on ch without waiting for more.
func drain(ch <-chan session.Event, write func(session.Event) error) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			_ = write(ev)
		default:
			return
		}
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"text-expander/resolver"
	"text-expander/session"
)

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.List()
	views := make([]session.View, len(sessions))
	for i, s := range sessions {
		views[i] = s.View()
	}
	writeJSON(w, http.StatusOK, views)
}

// createSession is what a hotkey triggers. An empty window_title asks the
// configured window source.
func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        session.Kind `json:"kind"`
		WindowTitle string       `json:"window_title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		s   *session.Session
		err error
	)
	switch req.Kind {
	case session.KindResolve:
		s, err = h.manager.OpenResolve(r.Context(), req.WindowTitle)
	case session.KindAdd:
		s, err = h.manager.OpenAdd(r.Context(), req.WindowTitle)
	default:
		http.Error(w, `kind must be "resolve" or "add"`, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setFragment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Fragment string `json:"fragment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.SetFragment(req.Fragment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: res, Preview: res.Preview()})
}

func (h *handler) commit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	text, err := s.Commit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *handler) addEntry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Key     string `json:"key"`
		Snippet string `json:"snippet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	updated, err := s.AddEntry(req.Key, req.Snippet)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, updated)
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

type resultResponse struct {
	Result  resolver.Result `json:"result"`
	Preview string          `json:"preview"`
}

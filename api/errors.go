package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"text-expander/session"
	"text-expander/templates"
)

// statusFor maps core errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, templates.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, templates.ErrDuplicateKey),
		errors.Is(err, session.ErrNotResolvable),
		errors.Is(err, session.ErrSessionActive),
		errors.Is(err, session.ErrWrongKind):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrNoCollection):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

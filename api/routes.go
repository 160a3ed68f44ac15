package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"text-expander/config"
	"text-expander/resolver"
	"text-expander/session"
	"text-expander/templates"
)

// RegisterRoutes builds the HTTP host. External hotkey daemons open
// sessions with POST /api/sessions; GUI overlays drive them over REST or the
// per-session WebSocket.
func RegisterRoutes(manager *session.Manager, store *templates.Store, hotkeys config.Hotkeys, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	h := &handler{
		manager:  manager,
		store:    store,
		resolver: resolver.New(store, logger),
		hotkeys:  hotkeys,
		logger:   logger,
	}

	r.Get("/api/collections", h.listCollections)
	r.Get("/api/match", h.match)
	r.Get("/api/hotkeys", h.getHotkeys)

	r.Get("/api/sessions", h.listSessions)
	r.Post("/api/sessions", h.createSession)
	r.Delete("/api/sessions/{id}", h.closeSession)
	r.Put("/api/sessions/{id}/fragment", h.setFragment)
	r.Post("/api/sessions/{id}/commit", h.commit)
	r.Post("/api/sessions/{id}/entries", h.addEntry)

	r.Get("/api/sessions/{id}/ws", h.handleWS)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

type handler struct {
	manager  *session.Manager
	store    *templates.Store
	resolver *resolver.Resolver
	hotkeys  config.Hotkeys
	logger   *zap.Logger
}

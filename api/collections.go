package api

import "net/http"

func (h *handler) listCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.store.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collections)
}

// match is the stateless query: bind the title, match the fragment.
func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.resolver.Query(q.Get("title"), q.Get("fragment"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: res, Preview: res.Preview()})
}

func (h *handler) getHotkeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hotkeys)
}

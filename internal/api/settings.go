package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebase/internal/grouping"
)

// Shortcuts is implemented by settings stores that keep pinned shortcuts.
type Shortcuts interface {
	Pin(ctx context.Context, id string) error
	Unpin(ctx context.Context, id string) error
	Pins() []string
}

// GetGroupOptions handles GET /api/settings/groups/{kind}.
func (h *Handler) GetGroupOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.db.Settings().GroupOptions(chi.URLParam(r, "kind")))
}

// SetGroupOptions handles PUT /api/settings/groups/{kind}.
func (h *Handler) SetGroupOptions(w http.ResponseWriter, r *http.Request) {
	var opts grouping.Options
	if !readJSON(w, r, &opts) {
		return
	}
	kind := chi.URLParam(r, "kind")
	if err := h.db.Settings().SetGroupOptions(r.Context(), kind, opts); err != nil {
		writeError(w, "set group options", err)
		return
	}
	writeJSON(w, http.StatusOK, h.db.Settings().GroupOptions(kind))
}

// ListShortcuts handles GET /api/shortcuts.
func (h *Handler) ListShortcuts(w http.ResponseWriter, _ *http.Request) {
	s, ok := h.shortcuts(w)
	if !ok {
		return
	}
	pins := s.Pins()
	if pins == nil {
		pins = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pins": pins})
}

// AddShortcut handles PUT /api/shortcuts/{id}.
func (h *Handler) AddShortcut(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shortcuts(w)
	if !ok {
		return
	}
	if err := s.Pin(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "add shortcut", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveShortcut handles DELETE /api/shortcuts/{id}.
func (h *Handler) RemoveShortcut(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shortcuts(w)
	if !ok {
		return
	}
	if err := s.Unpin(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "remove shortcut", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) shortcuts(w http.ResponseWriter) (Shortcuts, bool) {
	s, ok := h.db.Settings().(Shortcuts)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorBody("shortcuts not supported"))
	}
	return s, ok
}

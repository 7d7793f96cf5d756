package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebase/internal/models"
)

// ListTrash handles GET /api/trash, newest deletions first. With groupBy
// the response is grouped by deletion date.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("groupBy") != "" {
		writeJSON(w, http.StatusOK, h.db.Trash.Group(groupOptions(r)))
		return
	}
	all := h.db.Trash.All()
	if all == nil {
		all = []models.TrashEntry{}
	}
	writeJSON(w, http.StatusOK, TrashListResponse{Entries: all, Total: len(all)})
}

// RestoreTrash handles POST /api/trash/restore.
func (h *Handler) RestoreTrash(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.db.Trash.Restore(r.Context(), req.IDs...); err != nil {
		writeError(w, "restore trash", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeTrash handles DELETE /api/trash/{id}.
func (h *Handler) PurgeTrash(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.db.Trash.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.db.Trash.Purge(r.Context(), id); err != nil {
		writeError(w, "purge trash", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearTrash handles DELETE /api/trash.
func (h *Handler) ClearTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Trash.Clear(r.Context()); err != nil {
		writeError(w, "clear trash", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

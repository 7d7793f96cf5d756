package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/grouping"
	"github.com/starford/notebase/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	db *core.DB
}

// NewHandler creates a new Handler.
func NewHandler(db *core.DB) *Handler {
	return &Handler{db: db}
}

// ListNotes handles GET /api/notes.
//
// Query parameters: q (case-insensitive filter), tag, and view
// (pinned, favorites).
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var notes []models.Note
	switch {
	case q.Get("q") != "":
		notes = h.db.Notes.Filter(q.Get("q"))
	case q.Get("tag") != "":
		notes = h.db.Notes.Tagged(q.Get("tag"))
	case q.Get("view") == "pinned":
		notes = h.db.Notes.Pinned()
	case q.Get("view") == "favorites":
		notes = h.db.Notes.Favorites()
	default:
		notes = h.db.Notes.All()
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GroupNotes handles GET /api/notes/groups.
//
// Without explicit groupBy/sortBy the stored options of view kind
// (default "home") apply.
func (h *Handler) GroupNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("groupBy") == "" && q.Get("sortBy") == "" {
		kind := q.Get("kind")
		if kind == "" {
			kind = "home"
		}
		writeJSON(w, http.StatusOK, h.db.Notes.Grouped(kind))
		return
	}
	writeJSON(w, http.StatusOK, h.db.Notes.Group(groupOptions(r)))
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.db.Notes.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes. A note that is empty after
// normalization is not stored and yields 204.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.ID != "" {
		if _, exists := h.db.Notes.Get(req.ID); exists {
			writeJSON(w, http.StatusConflict, errorBody("note already exists"))
			return
		}
	}
	id, err := h.db.Notes.Add(r.Context(), req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	if id == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	note, _ := h.db.Notes.Get(id)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}. Omitted fields keep their
// values; an update that empties the note deletes it and yields 204.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.db.Notes.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var req NoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	req.ID = id
	got, err := h.db.Notes.Add(r.Context(), req)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	if got == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	note, _ := h.db.Notes.Get(got)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}; the note moves to the trash.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.db.Notes.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.db.Notes.Delete(r.Context(), id); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PinNote handles POST /api/notes/{id}/pin.
func (h *Handler) PinNote(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "pin note", h.db.Notes.Pin)
}

// FavoriteNote handles POST /api/notes/{id}/favorite.
func (h *Handler) FavoriteNote(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "favorite note", h.db.Notes.Favorite)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), id); err != nil {
		writeError(w, op, err)
		return
	}
	note, _ := h.db.Notes.Get(id)
	writeJSON(w, http.StatusOK, note)
}

// TagNote handles POST /api/notes/{id}/tags.
func (h *Handler) TagNote(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !readJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.db.Notes.Tag(r.Context(), id, req.Tag); err != nil {
		writeError(w, "tag note", err)
		return
	}
	note, _ := h.db.Notes.Get(id)
	writeJSON(w, http.StatusOK, note)
}

// UntagNote handles DELETE /api/notes/{id}/tags/{tag}.
func (h *Handler) UntagNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.Notes.Untag(r.Context(), id, chi.URLParam(r, "tag")); err != nil {
		writeError(w, "untag note", err)
		return
	}
	note, _ := h.db.Notes.Get(id)
	writeJSON(w, http.StatusOK, note)
}

// LockNote handles POST /api/notes/{id}/lock.
func (h *Handler) LockNote(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !readJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	found, err := h.db.Notes.Lock(r.Context(), id, req.Password)
	if err != nil {
		writeError(w, "lock note", err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	note, _ := h.db.Notes.Get(id)
	writeJSON(w, http.StatusOK, note)
}

// UnlockNote handles POST /api/notes/{id}/unlock. The response carries the
// plaintext; the stored note stays locked unless permanent is set.
func (h *Handler) UnlockNote(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !readJSON(w, r, &req) {
		return
	}
	note, err := h.db.Notes.Unlock(r.Context(), chi.URLParam(r, "id"), req.Password, req.Permanent)
	if err != nil {
		writeError(w, "unlock note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// MoveNotes handles POST /api/notes/move.
func (h *Handler) MoveNotes(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !readJSON(w, r, &req) {
		return
	}
	dest := models.NotebookRef{ID: req.Notebook, Topic: req.Topic}
	if err := h.db.Notes.Move(r.Context(), dest, req.IDs...); err != nil {
		writeError(w, "move notes", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.db.Notes.Tags()})
}

// groupOptions reads grouping options from the query string.
func groupOptions(r *http.Request) grouping.Options {
	q := r.URL.Query()
	return grouping.Options{
		GroupBy:       grouping.GroupBy(strings.TrimSpace(q.Get("groupBy"))),
		SortBy:        grouping.SortField(strings.TrimSpace(q.Get("sortBy"))),
		SortDirection: grouping.Direction(strings.TrimSpace(q.Get("sortDirection"))),
	}
}

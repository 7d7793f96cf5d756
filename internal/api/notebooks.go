package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
)

// notebookPatch has no Validate method: updates may omit the title.
type notebookPatch core.NotebookInput

// ListNotebooks handles GET /api/notebooks. With groupBy or sortBy the
// response is grouped.
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("groupBy") != "" || q.Get("sortBy") != "" {
		writeJSON(w, http.StatusOK, h.db.Notebooks.Group(groupOptions(r)))
		return
	}
	var all []models.Notebook
	if q.Get("view") == "pinned" {
		all = h.db.Notebooks.Pinned()
	} else {
		all = h.db.Notebooks.All()
	}
	if all == nil {
		all = []models.Notebook{}
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: all, Total: len(all)})
}

// GetNotebook handles GET /api/notebooks/{id}.
func (h *Handler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return
	}
	data, _ := nb.Data()
	writeJSON(w, http.StatusOK, data)
}

// CreateNotebook handles POST /api/notebooks. A notebook refused by the
// plan's status check yields 403.
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req NotebookRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.ID != "" {
		if _, exists := h.db.Notebooks.Notebook(req.ID); exists {
			writeJSON(w, http.StatusConflict, errorBody("notebook already exists"))
			return
		}
	}
	id, err := h.db.Notebooks.Add(r.Context(), req)
	if err != nil {
		writeError(w, "create notebook", err)
		return
	}
	if id == "" {
		writeJSON(w, http.StatusForbidden, errorBody("notebook limit reached"))
		return
	}
	nb, _ := h.db.Notebooks.Notebook(id)
	data, _ := nb.Data()
	writeJSON(w, http.StatusCreated, data)
}

// UpdateNotebook handles PATCH /api/notebooks/{id}.
func (h *Handler) UpdateNotebook(w http.ResponseWriter, r *http.Request) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return
	}
	var req notebookPatch
	if !readJSON(w, r, &req) {
		return
	}
	req.ID = nb.ID()
	if _, err := h.db.Notebooks.Add(r.Context(), core.NotebookInput(req)); err != nil {
		writeError(w, "update notebook", err)
		return
	}
	data, _ := nb.Data()
	writeJSON(w, http.StatusOK, data)
}

// DeleteNotebook handles DELETE /api/notebooks/{id}; the notebook moves to
// the trash and its notes lose their notebook.
func (h *Handler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return
	}
	if err := h.db.Notebooks.Delete(r.Context(), nb.ID()); err != nil {
		writeError(w, "delete notebook", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PinNotebook handles POST /api/notebooks/{id}/pin.
func (h *Handler) PinNotebook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.Notebooks.Pin(r.Context(), id); err != nil {
		writeError(w, "pin notebook", err)
		return
	}
	nb, _ := h.db.Notebooks.Notebook(id)
	data, _ := nb.Data()
	writeJSON(w, http.StatusOK, data)
}

// ListNotebookNotes handles GET /api/notebooks/{id}/notes.
func (h *Handler) ListNotebookNotes(w http.ResponseWriter, r *http.Request) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return
	}
	notes := nb.Notes()
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// ListTopics handles GET /api/notebooks/{id}/topics.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": nb.Topics().All()})
}

// CreateTopics handles POST /api/notebooks/{id}/topics.
func (h *Handler) CreateTopics(w http.ResponseWriter, r *http.Request) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return
	}
	var req TopicsRequest
	if !readJSON(w, r, &req) {
		return
	}
	topics := nb.Topics()
	if err := topics.Add(r.Context(), req.Titles...); err != nil {
		writeError(w, "create topics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics.All()})
}

// DeleteTopic handles DELETE /api/notebooks/{id}/topics/{topic}.
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.topic(w, r)
	if !ok {
		return
	}
	nb, _ := h.db.Notebooks.Topics(topic.Ref().ID)
	if err := nb.Delete(r.Context(), topic.Title()); err != nil {
		writeError(w, "delete topic", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTopicNotes handles GET /api/notebooks/{id}/topics/{topic}/notes.
func (h *Handler) ListTopicNotes(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.topic(w, r)
	if !ok {
		return
	}
	notes := topic.All()
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// AddTopicNotes handles POST /api/notebooks/{id}/topics/{topic}/notes.
func (h *Handler) AddTopicNotes(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.topic(w, r)
	if !ok {
		return
	}
	var req IDsRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := topic.Add(r.Context(), req.IDs...); err != nil {
		writeError(w, "add topic notes", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTopicNote handles DELETE /api/notebooks/{id}/topics/{topic}/notes/{noteID}.
func (h *Handler) RemoveTopicNote(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.topic(w, r)
	if !ok {
		return
	}
	if err := topic.Remove(r.Context(), chi.URLParam(r, "noteID")); err != nil {
		writeError(w, "remove topic note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) notebook(w http.ResponseWriter, r *http.Request) (*core.NotebookHandle, bool) {
	nb, ok := h.db.Notebooks.Notebook(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	}
	return nb, ok
}

// topic resolves the notebook and topic URL parameters. Topic titles may
// contain escaped slashes.
func (h *Handler) topic(w http.ResponseWriter, r *http.Request) (*core.TopicHandle, bool) {
	nb, ok := h.notebook(w, r)
	if !ok {
		return nil, false
	}
	title := chi.URLParam(r, "topic")
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}
	topic, ok := nb.Topics().Topic(title)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return nil, false
	}
	return topic, true
}

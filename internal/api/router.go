package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebase/internal/core"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(db *core.DB, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(db)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/groups", h.GroupNotes)
		r.Post("/move", h.MoveNotes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Patch("/", h.UpdateNote)
			r.Delete("/", h.DeleteNote)
			r.Post("/pin", h.PinNote)
			r.Post("/favorite", h.FavoriteNote)
			r.Post("/tags", h.TagNote)
			r.Delete("/tags/{tag}", h.UntagNote)
			r.Post("/lock", h.LockNote)
			r.Post("/unlock", h.UnlockNote)
		})
	})

	r.Get("/tags", h.ListTags)

	r.Route("/notebooks", func(r chi.Router) {
		r.Get("/", h.ListNotebooks)
		r.Post("/", h.CreateNotebook)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNotebook)
			r.Patch("/", h.UpdateNotebook)
			r.Delete("/", h.DeleteNotebook)
			r.Post("/pin", h.PinNotebook)
			r.Get("/notes", h.ListNotebookNotes)
			r.Get("/topics", h.ListTopics)
			r.Post("/topics", h.CreateTopics)
			r.Delete("/topics/{topic}", h.DeleteTopic)
			r.Get("/topics/{topic}/notes", h.ListTopicNotes)
			r.Post("/topics/{topic}/notes", h.AddTopicNotes)
			r.Delete("/topics/{topic}/notes/{noteID}", h.RemoveTopicNote)
		})
	})

	r.Route("/trash", func(r chi.Router) {
		r.Get("/", h.ListTrash)
		r.Delete("/", h.ClearTrash)
		r.Post("/restore", h.RestoreTrash)
		r.Delete("/{id}", h.PurgeTrash)
	})

	r.Get("/settings/groups/{kind}", h.GetGroupOptions)
	r.Put("/settings/groups/{kind}", h.SetGroupOptions)

	r.Get("/shortcuts", h.ListShortcuts)
	r.Put("/shortcuts/{id}", h.AddShortcut)
	r.Delete("/shortcuts/{id}", h.RemoveShortcut)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

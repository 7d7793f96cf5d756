package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
)

// IDResponse is returned after a create.
type IDResponse struct {
	ID string `json:"id"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// NotebookListResponse wraps notebook listings.
type NotebookListResponse struct {
	Notebooks []models.Notebook `json:"notebooks"`
	Total     int               `json:"total"`
}

// TrashListResponse wraps trash listings.
type TrashListResponse struct {
	Entries []models.TrashEntry `json:"entries"`
	Total   int                 `json:"total"`
}

// NoteRequest creates or updates a note.
type NoteRequest = core.NoteInput

// NotebookRequest creates or updates a notebook.
type NotebookRequest = core.NotebookInput

// TagRequest adds a tag to a note.
type TagRequest struct {
	Tag string `json:"tag"`
}

// Validate validates the request.
func (r TagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tag, validation.Required, validation.RuneLength(1, 128)),
	)
}

// PasswordRequest locks or unlocks a note.
type PasswordRequest struct {
	Password  string `json:"password"`
	Permanent bool   `json:"permanent,omitempty"`
}

// Validate validates the request.
func (r PasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

// MoveRequest files notes under a notebook topic.
type MoveRequest struct {
	Notebook string   `json:"notebook"`
	Topic    string   `json:"topic"`
	IDs      []string `json:"ids"`
}

// Validate validates the request.
func (r MoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Notebook, validation.Required),
		validation.Field(&r.Topic, validation.Required),
		validation.Field(&r.IDs, validation.Required, validation.Each(validation.Required)),
	)
}

// TopicsRequest creates topics.
type TopicsRequest struct {
	Titles []string `json:"titles"`
}

// Validate validates the request.
func (r TopicsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Titles, validation.Required),
	)
}

// IDsRequest names the items an action applies to.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

// Validate validates the request.
func (r IDsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Each(validation.Required)),
	)
}

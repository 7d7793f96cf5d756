package models

import (
	"slices"
	"time"
)

// DefaultTopic is the topic every notebook starts with.
const DefaultTopic = "General"

// Notebook is a top-level container of topics.
type Notebook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Topics      []Topic   `json:"topics"`
	Pinned      bool      `json:"pinned"`
	TotalNotes  int       `json:"totalNotes"`
	DateCreated time.Time `json:"dateCreated"`
	DateEdited  time.Time `json:"dateEdited"`
	DateDeleted time.Time `json:"dateDeleted,omitzero"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// Topic is a named bucket of note ids inside one notebook.
type Topic struct {
	Title       string    `json:"title"`
	Notes       []string  `json:"notes"`
	DateCreated time.Time `json:"dateCreated"`
}

// GetID returns the notebook id.
func (nb Notebook) GetID() string { return nb.ID }

// IsDeleted reports whether nb is a tombstone.
func (nb Notebook) IsDeleted() bool { return nb.Deleted }

// Clone returns a deep copy of nb including its topics.
func (nb Notebook) Clone() Notebook {
	c := nb
	c.Topics = make([]Topic, len(nb.Topics))
	for i, t := range nb.Topics {
		c.Topics[i] = Topic{Title: t.Title, Notes: slices.Clone(t.Notes), DateCreated: t.DateCreated}
	}
	return c
}

// WithID returns a copy of nb carrying id.
func (nb Notebook) WithID(id string) Notebook {
	nb.ID = id
	return nb
}

// Tombstone returns the deleted marker that replaces nb in its collection.
func (nb Notebook) Tombstone(at time.Time) Notebook {
	return Notebook{ID: nb.ID, Deleted: true, DateEdited: at, DateDeleted: at}
}

// TopicIndex returns the position of the topic with the given title, or -1.
func (nb Notebook) TopicIndex(title string) int {
	return slices.IndexFunc(nb.Topics, func(t Topic) bool { return t.Title == title })
}

// CountNotes recomputes the denormalized note total.
func (nb *Notebook) CountNotes() {
	total := 0
	for _, t := range nb.Topics {
		total += len(t.Notes)
	}
	nb.TotalNotes = total
}

// SortTitle returns the title used for alphabetical ordering.
func (nb Notebook) SortTitle() string { return nb.Title }

// IsPinned reports whether the notebook is pinned.
func (nb Notebook) IsPinned() bool { return nb.Pinned }

// Date returns the timestamp named by field.
func (nb Notebook) Date(field string) time.Time {
	switch field {
	case "dateCreated":
		return nb.DateCreated
	case "dateDeleted":
		return nb.DateDeleted
	default:
		return nb.DateEdited
	}
}

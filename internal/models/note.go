// Package models defines the domain types for Notebase.
package models

import (
	"encoding/json"
	"slices"
	"time"
)

// Note is a single note document.
type Note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Headline    string       `json:"headline,omitempty"`
	Content     Content      `json:"content"`
	Tags        []string     `json:"tags"`
	Notebook    *NotebookRef `json:"notebook,omitempty"`
	Pinned      bool         `json:"pinned"`
	Favorite    bool         `json:"favorite"`
	Locked      bool         `json:"locked"`
	DateCreated time.Time    `json:"dateCreated"`
	DateEdited  time.Time    `json:"dateEdited"`
	DateDeleted time.Time    `json:"dateDeleted,omitzero"`
	Deleted     bool         `json:"deleted,omitempty"`
}

// Content holds the body of a note. While the note is locked Text and Delta
// are empty and Cipher carries the sealed payload.
type Content struct {
	Text       string          `json:"text,omitempty"`
	Delta      json.RawMessage `json:"delta,omitempty"`
	Cipher     string          `json:"cipher,omitempty"`
	IV         string          `json:"iv,omitempty"`
	Salt       string          `json:"salt,omitempty"`
	Iterations int             `json:"iterations,omitempty"`
	Length     int             `json:"length"`
	Checksum   string          `json:"checksum,omitempty"`
}

// NotebookRef points a note at one topic of one notebook.
type NotebookRef struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// Same reports whether r and o point at the same notebook topic.
func (r *NotebookRef) Same(o *NotebookRef) bool {
	if r == nil || o == nil {
		return r == nil && o == nil
	}
	return r.ID == o.ID && r.Topic == o.Topic
}

// GetID returns the note id.
func (n Note) GetID() string { return n.ID }

// IsDeleted reports whether n is a tombstone.
func (n Note) IsDeleted() bool { return n.Deleted }

// Clone returns a deep copy of n.
func (n Note) Clone() Note {
	c := n
	c.Tags = slices.Clone(n.Tags)
	c.Content.Delta = slices.Clone(n.Content.Delta)
	if n.Notebook != nil {
		ref := *n.Notebook
		c.Notebook = &ref
	}
	return c
}

// WithID returns a copy of n carrying id.
func (n Note) WithID(id string) Note {
	n.ID = id
	return n
}

// Tombstone returns the deleted marker that replaces n in its collection.
func (n Note) Tombstone(at time.Time) Note {
	return Note{ID: n.ID, Deleted: true, DateEdited: at}
}

// HasTag reports whether the note carries the tag title.
func (n Note) HasTag(title string) bool {
	return slices.Contains(n.Tags, title)
}

// SortTitle returns the title used for alphabetical ordering.
func (n Note) SortTitle() string { return n.Title }

// IsPinned reports whether the note is pinned.
func (n Note) IsPinned() bool { return n.Pinned }

// Date returns the timestamp named by field.
func (n Note) Date(field string) time.Time {
	switch field {
	case "dateCreated":
		return n.DateCreated
	case "dateDeleted":
		return n.DateDeleted
	default:
		return n.DateEdited
	}
}

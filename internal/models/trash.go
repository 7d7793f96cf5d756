package models

import "time"

// Kinds of trashed items.
const (
	KindNote     = "note"
	KindNotebook = "notebook"
)

// TrashEntry is a retained copy of a deleted note or notebook.
type TrashEntry struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Note        *Note     `json:"note,omitempty"`
	Notebook    *Notebook `json:"notebook,omitempty"`
	DateDeleted time.Time `json:"dateDeleted"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// Tag is a derived view of a tag title and the number of live notes using it.
type Tag struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

// GetID returns the id of the trashed item.
func (e TrashEntry) GetID() string { return e.ID }

// IsDeleted reports whether e has been purged.
func (e TrashEntry) IsDeleted() bool { return e.Deleted }

// Clone returns a deep copy of e.
func (e TrashEntry) Clone() TrashEntry {
	c := e
	if e.Note != nil {
		n := e.Note.Clone()
		c.Note = &n
	}
	if e.Notebook != nil {
		nb := e.Notebook.Clone()
		c.Notebook = &nb
	}
	return c
}

// WithID returns a copy of e carrying id.
func (e TrashEntry) WithID(id string) TrashEntry {
	e.ID = id
	return e
}

// Tombstone returns the purged marker for e.
func (e TrashEntry) Tombstone(at time.Time) TrashEntry {
	return TrashEntry{ID: e.ID, Kind: e.Kind, Deleted: true, DateDeleted: at}
}

// Title returns the title of the trashed item.
func (e TrashEntry) Title() string {
	switch {
	case e.Note != nil:
		return e.Note.Title
	case e.Notebook != nil:
		return e.Notebook.Title
	}
	return ""
}

// SortTitle returns the title used for alphabetical ordering.
func (e TrashEntry) SortTitle() string { return e.Title() }

// IsPinned is always false; trash has no pinned items.
func (e TrashEntry) IsPinned() bool { return false }

// Date returns the timestamp named by field. Fields other than dateDeleted
// are read from the trashed item.
func (e TrashEntry) Date(field string) time.Time {
	if field == "dateDeleted" {
		return e.DateDeleted
	}
	switch {
	case e.Note != nil:
		return e.Note.Date(field)
	case e.Notebook != nil:
		return e.Notebook.Date(field)
	}
	return e.DateDeleted
}

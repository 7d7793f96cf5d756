package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/collection"
	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/models"
)

// Topics manages the topics of one notebook.
type Topics struct {
	db         *DB
	notebookID string
}

// All returns the notebook's topics in order.
func (t *Topics) All() []models.Topic {
	nb, ok := t.db.notebooks.Get(nil, t.notebookID)
	if !ok {
		return nil
	}
	return nb.Topics
}

// Has reports whether a topic titled title exists.
func (t *Topics) Has(title string) bool {
	nb, ok := t.db.notebooks.Get(nil, t.notebookID)
	return ok && nb.TopicIndex(title) >= 0
}

// Add creates the topics that do not exist yet.
func (t *Topics) Add(ctx context.Context, titles ...string) error {
	return t.db.update(ctx, func(tx *collection.Tx) error {
		nb, ok := t.db.notebooks.Get(tx, t.notebookID)
		if !ok {
			return fmt.Errorf("notebook %s: %w", t.notebookID, apperr.ErrNotFound)
		}
		for _, title := range titles {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("blank topic title: %w", apperr.ErrValidation)
			}
		}
		if !t.db.addTopics(&nb, titles...) {
			return nil
		}
		return t.db.putNotebook(tx, nb)
	})
}

// Topic returns a handle for the topic titled title.
func (t *Topics) Topic(title string) (*TopicHandle, bool) {
	if !t.Has(title) {
		return nil, false
	}
	return &TopicHandle{db: t.db, ref: models.NotebookRef{ID: t.notebookID, Topic: title}}, true
}

// Delete removes the topics and clears the notebook reference of their notes.
func (t *Topics) Delete(ctx context.Context, titles ...string) error {
	return t.db.update(ctx, func(tx *collection.Tx) error {
		nb, ok := t.db.notebooks.Get(tx, t.notebookID)
		if !ok {
			return nil
		}
		if err := t.db.deleteTopics(tx, &nb, titles...); err != nil {
			return err
		}
		return t.db.putNotebook(tx, nb)
	})
}

// TopicHandle is bound to one topic of one notebook.
type TopicHandle struct {
	db  *DB
	ref models.NotebookRef
}

// Title returns the topic title.
func (h *TopicHandle) Title() string { return h.ref.Topic }

// Ref returns the reference notes carry when filed under this topic.
func (h *TopicHandle) Ref() models.NotebookRef { return h.ref }

// IDs returns the member note ids.
func (h *TopicHandle) IDs() []string {
	topic, err := h.db.topicOf(nil, h.ref)
	if err != nil {
		return nil
	}
	return topic.Notes
}

// All returns the live member notes.
func (h *TopicHandle) All() []models.Note {
	var out []models.Note
	for _, id := range h.IDs() {
		if note, ok := h.db.notes.Get(nil, id); ok {
			out = append(out, note)
		}
	}
	return out
}

// Add files the notes under this topic, moving them out of any other topic.
func (h *TopicHandle) Add(ctx context.Context, noteIDs ...string) error {
	return h.db.update(ctx, func(tx *collection.Tx) error {
		if _, err := h.db.topicOf(tx, h.ref); err != nil {
			return err
		}
		for _, id := range noteIDs {
			if !h.db.notes.Exists(tx, id) {
				return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
			}
			if err := h.db.moveNote(tx, id, h.ref); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove takes the notes out of this topic.
func (h *TopicHandle) Remove(ctx context.Context, noteIDs ...string) error {
	return h.db.update(ctx, func(tx *collection.Tx) error {
		for _, id := range noteIDs {
			note, ok := h.db.notes.Get(tx, id)
			if !ok || !h.ref.Same(note.Notebook) {
				continue
			}
			if err := h.db.detach(tx, note); err != nil {
				return err
			}
			note.Notebook = nil
			note.DateEdited = h.db.now()
			if err := h.db.notes.Put(tx, note); err != nil {
				return err
			}
			tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
		}
		return nil
	})
}

// topicOf resolves ref to its topic, failing with ErrNotFound.
func (db *DB) topicOf(tx *collection.Tx, ref models.NotebookRef) (models.Topic, error) {
	nb, ok := db.notebooks.Get(tx, ref.ID)
	if !ok {
		return models.Topic{}, fmt.Errorf("notebook %s: %w", ref.ID, apperr.ErrNotFound)
	}
	i := nb.TopicIndex(ref.Topic)
	if i < 0 {
		return models.Topic{}, fmt.Errorf("topic %q in notebook %s: %w", ref.Topic, ref.ID, apperr.ErrNotFound)
	}
	return nb.Topics[i], nil
}

// addTopics appends absent, non-blank titles. It reports whether nb changed.
func (db *DB) addTopics(nb *models.Notebook, titles ...string) bool {
	changed := false
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" || nb.TopicIndex(title) >= 0 {
			continue
		}
		nb.Topics = append(nb.Topics, models.Topic{Title: title, Notes: []string{}, DateCreated: db.now()})
		changed = true
	}
	return changed
}

// deleteTopics drops the topics from nb and clears their notes' references.
// nb is not stored.
func (db *DB) deleteTopics(tx *collection.Tx, nb *models.Notebook, titles ...string) error {
	for _, title := range titles {
		i := nb.TopicIndex(title)
		if i < 0 {
			continue
		}
		ref := models.NotebookRef{ID: nb.ID, Topic: title}
		for _, id := range nb.Topics[i].Notes {
			note, ok := db.notes.Get(tx, id)
			if !ok || !ref.Same(note.Notebook) {
				continue
			}
			note.Notebook = nil
			if err := db.notes.Put(tx, note); err != nil {
				return err
			}
			tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
		}
		nb.Topics = slices.Delete(nb.Topics, i, i+1)
	}
	return nil
}

// detach removes the note from the topic its reference points at.
func (db *DB) detach(tx *collection.Tx, note models.Note) error {
	if note.Notebook == nil {
		return nil
	}
	nb, ok := db.notebooks.Get(tx, note.Notebook.ID)
	if !ok {
		return nil
	}
	i := nb.TopicIndex(note.Notebook.Topic)
	if i < 0 || !slices.Contains(nb.Topics[i].Notes, note.ID) {
		return nil
	}
	nb.Topics[i].Notes = slices.DeleteFunc(nb.Topics[i].Notes, func(id string) bool { return id == note.ID })
	return db.putNotebook(tx, nb)
}

// moveNote files note id under ref, keeping both sides in agreement. A note
// already filed there is left untouched.
func (db *DB) moveNote(tx *collection.Tx, id string, ref models.NotebookRef) error {
	note, ok := db.notes.Get(tx, id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	nb, ok := db.notebooks.Get(tx, ref.ID)
	if !ok {
		return fmt.Errorf("notebook %s: %w", ref.ID, apperr.ErrNotFound)
	}
	i := nb.TopicIndex(ref.Topic)
	if i < 0 {
		return fmt.Errorf("topic %q in notebook %s: %w", ref.Topic, ref.ID, apperr.ErrNotFound)
	}
	member := slices.Contains(nb.Topics[i].Notes, id)
	if ref.Same(note.Notebook) && member {
		return nil
	}

	if !ref.Same(note.Notebook) {
		if err := db.detach(tx, note); err != nil {
			return err
		}
		// detach may have rewritten this very notebook.
		nb, _ = db.notebooks.Get(tx, ref.ID)
	}
	if !member {
		nb.Topics[i].Notes = append(nb.Topics[i].Notes, id)
		if err := db.putNotebook(tx, nb); err != nil {
			return err
		}
	}

	dest := ref
	note.Notebook = &dest
	note.DateEdited = db.now()
	if err := db.notes.Put(tx, note); err != nil {
		return err
	}
	tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
	return nil
}

// putNotebook recounts and stages nb.
func (db *DB) putNotebook(tx *collection.Tx, nb models.Notebook) error {
	nb.CountNotes()
	nb.DateEdited = db.now()
	if err := db.notebooks.Put(tx, nb); err != nil {
		return err
	}
	tx.Emit(events.NotebookUpdated, events.Change{ID: nb.ID, Kind: models.KindNotebook})
	return nil
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/collection"
	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/grouping"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/seal"
)

// ContentInput is the editable body of a note.
type ContentInput struct {
	Text  string          `json:"text"`
	Delta json.RawMessage `json:"delta,omitempty"`
}

// NoteInput is a partial note. Nil fields keep the stored value; Tags are
// merged into the stored set.
type NoteInput struct {
	ID       string              `json:"id,omitempty"`
	Title    *string             `json:"title,omitempty"`
	Content  *ContentInput       `json:"content,omitempty"`
	Tags     []string            `json:"tags,omitempty"`
	Notebook *models.NotebookRef `json:"notebook,omitempty"`
	Pinned   *bool               `json:"pinned,omitempty"`
	Favorite *bool               `json:"favorite,omitempty"`
}

// lockedPayload is what gets sealed when a note is locked.
type lockedPayload struct {
	Text  string          `json:"text"`
	Delta json.RawMessage `json:"delta,omitempty"`
}

// Notes manages note documents.
type Notes struct {
	db *DB
}

// Add creates a note or merges in into the note with in.ID. It returns the
// note id, or "" when the merged note ended up empty and was removed.
func (n *Notes) Add(ctx context.Context, in NoteInput) (string, error) {
	var id string
	err := n.db.update(ctx, func(tx *collection.Tx) error {
		var err error
		id, err = n.add(tx, in)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (n *Notes) add(tx *collection.Tx, in NoteInput) (string, error) {
	db := n.db
	note, exists := db.notes.Get(tx, in.ID)
	if !exists && in.Title == nil && in.Content == nil {
		return "", fmt.Errorf("note needs a title or content: %w", apperr.ErrValidation)
	}
	if exists && note.Locked && in.Content != nil {
		return "", fmt.Errorf("note %s: %w", in.ID, apperr.ErrLocked)
	}

	now := db.now()
	if !exists {
		id := in.ID
		if id == "" {
			id = collection.NewID()
		}
		note = models.Note{ID: id, DateCreated: now, Tags: []string{}}
	}
	if in.Title != nil {
		note.Title = *in.Title
	}
	if in.Content != nil {
		note.Content.Text = in.Content.Text
		note.Content.Delta = slices.Clone(in.Content.Delta)
	}
	if in.Pinned != nil {
		note.Pinned = *in.Pinned
	}
	if in.Favorite != nil {
		note.Favorite = *in.Favorite
	}
	for _, t := range in.Tags {
		if t = normalizeTag(t); t != "" && !note.HasTag(t) {
			note.Tags = append(note.Tags, t)
		}
	}

	if note.Locked {
		note.Title = strings.TrimSpace(note.Title)
	} else if !normalizeContent(&note) {
		if exists {
			if err := n.remove(tx, note); err != nil {
				return "", err
			}
		}
		return "", nil
	}

	note.DateEdited = now
	if err := db.notes.Put(tx, note); err != nil {
		return "", err
	}
	if in.Notebook != nil && !in.Notebook.Same(note.Notebook) {
		if err := db.moveNote(tx, note.ID, *in.Notebook); err != nil {
			return "", err
		}
	}
	tx.Emit(events.NoteUpdated, events.Change{ID: note.ID, Kind: models.KindNote})
	return note.ID, nil
}

// remove detaches note from its topic and tombstones it without trashing.
func (n *Notes) remove(tx *collection.Tx, note models.Note) error {
	if err := n.db.detach(tx, note); err != nil {
		return err
	}
	if err := n.db.notes.Delete(tx, note.ID); err != nil {
		return err
	}
	tx.Emit(events.NoteDeleted, events.Change{ID: note.ID, Kind: models.KindNote})
	return nil
}

// Get returns the live note with id.
func (n *Notes) Get(id string) (models.Note, bool) {
	return n.db.notes.Get(nil, id)
}

// Delete moves the notes into the trash. Unknown ids are skipped.
func (n *Notes) Delete(ctx context.Context, ids ...string) error {
	return n.db.update(ctx, func(tx *collection.Tx) error {
		now := n.db.now()
		for _, id := range ids {
			note, ok := n.db.notes.Get(tx, id)
			if !ok {
				continue
			}
			snapshot := note.Clone()
			snapshot.DateDeleted = now
			entry := models.TrashEntry{ID: id, Kind: models.KindNote, Note: &snapshot, DateDeleted: now}
			if err := n.db.trash.Put(tx, entry); err != nil {
				return err
			}
			if err := n.remove(tx, note); err != nil {
				return err
			}
			tx.Emit(events.TrashUpdated, events.Change{ID: id, Kind: models.KindNote})
		}
		return nil
	})
}

// All returns live notes in insertion order.
func (n *Notes) All() []models.Note {
	return n.db.notes.All()
}

// Raw returns every note record, tombstones included.
func (n *Notes) Raw() []models.Note {
	return n.db.notes.Raw()
}

// Pinned returns pinned live notes.
func (n *Notes) Pinned() []models.Note {
	return n.where(func(note models.Note) bool { return note.Pinned })
}

// Favorites returns favorite live notes.
func (n *Notes) Favorites() []models.Note {
	return n.where(func(note models.Note) bool { return note.Favorite })
}

// Tagged returns the live notes carrying tag.
func (n *Notes) Tagged(tag string) []models.Note {
	tag = normalizeTag(tag)
	return n.where(func(note models.Note) bool { return note.HasTag(tag) })
}

// Filter returns live notes whose title, text or tags contain query,
// ignoring case. Locked notes match on title and tags only.
func (n *Notes) Filter(query string) []models.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return n.where(func(note models.Note) bool {
		if strings.Contains(strings.ToLower(note.Title), q) {
			return true
		}
		for _, t := range note.Tags {
			if strings.Contains(t, q) {
				return true
			}
		}
		return !note.Locked && strings.Contains(strings.ToLower(note.Content.Text), q)
	})
}

// Group arranges live notes with opts.
func (n *Notes) Group(opts grouping.Options) []grouping.Bucket[models.Note] {
	return grouping.Apply(n.db.engine(), n.All(), opts)
}

// Grouped arranges live notes with the stored options of a view kind.
func (n *Notes) Grouped(kind string) []grouping.Bucket[models.Note] {
	opts := n.db.settings.GroupOptions(kind)
	if kind == "tags" {
		opts.Override = grouping.SortDateModified
	}
	return n.Group(opts)
}

func (n *Notes) where(keep func(models.Note) bool) []models.Note {
	all := n.db.notes.All()
	out := all[:0]
	for _, note := range all {
		if keep(note) {
			out = append(out, note)
		}
	}
	return out
}

// Pin toggles the pinned flag.
func (n *Notes) Pin(ctx context.Context, id string) error {
	return n.edit(ctx, id, func(note *models.Note) (bool, error) {
		note.Pinned = !note.Pinned
		return true, nil
	})
}

// Favorite toggles the favorite flag.
func (n *Notes) Favorite(ctx context.Context, id string) error {
	return n.edit(ctx, id, func(note *models.Note) (bool, error) {
		note.Favorite = !note.Favorite
		return true, nil
	})
}

// Lock seals the note content under password. It returns false when the
// note does not exist.
func (n *Notes) Lock(ctx context.Context, id, password string) (bool, error) {
	found := false
	err := n.db.update(ctx, func(tx *collection.Tx) error {
		note, ok := n.db.notes.Get(tx, id)
		if !ok {
			return nil
		}
		found = true
		if note.Locked {
			return fmt.Errorf("note %s: %w", id, apperr.ErrLocked)
		}
		payload, err := json.Marshal(lockedPayload{Text: note.Content.Text, Delta: note.Content.Delta})
		if err != nil {
			return fmt.Errorf("note %s: encode content: %w", id, err)
		}
		sealed, err := n.db.sealer.Seal(password, payload)
		if err != nil {
			return err
		}
		note.Content = models.Content{
			Cipher:     sealed.Cipher,
			IV:         sealed.IV,
			Salt:       sealed.Salt,
			Iterations: sealed.Iterations,
			Length:     note.Content.Length,
		}
		note.Headline = ""
		note.Locked = true
		note.DateEdited = n.db.now()
		if err := n.db.notes.Put(tx, note); err != nil {
			return err
		}
		tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Unlock opens a locked note with password. Unless permanent, the stored
// note stays sealed and the returned copy is the only plaintext. A wrong
// password returns apperr.ErrAuthentication.
func (n *Notes) Unlock(ctx context.Context, id, password string, permanent bool) (models.Note, error) {
	note, ok := n.Get(id)
	if !ok {
		return models.Note{}, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	if !note.Locked {
		return note, nil
	}
	view, err := n.open(note, password)
	if err != nil {
		return models.Note{}, err
	}
	if !permanent {
		return view, nil
	}

	err = n.db.update(ctx, func(tx *collection.Tx) error {
		current, ok := n.db.notes.Get(tx, id)
		if !ok {
			return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
		}
		if !current.Locked || current.Content.Cipher != note.Content.Cipher {
			return fmt.Errorf("note %s changed while unlocking: %w", id, apperr.ErrConflict)
		}
		current.Content = view.Content
		current.Locked = false
		normalizeContent(&current)
		current.DateEdited = n.db.now()
		view = current
		if err := n.db.notes.Put(tx, current); err != nil {
			return err
		}
		tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
		return nil
	})
	if err != nil {
		return models.Note{}, err
	}
	return view, nil
}

func (n *Notes) open(note models.Note, password string) (models.Note, error) {
	plain, err := n.db.sealer.Open(password, seal.Sealed{
		Cipher:     note.Content.Cipher,
		IV:         note.Content.IV,
		Salt:       note.Content.Salt,
		Iterations: note.Content.Iterations,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAuthentication) {
			return models.Note{}, fmt.Errorf("note %s: %w", note.ID, err)
		}
		return models.Note{}, err
	}
	var payload lockedPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return models.Note{}, fmt.Errorf("note %s: decode content: %w", note.ID, err)
	}
	view := note.Clone()
	view.Content = models.Content{Text: payload.Text, Delta: payload.Delta}
	view.Headline = headline(payload.Text)
	view.Content.Length = note.Content.Length
	view.Content.Checksum = contentChecksum(view.Content)
	return view, nil
}

// Move files the notes under dest. Notes already there are left untouched.
func (n *Notes) Move(ctx context.Context, dest models.NotebookRef, ids ...string) error {
	return n.db.update(ctx, func(tx *collection.Tx) error {
		if _, err := n.db.topicOf(tx, dest); err != nil {
			return err
		}
		for _, id := range ids {
			if !n.db.notes.Exists(tx, id) {
				continue
			}
			if err := n.db.moveNote(tx, id, dest); err != nil {
				return err
			}
		}
		return nil
	})
}

// edit applies fn to the note and stores it when fn reports a change.
func (n *Notes) edit(ctx context.Context, id string, fn func(*models.Note) (bool, error)) error {
	return n.db.update(ctx, func(tx *collection.Tx) error {
		note, ok := n.db.notes.Get(tx, id)
		if !ok {
			return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
		}
		changed, err := fn(&note)
		if err != nil || !changed {
			return err
		}
		note.DateEdited = n.db.now()
		if err := n.db.notes.Put(tx, note); err != nil {
			return err
		}
		tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
		return nil
	})
}

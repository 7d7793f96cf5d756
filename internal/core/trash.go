package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/collection"
	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/grouping"
	"github.com/starford/notebase/internal/models"
)

// Trash retains deleted notes and notebooks until restored or purged.
type Trash struct {
	db *DB
}

// All returns trash entries, most recently deleted first.
func (t *Trash) All() []models.TrashEntry {
	all := t.db.trash.All()
	slices.SortStableFunc(all, func(a, b models.TrashEntry) int {
		return b.DateDeleted.Compare(a.DateDeleted)
	})
	return all
}

// Get returns the trash entry of a deleted item.
func (t *Trash) Get(id string) (models.TrashEntry, bool) {
	return t.db.trash.Get(nil, id)
}

// Group arranges trash entries; dates group by deletion time.
func (t *Trash) Group(opts grouping.Options) []grouping.Bucket[models.TrashEntry] {
	opts.Override = grouping.SortDateDeleted
	return grouping.Apply(t.db.engine(), t.db.trash.All(), opts)
}

// Restore brings entries back. A restored note returns to its topic when
// that topic still exists; a restored notebook takes back those of its
// notes that are live and not filed elsewhere. An entry whose id is live
// again fails with ErrAlreadyExists and nothing is restored.
func (t *Trash) Restore(ctx context.Context, ids ...string) error {
	return t.db.update(ctx, func(tx *collection.Tx) error {
		for _, id := range ids {
			entry, ok := t.db.trash.Get(tx, id)
			if !ok {
				return fmt.Errorf("trash %s: %w", id, apperr.ErrNotFound)
			}
			var err error
			switch {
			case entry.Note != nil:
				err = t.restoreNote(tx, *entry.Note)
			case entry.Notebook != nil:
				err = t.restoreNotebook(tx, *entry.Notebook)
			default:
				err = fmt.Errorf("trash %s: empty entry", id)
			}
			if err != nil {
				return err
			}
			t.db.trash.Purge(tx, id)
			tx.Emit(events.TrashUpdated, events.Change{ID: id, Kind: entry.Kind})
		}
		return nil
	})
}

func (t *Trash) restoreNote(tx *collection.Tx, note models.Note) error {
	db := t.db
	if db.notes.Exists(tx, note.ID) {
		return fmt.Errorf("restore note %s: %w", note.ID, apperr.ErrAlreadyExists)
	}
	note.DateDeleted = time.Time{}
	note.Deleted = false
	ref := note.Notebook
	note.Notebook = nil
	if err := db.notes.Put(tx, note); err != nil {
		return err
	}
	if ref != nil {
		if _, err := db.topicOf(tx, *ref); err == nil {
			return db.moveNote(tx, note.ID, *ref)
		}
	}
	tx.Emit(events.NoteUpdated, events.Change{ID: note.ID, Kind: models.KindNote})
	return nil
}

func (t *Trash) restoreNotebook(tx *collection.Tx, nb models.Notebook) error {
	db := t.db
	if db.notebooks.Exists(tx, nb.ID) {
		return fmt.Errorf("restore notebook %s: %w", nb.ID, apperr.ErrAlreadyExists)
	}
	nb.DateDeleted = time.Time{}
	nb.Deleted = false
	for i := range nb.Topics {
		ref := models.NotebookRef{ID: nb.ID, Topic: nb.Topics[i].Title}
		kept := nb.Topics[i].Notes[:0]
		for _, id := range nb.Topics[i].Notes {
			note, ok := db.notes.Get(tx, id)
			if !ok || (note.Notebook != nil && !ref.Same(note.Notebook)) {
				continue
			}
			kept = append(kept, id)
			if ref.Same(note.Notebook) {
				continue
			}
			r := ref
			note.Notebook = &r
			if err := db.notes.Put(tx, note); err != nil {
				return err
			}
			tx.Emit(events.NoteUpdated, events.Change{ID: id, Kind: models.KindNote})
		}
		nb.Topics[i].Notes = kept
	}
	return db.putNotebook(tx, nb)
}

// Purge permanently removes entries. Unknown ids are skipped.
func (t *Trash) Purge(ctx context.Context, ids ...string) error {
	return t.db.update(ctx, func(tx *collection.Tx) error {
		for _, id := range ids {
			entry, ok := t.db.trash.Get(tx, id)
			if !ok {
				continue
			}
			t.db.trash.Purge(tx, id)
			tx.Emit(events.TrashUpdated, events.Change{ID: id, Kind: entry.Kind})
		}
		return nil
	})
}

// Clear purges every entry.
func (t *Trash) Clear(ctx context.Context) error {
	all := t.db.trash.All()
	ids := make([]string, len(all))
	for i, e := range all {
		ids[i] = e.ID
	}
	return t.Purge(ctx, ids...)
}

// Cleanup purges entries deleted more than retention ago and returns how
// many were removed.
func (t *Trash) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := t.db.now().Add(-retention)
	var ids []string
	for _, e := range t.db.trash.All() {
		if e.DateDeleted.Before(cutoff) {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := t.Purge(ctx, ids...); err != nil {
		return 0, err
	}
	t.db.logger.Info("trash: expired entries purged", slog.Int("count", len(ids)))
	return len(ids), nil
}

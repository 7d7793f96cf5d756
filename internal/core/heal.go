package core

import (
	"context"
	"log/slog"
	"slices"

	"github.com/starford/notebase/internal/collection"
	"github.com/starford/notebase/internal/models"
)

// heal reconciles notes and topics after load. Note references to a missing
// notebook or topic are cleared, and topic entries for notes that are gone
// or filed elsewhere are dropped.
func (db *DB) heal(ctx context.Context) error {
	var notes, notebooks int
	err := db.update(ctx, func(tx *collection.Tx) error {
		for _, note := range db.notes.All() {
			if note.Notebook == nil {
				continue
			}
			topic, err := db.topicOf(tx, *note.Notebook)
			if err == nil && slices.Contains(topic.Notes, note.ID) {
				continue
			}
			note.Notebook = nil
			if err := db.notes.Put(tx, note); err != nil {
				return err
			}
			notes++
		}

		for _, nb := range db.notebooks.All() {
			changed := false
			for i, t := range nb.Topics {
				ref := models.NotebookRef{ID: nb.ID, Topic: t.Title}
				kept := slices.DeleteFunc(slices.Clone(t.Notes), func(id string) bool {
					note, ok := db.notes.Get(tx, id)
					return !ok || !ref.Same(note.Notebook)
				})
				if len(kept) != len(t.Notes) {
					nb.Topics[i].Notes = kept
					changed = true
				}
			}
			if !changed {
				continue
			}
			nb.CountNotes()
			if err := db.notebooks.Put(tx, nb); err != nil {
				return err
			}
			notebooks++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if notes+notebooks > 0 {
		db.logger.Warn("core: repaired dangling references",
			slog.Int("notes", notes),
			slog.Int("notebooks", notebooks))
	}
	return nil
}

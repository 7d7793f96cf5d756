package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/collection"
	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/grouping"
	"github.com/starford/notebase/internal/models"
)

// NotebookInput is a partial notebook. Nil fields keep the stored value;
// Topics are merged into the stored topics by title.
type NotebookInput struct {
	ID          string   `json:"id,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Pinned      *bool    `json:"pinned,omitempty"`
}

// Validate checks the fields a new notebook needs.
func (in NotebookInput) Validate() error {
	title := ""
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	return validation.Errors{
		"title": validation.Validate(title, validation.Required, validation.RuneLength(1, 256)),
	}.Filter()
}

// Notebooks manages notebook documents.
type Notebooks struct {
	db *DB
	// creating serializes the count, status check and commit of new
	// notebooks. It is separate from the store lock since status check
	// handlers may read the database.
	creating sync.Mutex
}

// Add creates a notebook or merges in into the notebook with in.ID. When the
// live notebook count has reached the configured quota, a new notebook is
// only created if the status check on the bus approves; otherwise Add
// returns "" and no error.
func (n *Notebooks) Add(ctx context.Context, in NotebookInput) (string, error) {
	db := n.db
	if db.notebooks.Exists(nil, in.ID) {
		return n.put(ctx, in, false)
	}
	if err := in.Validate(); err != nil {
		return "", fmt.Errorf("notebook: %w: %w", apperr.ErrValidation, err)
	}

	n.creating.Lock()
	defer n.creating.Unlock()
	allowed, err := n.checkQuota(ctx)
	if err != nil {
		return "", err
	}
	if !allowed {
		db.logger.Info("notebook creation denied by status check",
			slog.Int("notebooks", db.notebooks.Count()))
		return "", nil
	}
	return n.put(ctx, in, true)
}

// put merges in into its notebook. A missing notebook is created only when
// create is set.
func (n *Notebooks) put(ctx context.Context, in NotebookInput, create bool) (string, error) {
	db := n.db
	var id string
	err := db.update(ctx, func(tx *collection.Tx) error {
		nb, exists := db.notebooks.Get(tx, in.ID)
		if !exists {
			if !create {
				return fmt.Errorf("notebook %s: %w", in.ID, apperr.ErrNotFound)
			}
			id := in.ID
			if id == "" {
				id = collection.NewID()
			}
			nb = models.Notebook{ID: id, DateCreated: db.now(), Topics: []models.Topic{}}
			db.addTopics(&nb, models.DefaultTopic)
		}
		if in.Title != nil {
			if title := strings.TrimSpace(*in.Title); title != "" {
				nb.Title = title
			}
		}
		if in.Description != nil {
			nb.Description = *in.Description
		}
		if in.Pinned != nil {
			nb.Pinned = *in.Pinned
		}
		db.addTopics(&nb, in.Topics...)
		id = nb.ID
		return db.putNotebook(tx, nb)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (n *Notebooks) checkQuota(ctx context.Context) (bool, error) {
	db := n.db
	count := db.notebooks.Count()
	if db.notebookQuota <= 0 || count < db.notebookQuota || db.publisher == nil {
		return true, nil
	}
	allowed, err := db.publisher.Publish(ctx, events.UserCheckStatus,
		events.StatusCheck{Kind: events.CheckNotebookAdd, Count: count})
	if err != nil {
		return false, fmt.Errorf("notebook: status check: %w", err)
	}
	return allowed, nil
}

// All returns live notebooks, pinned first, otherwise in insertion order.
func (n *Notebooks) All() []models.Notebook {
	all := n.db.notebooks.All()
	slices.SortStableFunc(all, func(a, b models.Notebook) int {
		switch {
		case a.Pinned == b.Pinned:
			return 0
		case a.Pinned:
			return -1
		default:
			return 1
		}
	})
	return all
}

// Raw returns every notebook record, tombstones included.
func (n *Notebooks) Raw() []models.Notebook {
	return n.db.notebooks.Raw()
}

// Pinned returns pinned live notebooks.
func (n *Notebooks) Pinned() []models.Notebook {
	var out []models.Notebook
	for _, nb := range n.All() {
		if nb.Pinned {
			out = append(out, nb)
		}
	}
	return out
}

// Deleted returns the tombstones of deleted notebooks.
func (n *Notebooks) Deleted() []models.Notebook {
	var out []models.Notebook
	for _, nb := range n.db.notebooks.Raw() {
		if nb.Deleted {
			out = append(out, nb)
		}
	}
	return out
}

// Group arranges live notebooks with opts.
func (n *Notebooks) Group(opts grouping.Options) []grouping.Bucket[models.Notebook] {
	return grouping.Apply(n.db.engine(), n.All(), opts)
}

// Notebook returns a handle for the live notebook with id.
func (n *Notebooks) Notebook(id string) (*NotebookHandle, bool) {
	if !n.db.notebooks.Exists(nil, id) {
		return nil, false
	}
	return &NotebookHandle{db: n.db, id: id}, true
}

// NotebookOf returns a handle for an already resolved notebook record.
func (n *Notebooks) NotebookOf(nb models.Notebook) (*NotebookHandle, bool) {
	if nb.Deleted {
		return nil, false
	}
	return n.Notebook(nb.ID)
}

// Topics is a shorthand for the topics of the notebook with id.
func (n *Notebooks) Topics(id string) (*Topics, bool) {
	h, ok := n.Notebook(id)
	if !ok {
		return nil, false
	}
	return h.Topics(), true
}

// Pin toggles the pinned flag of a notebook.
func (n *Notebooks) Pin(ctx context.Context, id string) error {
	return n.db.update(ctx, func(tx *collection.Tx) error {
		nb, ok := n.db.notebooks.Get(tx, id)
		if !ok {
			return fmt.Errorf("notebook %s: %w", id, apperr.ErrNotFound)
		}
		nb.Pinned = !nb.Pinned
		return n.db.putNotebook(tx, nb)
	})
}

// Delete moves the notebooks into the trash. Their topics are deleted and
// every contained note loses its notebook reference; the trash keeps a copy
// of each notebook as it was. Unknown ids are skipped.
func (n *Notebooks) Delete(ctx context.Context, ids ...string) error {
	db := n.db
	var deleted []string
	err := db.update(ctx, func(tx *collection.Tx) error {
		now := db.now()
		for _, id := range ids {
			nb, ok := db.notebooks.Get(tx, id)
			if !ok {
				continue
			}
			snapshot := nb.Clone()
			snapshot.DateDeleted = now

			titles := make([]string, len(nb.Topics))
			for i, t := range nb.Topics {
				titles[i] = t.Title
			}
			if err := db.deleteTopics(tx, &nb, titles...); err != nil {
				return err
			}
			if err := db.notebooks.Delete(tx, id); err != nil {
				return err
			}
			entry := models.TrashEntry{ID: id, Kind: models.KindNotebook, Notebook: &snapshot, DateDeleted: now}
			if err := db.trash.Put(tx, entry); err != nil {
				return err
			}
			tx.Emit(events.NotebookDeleted, events.Change{ID: id, Kind: models.KindNotebook})
			tx.Emit(events.TrashUpdated, events.Change{ID: id, Kind: models.KindNotebook})
			deleted = append(deleted, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range deleted {
		if err := db.settings.Unpin(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("notebook %s: unpin: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// NotebookHandle is bound to one notebook.
type NotebookHandle struct {
	db *DB
	id string
}

// ID returns the notebook id.
func (h *NotebookHandle) ID() string { return h.id }

// Data returns the current notebook record.
func (h *NotebookHandle) Data() (models.Notebook, bool) {
	return h.db.notebooks.Get(nil, h.id)
}

// Topics returns the topic manager of the notebook.
func (h *NotebookHandle) Topics() *Topics {
	return &Topics{db: h.db, notebookID: h.id}
}

// Notes returns the live notes filed in any topic of the notebook.
func (h *NotebookHandle) Notes() []models.Note {
	nb, ok := h.Data()
	if !ok {
		return nil
	}
	var out []models.Note
	for _, t := range nb.Topics {
		for _, id := range t.Notes {
			if note, ok := h.db.notes.Get(nil, id); ok {
				out = append(out, note)
			}
		}
	}
	return out
}

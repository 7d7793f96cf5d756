// Package core implements the notebase collections: notes, notebooks with
// their topics, tags, and trash, all committed through one unit-of-work
// store so cross-collection invariants hold after every call.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/notebase/internal/collection"
	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/grouping"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/seal"
	"github.com/starford/notebase/internal/storage"
)

// Collection names in the storage backend.
const (
	NotesCollection     = "notes"
	NotebooksCollection = "notebooks"
	TrashCollection     = "trash"
)

// Settings is the preferences collaborator the collections consult.
type Settings interface {
	GroupOptions(kind string) grouping.Options
	SetGroupOptions(ctx context.Context, kind string, opts grouping.Options) error
	Unpin(ctx context.Context, id string) error
}

// Option configures a DB.
type Option func(*DB)

// WithPublisher sets the event bus used for change notifications and the
// notebook status check.
func WithPublisher(p events.Publisher) Option {
	return func(db *DB) { db.publisher = p }
}

// WithSettings sets the preferences collaborator.
func WithSettings(s Settings) Option {
	return func(db *DB) { db.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// WithNotebookQuota sets how many live notebooks may exist before adding
// another requires an approved status check. Zero disables the check.
func WithNotebookQuota(n int) Option {
	return func(db *DB) { db.notebookQuota = n }
}

// WithLockIterations sets the key-derivation work factor for locked notes.
func WithLockIterations(n int) Option {
	return func(db *DB) { db.sealer = seal.New(n) }
}

// WithLocation sets the time zone used for date groups.
func WithLocation(loc *time.Location) Option {
	return func(db *DB) { db.location = loc }
}

// DB owns the note, notebook and trash collections.
type DB struct {
	store         *collection.Store
	publisher     events.Publisher
	settings      Settings
	sealer        *seal.Sealer
	logger        *slog.Logger
	now           func() time.Time
	location      *time.Location
	notebookQuota int

	notes     *collection.Collection[models.Note]
	notebooks *collection.Collection[models.Notebook]
	trash     *collection.Collection[models.TrashEntry]

	Notes     *Notes
	Notebooks *Notebooks
	Trash     *Trash
}

// Open loads every collection from backend and repairs references left
// dangling by an interrupted write.
func Open(ctx context.Context, backend storage.Backend, opts ...Option) (*DB, error) {
	db := &DB{
		logger: slog.Default(),
		now:    time.Now,
		sealer: seal.New(seal.DefaultIterations),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.settings == nil {
		db.settings = NewMemorySettings()
	}

	storeOpts := []collection.StoreOption{
		collection.WithLogger(db.logger),
		collection.WithClock(db.now),
	}
	if db.publisher != nil {
		storeOpts = append(storeOpts, collection.WithPublisher(db.publisher))
	}
	db.store = collection.NewStore(backend, storeOpts...)

	db.notes = collection.New[models.Note](db.store, NotesCollection)
	db.notebooks = collection.New[models.Notebook](db.store, NotebooksCollection)
	db.trash = collection.New[models.TrashEntry](db.store, TrashCollection)

	for _, c := range []interface{ Init(context.Context) error }{db.notes, db.notebooks, db.trash} {
		if err := c.Init(ctx); err != nil {
			return nil, fmt.Errorf("core: %w", err)
		}
	}

	db.Notes = &Notes{db: db}
	db.Notebooks = &Notebooks{db: db}
	db.Trash = &Trash{db: db}

	if err := db.heal(ctx); err != nil {
		return nil, fmt.Errorf("core: repair references: %w", err)
	}
	return db, nil
}

// Close closes the storage backend.
func (db *DB) Close() error {
	return db.store.Backend().Close()
}

// Settings returns the preferences collaborator.
func (db *DB) Settings() Settings { return db.settings }

func (db *DB) engine() grouping.Engine {
	return grouping.Engine{Now: db.now, Location: db.location}
}

func (db *DB) update(ctx context.Context, fn func(tx *collection.Tx) error) error {
	return db.store.Update(ctx, fn)
}

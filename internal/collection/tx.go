package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/storage"
)

type key struct {
	collection string
	id         string
}

// purged marks an overlay entry removed by Collection.Purge.
type purged struct{}

type pendingEvent struct {
	name    string
	payload any
}

// Tx is a unit of work. Staged writes are visible to reads through the same
// Tx and reach the backend and the cached snapshots together on commit.
type Tx struct {
	ctx     context.Context
	ops     []storage.Op
	overlay map[key]any
	commits []func()
	events  []pendingEvent
	emitted map[events.Change]map[string]bool
}

// Context returns the context the unit of work runs under.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Emit queues an event published after a successful commit. Repeated
// change events for the same item are queued once.
func (tx *Tx) Emit(name string, payload any) {
	if c, ok := payload.(events.Change); ok {
		if tx.emitted[c][name] {
			return
		}
		if tx.emitted == nil {
			tx.emitted = make(map[events.Change]map[string]bool)
		}
		if tx.emitted[c] == nil {
			tx.emitted[c] = make(map[string]bool)
		}
		tx.emitted[c][name] = true
	}
	tx.events = append(tx.events, pendingEvent{name: name, payload: payload})
}

// Empty reports whether nothing was staged.
func (tx *Tx) Empty() bool { return len(tx.ops) == 0 }

func (tx *Tx) stage(op storage.Op, value any, commit func()) {
	tx.ops = append(tx.ops, op)
	tx.overlay[key{op.Collection, op.ID}] = value
	tx.commits = append(tx.commits, commit)
}

// Store serializes units of work over one backend.
type Store struct {
	backend   storage.Backend
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPublisher sets where committed events are published.
func WithPublisher(p events.Publisher) StoreOption {
	return func(s *Store) { s.publisher = p }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore wraps backend.
func NewStore(backend storage.Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the wrapped backend.
func (s *Store) Backend() storage.Backend { return s.backend }

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// Update runs fn as one unit of work. Units of work never interleave. If fn
// fails, or the backend rejects the batch, nothing is applied. Queued events
// are published after the write lock is released.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{ctx: ctx, overlay: make(map[key]any)}
	if err := s.commit(ctx, tx, fn); err != nil {
		return err
	}
	s.publish(ctx, tx.events)
	return nil
}

// commit runs fn and applies its staged writes under the write lock.
func (s *Store) commit(ctx context.Context, tx *Tx, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.ops) == 0 {
		return nil
	}
	if err := s.backend.Apply(ctx, tx.ops); err != nil {
		return fmt.Errorf("collection: commit %d ops: %w", len(tx.ops), err)
	}
	for _, apply := range tx.commits {
		apply()
	}
	return nil
}

func (s *Store) publish(ctx context.Context, pending []pendingEvent) {
	if s.publisher == nil {
		return
	}
	for _, e := range pending {
		if _, err := s.publisher.Publish(ctx, e.name, e.payload); err != nil {
			s.logger.Warn("collection: event listener failed",
				slog.String("event", e.name),
				slog.String("error", err.Error()))
		}
	}
}

// Package collection implements generic CRUD over one named partition of a
// storage.Backend, with an in-memory snapshot and a unit of work for
// multi-record mutations.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notebase/internal/storage"
)

// Item is the contract stored types satisfy.
type Item[T any] interface {
	GetID() string
	IsDeleted() bool
	Clone() T
	WithID(id string) T
	Tombstone(at time.Time) T
}

// NewID returns a fresh item id.
func NewID() string {
	return uuid.NewString()
}

// Collection is the cached view of one partition. Items returned by its
// methods are deep copies.
type Collection[T Item[T]] struct {
	name  string
	store *Store

	mu    sync.RWMutex
	order []string
	items map[string]T
}

// New binds a collection named name to store.
func New[T Item[T]](store *Store, name string) *Collection[T] {
	return &Collection[T]{
		name:  name,
		store: store,
		items: make(map[string]T),
	}
}

// Name returns the partition name.
func (c *Collection[T]) Name() string { return c.name }

// Init loads the partition from the backend, replacing the cache.
func (c *Collection[T]) Init(ctx context.Context) error {
	recs, err := c.store.backend.List(ctx, c.name)
	if err != nil {
		return fmt.Errorf("collection %s: load: %w", c.name, err)
	}
	items := make(map[string]T, len(recs))
	order := make([]string, 0, len(recs))
	for _, r := range recs {
		var item T
		if err := json.Unmarshal(r.Data, &item); err != nil {
			return fmt.Errorf("collection %s: decode %s: %w", c.name, r.ID, err)
		}
		items[r.ID] = item
		order = append(order, r.ID)
	}

	c.mu.Lock()
	c.items = items
	c.order = order
	c.mu.Unlock()
	return nil
}

// Add upserts item in its own unit of work and returns its id, generating
// one when the item has none. A stored item with the same id is replaced
// whole; field merging belongs to the typed collections built on Put.
func (c *Collection[T]) Add(ctx context.Context, item T) (string, error) {
	if item.GetID() == "" {
		item = item.WithID(NewID())
	}
	err := c.store.Update(ctx, func(tx *Tx) error {
		return c.Put(tx, item)
	})
	if err != nil {
		return "", err
	}
	return item.GetID(), nil
}

// Remove tombstones id in its own unit of work. Unknown ids are ignored.
// It skips the trash; the typed collections delete through Delete.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	return c.store.Update(ctx, func(tx *Tx) error {
		return c.Delete(tx, id)
	})
}

// Get returns the live item with id. tx may be nil to read the committed
// snapshot only.
func (c *Collection[T]) Get(tx *Tx, id string) (T, bool) {
	item, ok := c.lookup(tx, id)
	if !ok || item.IsDeleted() {
		var zero T
		return zero, false
	}
	return item.Clone(), true
}

// Exists reports whether a live item with id exists.
func (c *Collection[T]) Exists(tx *Tx, id string) bool {
	_, ok := c.Get(tx, id)
	return ok
}

// Raw returns every cached item, tombstones included, in insertion order.
func (c *Collection[T]) Raw() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].Clone())
	}
	return out
}

// All returns live items in insertion order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		if item := c.items[id]; !item.IsDeleted() {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Count returns the number of live items.
func (c *Collection[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, item := range c.items {
		if !item.IsDeleted() {
			n++
		}
	}
	return n
}

// Put stages an upsert of item in tx.
func (c *Collection[T]) Put(tx *Tx, item T) error {
	id := item.GetID()
	if id == "" {
		return fmt.Errorf("collection %s: put without id", c.name)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("collection %s: encode %s: %w", c.name, id, err)
	}
	staged := item.Clone()
	tx.stage(storage.Put(c.name, id, data), staged, func() { c.set(staged) })
	return nil
}

// Delete stages a tombstone for id in tx. Unknown or already deleted ids
// are ignored.
func (c *Collection[T]) Delete(tx *Tx, id string) error {
	item, ok := c.Get(tx, id)
	if !ok {
		return nil
	}
	return c.Put(tx, item.Tombstone(c.store.now()))
}

// Purge stages the physical removal of id, tombstone included.
func (c *Collection[T]) Purge(tx *Tx, id string) {
	if _, ok := c.lookup(tx, id); !ok {
		return
	}
	tx.stage(storage.Delete(c.name, id), purged{}, func() { c.unset(id) })
}

// lookup returns the staged or cached item, tombstones included.
func (c *Collection[T]) lookup(tx *Tx, id string) (T, bool) {
	var zero T
	if tx != nil {
		if v, ok := tx.overlay[key{c.name, id}]; ok {
			item, isItem := v.(T)
			return item, isItem
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return zero, false
	}
	return item, true
}

func (c *Collection[T]) set(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := item.GetID()
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

func (c *Collection[T]) unset(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return
	}
	delete(c.items, id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })
}

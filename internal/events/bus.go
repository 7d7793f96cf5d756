// Package events provides the publish/subscribe bus collections use to
// announce domain events and to ask external collaborators for approval.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event names.
const (
	UserCheckStatus       = "user:checkStatus"
	UserSessionExpired    = "user:sessionExpired"
	UserLoggedOut         = "user:loggedOut"
	DatabaseSyncRequested = "db:syncRequested"
	AppRefreshRequested   = "app:refreshRequested"

	NoteUpdated      = "note:updated"
	NoteDeleted      = "note:deleted"
	NotebookUpdated  = "notebook:updated"
	NotebookDeleted  = "notebook:deleted"
	TrashUpdated     = "trash:updated"
	SettingsReloaded = "settings:reloaded"
)

// Status check kinds carried by UserCheckStatus.
const (
	CheckNotebookAdd = "notebookAdd"
)

// StatusCheck is the payload of UserCheckStatus.
type StatusCheck struct {
	Kind  string
	Count int
}

// Change is the payload of the note/notebook/trash change events.
type Change struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Handler reacts to an event. Returning false vetoes the publish.
type Handler func(ctx context.Context, payload any) (bool, error)

// Publisher is the subset of Bus producers depend on.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any) (bool, error)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to handlers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	logger *slog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus returns an empty bus. A nil logger falls back to slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subs: make(map[string][]subscription), logger: logger}
}

// Subscribe registers handler for name and returns a function removing it.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[name]
		for i, s := range list {
			if s.id == id {
				b.subs[name] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Remove drops every handler of the given events.
func (b *Bus) Remove(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		delete(b.subs, name)
	}
}

// Publish runs the handlers of name. The result is false when any handler
// vetoed; with no handlers it is true. Every handler runs even after a veto;
// the first handler error is returned.
func (b *Bus) Publish(ctx context.Context, name string, payload any) (bool, error) {
	b.mu.RLock()
	list := append([]subscription(nil), b.subs[name]...)
	b.mu.RUnlock()

	allowed := true
	var firstErr error
	for _, s := range list {
		ok, err := s.handler(ctx, payload)
		if err != nil {
			b.logger.Warn("events: handler failed",
				slog.String("event", name),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = fmt.Errorf("events: %s: %w", name, err)
			}
			allowed = false
			continue
		}
		if !ok {
			allowed = false
		}
	}
	return allowed, firstErr
}

// Notify is a Handler adapter for listeners that never veto.
func Notify(fn func(ctx context.Context, payload any)) Handler {
	return func(ctx context.Context, payload any) (bool, error) {
		fn(ctx, payload)
		return true, nil
	}
}

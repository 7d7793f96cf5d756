package core

import (
	"context"
	"slices"
	"sync"

	"github.com/starford/notebase/internal/grouping"
)

// MemorySettings is a Settings kept in process memory.
type MemorySettings struct {
	mu     sync.RWMutex
	groups map[string]grouping.Options
	pins   []string
}

// NewMemorySettings returns empty settings.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{
		groups: make(map[string]grouping.Options),
	}
}

// GroupOptions returns the options of a view kind.
func (s *MemorySettings) GroupOptions(kind string) grouping.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups[kind].Normalize()
}

// SetGroupOptions stores normalized options for a view kind.
func (s *MemorySettings) SetGroupOptions(_ context.Context, kind string, opts grouping.Options) error {
	opts = opts.Normalize()
	opts.Override = ""
	s.mu.Lock()
	s.groups[kind] = opts
	s.mu.Unlock()
	return nil
}

// Pin adds id to the shortcut pins.
func (s *MemorySettings) Pin(_ context.Context, id string) error {
	s.mu.Lock()
	if !slices.Contains(s.pins, id) {
		s.pins = append(s.pins, id)
	}
	s.mu.Unlock()
	return nil
}

// Unpin removes id from the shortcut pins.
func (s *MemorySettings) Unpin(_ context.Context, id string) error {
	s.mu.Lock()
	s.pins = slices.DeleteFunc(s.pins, func(p string) bool { return p == id })
	s.mu.Unlock()
	return nil
}

// Pins returns the pinned ids in pin order.
func (s *MemorySettings) Pins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pins)
}

// Pinned reports whether id is pinned.
func (s *MemorySettings) Pinned(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.pins, id)
}

package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/starford/notebase/internal/apperr"
)

// ApplyHook is consulted before Memory applies a batch. A non-nil error
// aborts the batch without applying anything.
type ApplyHook func(ops []Op) error

// Memory is an in-process Backend, used by tests and ephemeral databases.
type Memory struct {
	mu    sync.RWMutex
	parts map[string]*partition
	hook  ApplyHook
}

type partition struct {
	order []string
	data  map[string][]byte
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{parts: make(map[string]*partition)}
}

// SetApplyHook installs (or clears, with nil) the failure hook.
func (m *Memory) SetApplyHook(h ApplyHook) {
	m.mu.Lock()
	m.hook = h
	m.mu.Unlock()
}

// Get returns a copy of the stored bytes.
func (m *Memory) Get(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parts[collection]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	data, ok := p.data[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return slices.Clone(data), nil
}

// List returns copies of every record of collection in insertion order.
func (m *Memory) List(_ context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parts[collection]
	if !ok {
		return nil, nil
	}
	out := make([]Record, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, Record{ID: id, Data: slices.Clone(p.data[id])})
	}
	return out, nil
}

// Apply applies ops under one lock, after the hook (if any) agrees.
func (m *Memory) Apply(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hook != nil {
		if err := m.hook(ops); err != nil {
			return err
		}
	}
	for _, op := range ops {
		p, ok := m.parts[op.Collection]
		if !ok {
			p = &partition{data: make(map[string][]byte)}
			m.parts[op.Collection] = p
		}
		switch op.Kind {
		case OpPut:
			if _, exists := p.data[op.ID]; !exists {
				p.order = append(p.order, op.ID)
			}
			p.data[op.ID] = slices.Clone(op.Data)
		case OpDelete:
			if _, exists := p.data[op.ID]; exists {
				delete(p.data, op.ID)
				p.order = slices.DeleteFunc(p.order, func(id string) bool { return id == op.ID })
			}
		}
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Package storage defines the key-value persistence the collections read and
// write through, with SQLite and in-memory implementations.
package storage

import "context"

// OpKind is the kind of a staged mutation.
type OpKind int

const (
	// OpPut inserts or replaces a record.
	OpPut OpKind = iota
	// OpDelete removes a record physically.
	OpDelete
)

// Op is one mutation applied by Backend.Apply.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       []byte
}

// Record is a stored item of one collection.
type Record struct {
	ID   string
	Data []byte
}

// Backend is the abstract item store keyed by collection and id.
type Backend interface {
	// Get returns the raw item, or apperr.ErrNotFound. Collections read
	// through their List-loaded cache; Get serves single-item lookups.
	Get(ctx context.Context, collection, id string) ([]byte, error)
	// List returns every record of a collection in insertion order.
	List(ctx context.Context, collection string) ([]Record, error)
	// Apply applies all ops atomically: either every op is visible or none.
	Apply(ctx context.Context, ops []Op) error
	// Close releases the backend.
	Close() error
}

// Put is a shorthand for a single-record OpPut.
func Put(collection, id string, data []byte) Op {
	return Op{Kind: OpPut, Collection: collection, ID: id, Data: data}
}

// Delete is a shorthand for a single-record OpDelete.
func Delete(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

// Package testutil provides shared test helpers for setting up backends and
// databases.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/storage"
)

// SQLite creates a temporary SQLite backend that is automatically cleaned up.
func SQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notebase-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	b, err := storage.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// DB opens a core.DB on a fresh in-memory backend. Lock key derivation is
// cheapened so tests stay fast.
func DB(t *testing.T, opts ...core.Option) (*core.DB, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	opts = append([]core.Option{core.WithLockIterations(1000)}, opts...)
	db, err := core.Open(context.Background(), mem, opts...)
	if err != nil {
		t.Fatalf("core.Open: %v", err)
	}
	return db, mem
}

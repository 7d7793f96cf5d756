package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/notebase/internal/apperr"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "notebase-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := OpenSQLite(f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// backends runs fn against every Backend implementation.
func backends(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, testSQLite(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

func TestSchemaCreation(t *testing.T) {
	db := testSQLite(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("items table missing: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		if err := b.Apply(ctx, []Op{Put("notes", "a", []byte(`{"id":"a"}`))}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		got, err := b.Get(ctx, "notes", "a")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != `{"id":"a"}` {
			t.Errorf("data = %q", got)
		}
	})
}

func TestGetMissing(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		_, err := b.Get(context.Background(), "notes", "nope")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestListKeepsInsertionOrderAcrossUpserts(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		ops := []Op{
			Put("notes", "c", []byte("1")),
			Put("notes", "a", []byte("2")),
			Put("notes", "b", []byte("3")),
			Put("notebooks", "x", []byte("4")),
		}
		if err := b.Apply(ctx, ops); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if err := b.Apply(ctx, []Op{Put("notes", "c", []byte("updated"))}); err != nil {
			t.Fatalf("Apply upsert: %v", err)
		}

		recs, err := b.List(ctx, "notes")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		want := []string{"c", "a", "b"}
		if len(recs) != len(want) {
			t.Fatalf("got %d records, want %d", len(recs), len(want))
		}
		for i, r := range recs {
			if r.ID != want[i] {
				t.Errorf("recs[%d] = %s, want %s", i, r.ID, want[i])
			}
		}
		if string(recs[0].Data) != "updated" {
			t.Errorf("upsert lost: %q", recs[0].Data)
		}
	})
}

func TestDeleteOp(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		_ = b.Apply(ctx, []Op{Put("trash", "t1", []byte("x"))})
		if err := b.Apply(ctx, []Op{Delete("trash", "t1")}); err != nil {
			t.Fatalf("Apply delete: %v", err)
		}
		recs, _ := b.List(ctx, "trash")
		if len(recs) != 0 {
			t.Errorf("expected empty collection, got %d", len(recs))
		}
	})
}

func TestMemoryHookAbortsWholeBatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("disk full")
	m.SetApplyHook(func(ops []Op) error {
		if len(ops) > 1 {
			return boom
		}
		return nil
	})

	err := m.Apply(ctx, []Op{Put("notes", "a", []byte("1")), Put("notebooks", "b", []byte("2"))})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, err := m.Get(ctx, "notes", "a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("partial batch was applied")
	}
}

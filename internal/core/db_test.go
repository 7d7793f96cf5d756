package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/storage"
	"github.com/starford/notebase/internal/testutil"
)

func TestDeleteIsAtomic(t *testing.T) {
	db, mem := testutil.DB(t)
	ctx := context.Background()
	id, _ := db.Notes.Add(ctx, core.NoteInput{Title: ptr("keep me")})
	nb := addNotebook(t, db, "Hello")
	_ = topic(t, db, nb, models.DefaultTopic).Add(ctx, id)

	mem.SetApplyHook(func([]storage.Op) error { return errors.New("disk full") })
	if err := db.Notes.Delete(ctx, id); err == nil {
		t.Fatal("Delete succeeded on a failing backend")
	}
	if _, ok := db.Notes.Get(id); !ok {
		t.Error("note vanished from cache")
	}
	if len(db.Trash.All()) != 0 {
		t.Error("trash entry written")
	}
	if ids := topic(t, db, nb, models.DefaultTopic).IDs(); len(ids) != 1 {
		t.Errorf("topic ids = %v", ids)
	}

	mem.SetApplyHook(nil)
	reopened, err := core.Open(ctx, mem, core.WithLockIterations(1000))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reopened.Notes.Get(id); !ok {
		t.Error("note missing from backend")
	}
}

func TestReopenFromSQLite(t *testing.T) {
	backend := testutil.SQLite(t)
	ctx := context.Background()
	db, err := core.Open(ctx, backend, core.WithLockIterations(1000))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := db.Notes.Add(ctx, testNote())
	nb := addNotebook(t, db, "Hello")
	_ = topic(t, db, nb, models.DefaultTopic).Add(ctx, id)

	reopened, err := core.Open(ctx, backend, core.WithLockIterations(1000))
	if err != nil {
		t.Fatal(err)
	}
	note := mustGet(t, reopened, id)
	if note.Title != "I am a" || note.Notebook == nil || note.Notebook.ID != nb {
		t.Errorf("reloaded note = %+v", note)
	}
}

func TestOpenRepairsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	orphan := models.Note{ID: "n1", Title: "orphan", Tags: []string{}, Notebook: &models.NotebookRef{ID: "gone", Topic: "General"}}
	filed := models.Note{ID: "n2", Title: "filed", Tags: []string{}}
	nb := models.Notebook{ID: "nb", Title: "nb", Topics: []models.Topic{
		{Title: "General", Notes: []string{"n2", "ghost"}},
	}}
	var ops []storage.Op
	for _, v := range []struct {
		coll, id string
		val  any
	}{
		{core.NotesCollection, orphan.ID, orphan},
		{core.NotesCollection, filed.ID, filed},
		{core.NotebooksCollection, nb.ID, nb},
	} {
		data, err := json.Marshal(v.val)
		if err != nil {
			t.Fatal(err)
		}
		ops = append(ops, storage.Put(v.coll, v.id, data))
	}
	if err := mem.Apply(ctx, ops); err != nil {
		t.Fatal(err)
	}

	db, err := core.Open(ctx, mem)
	if err != nil {
		t.Fatal(err)
	}
	if ref := mustGet(t, db, "n1").Notebook; ref != nil {
		t.Errorf("orphan ref kept: %+v", ref)
	}
	if ids := topic(t, db, "nb", "General").IDs(); len(ids) != 0 {
		t.Errorf("topic ids = %v; want misfiled and missing notes dropped", ids)
	}
}

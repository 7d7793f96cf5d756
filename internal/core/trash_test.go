package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/grouping"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/testutil"
)

func TestRestoreNote(t *testing.T) {
	db, id := noteTest(t, testNote())
	ctx := context.Background()
	nb := addNotebook(t, db, "Hello", "Home")
	if err := topic(t, db, nb, "Home").Add(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := db.Notes.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := db.Trash.Restore(ctx, id); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	note := mustGet(t, db, id)
	if note.Content.Text != testText || !note.DateDeleted.IsZero() {
		t.Errorf("restored note = %+v", note)
	}
	if note.Notebook == nil || note.Notebook.Topic != "Home" {
		t.Errorf("restored note not refiled: %+v", note.Notebook)
	}
	if ids := topic(t, db, nb, "Home").IDs(); len(ids) != 1 {
		t.Errorf("topic ids = %v", ids)
	}
	if len(db.Trash.All()) != 0 {
		t.Error("trash entry not removed")
	}
}

func TestRestoreNoteWhoseTopicIsGone(t *testing.T) {
	db, id := noteTest(t, testNote())
	ctx := context.Background()
	nb := addNotebook(t, db, "Hello")
	_ = topic(t, db, nb, models.DefaultTopic).Add(ctx, id)
	_ = db.Notes.Delete(ctx, id)
	_ = db.Notebooks.Delete(ctx, nb)

	if err := db.Trash.Restore(ctx, id); err != nil {
		t.Fatal(err)
	}
	if ref := mustGet(t, db, id).Notebook; ref != nil {
		t.Errorf("note points at trashed notebook: %+v", ref)
	}
}

func TestRestoreNotebook(t *testing.T) {
	db, id := noteTest(t, testNote())
	ctx := context.Background()
	nb := addNotebook(t, db, "Hello")
	_ = topic(t, db, nb, models.DefaultTopic).Add(ctx, id)
	if err := db.Notebooks.Delete(ctx, nb); err != nil {
		t.Fatal(err)
	}
	if err := db.Trash.Restore(ctx, nb); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if ids := topic(t, db, nb, models.DefaultTopic).IDs(); len(ids) != 1 || ids[0] != id {
		t.Errorf("topic ids = %v", ids)
	}
	if ref := mustGet(t, db, id).Notebook; ref == nil || ref.ID != nb {
		t.Errorf("note ref = %+v", ref)
	}
}

func TestRestoreNoteOverLiveID(t *testing.T) {
	db, id := noteTest(t, testNote())
	ctx := context.Background()
	if err := db.Notes.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Notes.Add(ctx, core.NoteInput{ID: id, Title: ptr("new note")}); err != nil {
		t.Fatal(err)
	}

	if err := db.Trash.Restore(ctx, id); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("Restore err = %v, want ErrAlreadyExists", err)
	}
	note := mustGet(t, db, id)
	if note.Title != "new note" || note.Content.Text == testText {
		t.Errorf("live note overwritten: %+v", note)
	}
	if _, ok := db.Trash.Get(id); !ok {
		t.Error("trash entry dropped on failed restore")
	}
}

func TestRestoreNotebookOverLiveID(t *testing.T) {
	db, _ := testutil.DB(t)
	ctx := context.Background()
	nb := addNotebook(t, db, "Old", "Home")
	if err := db.Notebooks.Delete(ctx, nb); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Notebooks.Add(ctx, core.NotebookInput{ID: nb, Title: ptr("New")}); err != nil {
		t.Fatal(err)
	}

	if err := db.Trash.Restore(ctx, nb); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("Restore err = %v, want ErrAlreadyExists", err)
	}
	h, ok := db.Notebooks.Notebook(nb)
	if !ok {
		t.Fatal("notebook gone")
	}
	if data, _ := h.Data(); data.Title != "New" || len(data.Topics) != 1 {
		t.Errorf("live notebook overwritten: %+v", data)
	}
	if _, ok := db.Trash.Get(nb); !ok {
		t.Error("trash entry dropped on failed restore")
	}
}

func TestRestoreUnknown(t *testing.T) {
	db, _ := testutil.DB(t)
	if err := db.Trash.Restore(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPurgeAndClear(t *testing.T) {
	db, _ := testutil.DB(t)
	ctx := context.Background()
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		id, _ := db.Notes.Add(ctx, core.NoteInput{Title: ptr(title)})
		ids = append(ids, id)
	}
	_ = db.Notes.Delete(ctx, ids...)
	if err := db.Trash.Purge(ctx, ids[0], "unknown"); err != nil {
		t.Fatal(err)
	}
	if len(db.Trash.All()) != 2 {
		t.Errorf("trash = %d entries, want 2", len(db.Trash.All()))
	}
	if err := db.Trash.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if len(db.Trash.All()) != 0 {
		t.Error("Clear left entries")
	}
}

func TestCleanupRetention(t *testing.T) {
	clock := testutil.NewClock(epoch)
	db, _ := testutil.DB(t, core.WithClock(clock.Now))
	ctx := context.Background()
	old, _ := db.Notes.Add(ctx, core.NoteInput{Title: ptr("old")})
	recent, _ := db.Notes.Add(ctx, core.NoteInput{Title: ptr("recent")})
	_ = db.Notes.Delete(ctx, old)
	clock.Advance(5 * 24 * time.Hour)
	_ = db.Notes.Delete(ctx, recent)
	clock.Advance(3 * 24 * time.Hour)

	n, err := db.Trash.Cleanup(ctx, 7*24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Cleanup = %d, %v", n, err)
	}
	if _, ok := db.Trash.Get(old); ok {
		t.Error("expired entry kept")
	}
	if _, ok := db.Trash.Get(recent); !ok {
		t.Error("recent entry purged")
	}
}

func TestTrashOrderAndGroup(t *testing.T) {
	clock := testutil.NewClock(epoch)
	db, _ := testutil.DB(t, core.WithClock(clock.Now), core.WithLocation(time.UTC))
	ctx := context.Background()
	first, _ := db.Notes.Add(ctx, core.NoteInput{Title: ptr("first")})
	nb := addNotebook(t, db, "second")
	_ = db.Notes.Delete(ctx, first)
	clock.Advance(time.Hour)
	_ = db.Notebooks.Delete(ctx, nb)

	all := db.Trash.All()
	if len(all) != 2 || all[0].ID != nb || all[1].ID != first {
		t.Fatalf("trash order = %+v", all)
	}
	groups := db.Trash.Group(grouping.Options{GroupBy: grouping.GroupYear})
	if len(groups) != 1 || groups[0].Title != "2024" || groups[0].Items[0].Title() != "second" {
		t.Errorf("groups = %+v", groups)
	}
}

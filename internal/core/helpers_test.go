package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/testutil"
)

const testText = "I am a\nvery simple note with some text in it."

var longText = strings.Repeat("All work and no play makes Jack a dull boy. ", 10)

func ptr[T any](v T) *T { return &v }

func testNote() core.NoteInput {
	return core.NoteInput{
		Content: &core.ContentInput{Text: testText, Delta: []byte(`{"ops":[{"insert":"I am a"}]}`)},
	}
}

// noteTest opens a database and adds one note built from in.
func noteTest(t *testing.T, in core.NoteInput, opts ...core.Option) (*core.DB, string) {
	t.Helper()
	db, _ := testutil.DB(t, opts...)
	id, err := db.Notes.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("Notes.Add: %v", err)
	}
	if id == "" {
		t.Fatal("Notes.Add returned no id")
	}
	return db, id
}

func addNotebook(t *testing.T, db *core.DB, title string, topics ...string) string {
	t.Helper()
	id, err := db.Notebooks.Add(context.Background(), core.NotebookInput{Title: ptr(title), Topics: topics})
	if err != nil {
		t.Fatalf("Notebooks.Add(%q): %v", title, err)
	}
	if id == "" {
		t.Fatalf("Notebooks.Add(%q) returned no id", title)
	}
	return id
}

func topic(t *testing.T, db *core.DB, notebookID, title string) *core.TopicHandle {
	t.Helper()
	topics, ok := db.Notebooks.Topics(notebookID)
	if !ok {
		t.Fatalf("notebook %s missing", notebookID)
	}
	h, ok := topics.Topic(title)
	if !ok {
		t.Fatalf("topic %q missing", title)
	}
	return h
}

func mustGet(t *testing.T, db *core.DB, id string) models.Note {
	t.Helper()
	note, ok := db.Notes.Get(id)
	if !ok {
		t.Fatalf("note %s missing", id)
	}
	return note
}

var epoch = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

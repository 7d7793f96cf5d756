package vault

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
)

// ExportReport counts the outcome of an export.
type ExportReport struct {
	Written int `json:"written"`
	Locked  int `json:"locked"`
}

// Export writes every live note into dir as Markdown with frontmatter,
// laid out so that a later import files it back into the same notebook and
// topic. Locked notes are not written.
func Export(ctx context.Context, db *core.DB, dir *Dir, logger *slog.Logger) (ExportReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep ExportReport
	titles := make(map[string]string, len(db.Notebooks.All()))
	for _, nb := range db.Notebooks.All() {
		titles[nb.ID] = nb.Title
	}

	used := make(map[string]bool)
	for _, note := range db.Notes.All() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if note.Locked {
			rep.Locked++
			continue
		}
		rel := uniquePath(used, notePath(note, titles))
		fm := &parser.Frontmatter{
			Title:    note.Title,
			Tags:     note.Tags,
			Pinned:   note.Pinned,
			Favorite: note.Favorite,
			Created:  note.DateCreated.UTC(),
		}
		data, err := parser.Render(fm, note.Content.Text)
		if err != nil {
			return rep, err
		}
		if err := dir.Write(rel, data); err != nil {
			return rep, fmt.Errorf("vault: export %s: %w", note.ID, err)
		}
		rep.Written++
	}
	logger.Info("export: finished",
		slog.String("root", dir.Root()),
		slog.Int("written", rep.Written),
		slog.Int("locked", rep.Locked))
	return rep, nil
}

// notePath is the inverse of Locate.
func notePath(note models.Note, notebooks map[string]string) string {
	file := fileName(note.Title) + ".md"
	if note.Notebook == nil {
		return file
	}
	nb, ok := notebooks[note.Notebook.ID]
	if !ok {
		return file
	}
	if note.Notebook.Topic == models.DefaultTopic {
		return path.Join(fileName(nb), file)
	}
	return path.Join(fileName(nb), fileName(note.Notebook.Topic), file)
}

func uniquePath(used map[string]bool, rel string) string {
	candidate := rel
	base := strings.TrimSuffix(rel, ".md")
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s (%d).md", base, i)
	}
	used[candidate] = true
	return candidate
}

// fileName makes s safe as a single path element.
func fileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "untitled"
	}
	return s
}

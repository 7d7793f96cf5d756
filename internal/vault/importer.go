package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
)

// NoteID is the stable note id of a vault path, so importing the same file
// twice updates one note.
func NoteID(rel string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("notebase:note:"+path.Clean(rel))).String()
}

// NotebookID is the stable notebook id of a vault folder.
func NotebookID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("notebase:notebook:"+name)).String()
}

// ErrNotMarkdown is returned for paths that are not .md files.
var ErrNotMarkdown = errors.New("vault: not a markdown file")

// Report counts the outcome of an import.
type Report struct {
	Imported  int `json:"imported"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Outcome of importing a single file.
type Outcome int

const (
	Imported Outcome = iota
	Unchanged
	Skipped
)

// Importer copies vault files into a database.
type Importer struct {
	db     *core.DB
	dir    *Dir
	logger *slog.Logger
}

// NewImporter returns an importer from dir into db.
func NewImporter(db *core.DB, dir *Dir, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, dir: dir, logger: logger}
}

// Import walks the vault and imports every Markdown file. Failures of
// single files are logged and counted; only a failed walk is returned.
func (im *Importer) Import(ctx context.Context) (Report, error) {
	var rep Report
	files, err := im.dir.List()
	if err != nil {
		return rep, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		_, outcome, err := im.ImportFile(ctx, f.Path)
		if err != nil {
			im.logger.Warn("import: file failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			rep.Failed++
			continue
		}
		switch outcome {
		case Imported:
			rep.Imported++
		case Unchanged:
			rep.Unchanged++
		case Skipped:
			rep.Skipped++
		}
	}
	im.logger.Info("import: finished",
		slog.String("root", im.dir.Root()),
		slog.Int("imported", rep.Imported),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

// ImportFile imports one vault file and returns the note id. Notes that
// were locked or trashed since the last import are skipped.
func (im *Importer) ImportFile(ctx context.Context, rel string) (string, Outcome, error) {
	if !strings.HasSuffix(rel, ".md") {
		return "", Skipped, fmt.Errorf("%s: %w", rel, ErrNotMarkdown)
	}
	data, err := im.dir.Read(rel)
	if err != nil {
		return "", Skipped, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return "", Skipped, fmt.Errorf("vault: parse %s: %w", rel, err)
	}

	id := NoteID(rel)
	if _, trashed := im.db.Trash.Get(id); trashed {
		im.logger.Debug("import: note is in trash", slog.String("path", rel))
		return id, Skipped, nil
	}
	existing, exists := im.db.Notes.Get(id)
	if exists && existing.Locked {
		im.logger.Debug("import: note is locked", slog.String("path", rel))
		return id, Skipped, nil
	}

	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(rel), ".md")
	}
	ref, err := im.ensureTopic(ctx, rel)
	if err != nil {
		return "", Skipped, err
	}

	if exists && existing.Title == title && existing.Content.Text == res.Body &&
		ref.Same(existing.Notebook) && hasTags(existing, res.Tags) && sameFlags(existing, res.Frontmatter) {
		return id, Unchanged, nil
	}

	in := core.NoteInput{
		ID:      id,
		Title:   &title,
		Content: &core.ContentInput{Text: res.Body},
		Tags:    res.Tags,
	}
	if ref != nil {
		in.Notebook = ref
	}
	if fm := res.Frontmatter; fm != nil {
		in.Pinned = &fm.Pinned
		in.Favorite = &fm.Favorite
	}
	got, err := im.db.Notes.Add(ctx, in)
	if err != nil {
		return "", Skipped, fmt.Errorf("vault: import %s: %w", rel, err)
	}
	if got == "" {
		return "", Skipped, nil
	}
	im.logger.Debug("import: note stored", slog.String("path", rel), slog.String("id", got))
	return got, Imported, nil
}

// Remove trashes the note imported from rel, if any.
func (im *Importer) Remove(ctx context.Context, rel string) error {
	id := NoteID(rel)
	if _, ok := im.db.Notes.Get(id); !ok {
		return nil
	}
	return im.db.Notes.Delete(ctx, id)
}

// ensureTopic creates the notebook and topic rel files into. It returns
// nil for root files and when the notebook could not be created.
func (im *Importer) ensureTopic(ctx context.Context, rel string) (*models.NotebookRef, error) {
	name, topic := Locate(rel)
	if name == "" {
		return nil, nil
	}
	id := NotebookID(name)
	if _, trashed := im.db.Trash.Get(id); trashed {
		return nil, nil
	}

	if topics, ok := im.db.Notebooks.Topics(id); ok {
		if !topics.Has(topic) {
			if err := topics.Add(ctx, topic); err != nil {
				return nil, err
			}
		}
		return &models.NotebookRef{ID: id, Topic: topic}, nil
	}

	got, err := im.db.Notebooks.Add(ctx, core.NotebookInput{ID: id, Title: &name, Topics: []string{topic}})
	if err != nil {
		return nil, err
	}
	if got == "" {
		im.logger.Warn("import: notebook not created, filing note without notebook",
			slog.String("notebook", name), slog.String("path", rel))
		return nil, nil
	}
	return &models.NotebookRef{ID: id, Topic: topic}, nil
}

func sameFlags(n models.Note, fm *parser.Frontmatter) bool {
	return fm == nil || (n.Pinned == fm.Pinned && n.Favorite == fm.Favorite)
}

func hasTags(n models.Note, tags []string) bool {
	for _, t := range tags {
		if !slices.Contains(n.Tags, strings.ToLower(strings.TrimSpace(t))) {
			return false
		}
	}
	return true
}

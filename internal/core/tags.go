package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/models"
)

// Tag adds tag to the note.
func (n *Notes) Tag(ctx context.Context, id, tag string) error {
	tag = normalizeTag(tag)
	if tag == "" {
		return fmt.Errorf("empty tag: %w", apperr.ErrValidation)
	}
	return n.edit(ctx, id, func(note *models.Note) (bool, error) {
		if note.HasTag(tag) {
			return false, nil
		}
		note.Tags = append(note.Tags, tag)
		return true, nil
	})
}

// Untag removes tag from the note.
func (n *Notes) Untag(ctx context.Context, id, tag string) error {
	tag = normalizeTag(tag)
	return n.edit(ctx, id, func(note *models.Note) (bool, error) {
		i := slices.Index(note.Tags, tag)
		if i < 0 {
			return false, nil
		}
		note.Tags = slices.Delete(note.Tags, i, i+1)
		return true, nil
	})
}

// Tags returns every tag used by a live note with its usage count, ordered
// by title.
func (n *Notes) Tags() []models.Tag {
	counts := make(map[string]int)
	for _, note := range n.db.notes.All() {
		for _, t := range note.Tags {
			counts[t]++
		}
	}
	out := make([]models.Tag, 0, len(counts))
	for title, count := range counts {
		out = append(out, models.Tag{Title: title, Count: count})
	}
	slices.SortFunc(out, func(a, b models.Tag) int { return strings.Compare(a.Title, b.Title) })
	return out
}

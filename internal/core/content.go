package core

import (
	"strings"
	"unicode/utf8"

	"github.com/starford/notebase/internal/checksum"
	"github.com/starford/notebase/internal/models"
)

const (
	headlineLength = 150
	titleLength    = 100
	ellipsis       = "..."
)

// deriveTitle returns the first non-blank line of text, capped to
// titleLength runes.
func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, titleLength)
		}
	}
	return ""
}

// headline summarizes text, appending an ellipsis when it was cut.
func headline(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= headlineLength {
		return text
	}
	return truncate(text, headlineLength) + ellipsis
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func contentChecksum(c models.Content) string {
	return checksum.Parts([]byte(c.Text), c.Delta)
}

// normalizeContent fills the derived fields of a plaintext note. It reports
// false when the note has neither a title nor any text.
func normalizeContent(n *models.Note) bool {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		n.Title = deriveTitle(n.Content.Text)
	}
	if n.Title == "" && strings.TrimSpace(n.Content.Text) == "" {
		return false
	}
	n.Headline = headline(n.Content.Text)
	n.Content.Length = utf8.RuneCountInString(n.Content.Text)
	n.Content.Checksum = contentChecksum(n.Content)
	return true
}

// normalizeTag canonicalizes a tag title.
func normalizeTag(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

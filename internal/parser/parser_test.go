package parser

import (
	"testing"
	"time"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\npinned: true\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "go" || r.Tags[1] != "notes" {
		t.Errorf("tags = %v, want [go notes]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Frontmatter == nil || !r.Frontmatter.Pinned || r.Frontmatter.Favorite {
		t.Errorf("frontmatter = %+v", r.Frontmatter)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %+v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want whole input", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: x\nno closing line")
	r, _ := Parse(input)
	if r.Frontmatter != nil || r.Body != string(input) {
		t.Errorf("result = %+v", r)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := &Frontmatter{Tags: []string{"alpha", " "}}
	tags := extractTags("Some text #beta and #alpha again. Not a#tag.", fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(&Frontmatter{Title: "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	fm := &Frontmatter{Title: "Plan", Tags: []string{"work"}, Favorite: true, Created: created}
	data, err := Render(fm, "line one\nline two")
	if err != nil {
		t.Fatal(err)
	}
	r, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Title != "Plan" || r.Body != "line one\nline two\n" {
		t.Errorf("parsed = %+v", r)
	}
	if !r.Frontmatter.Favorite || !r.Frontmatter.Created.Equal(created) {
		t.Errorf("frontmatter = %+v", r.Frontmatter)
	}
}

func TestRenderWithoutFrontmatter(t *testing.T) {
	data, _ := Render(nil, "")
	if len(data) != 0 {
		t.Errorf("data = %q", data)
	}
}

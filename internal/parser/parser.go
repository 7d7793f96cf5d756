// Package parser reads and writes the Markdown files of a vault: YAML
// frontmatter followed by the note body.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Frontmatter is the metadata block a vault file may start with.
type Frontmatter struct {
	Title    string    `yaml:"title,omitempty"`
	Tags     []string  `yaml:"tags,omitempty"`
	Pinned   bool      `yaml:"pinned,omitempty"`
	Favorite bool      `yaml:"favorite,omitempty"`
	Created  time.Time `yaml:"created,omitempty"`
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter *Frontmatter
	Body        string
	Tags        []string
	Title       string
}

// Parse splits raw Markdown into frontmatter and body and collects the
// title and tags.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Render is the inverse of Parse: fm (if any) as a YAML block, then body.
func Render(fm *Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	if fm != nil {
		meta, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(meta)
		buf.WriteString("---\n")
	}
	buf.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the body. Without a well-formed block the entire content
// is body.
func splitFrontmatter(data []byte) (*Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return &fm, body
}

// extractTags collects frontmatter tags followed by inline #tags, without
// duplicates.
func extractTags(body string, fm *Frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if fm != nil {
		for _, t := range fm.Tags {
			add(t)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise "".
func deriveTitle(fm *Frontmatter, body string) string {
	if fm != nil && strings.TrimSpace(fm.Title) != "" {
		return strings.TrimSpace(fm.Title)
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

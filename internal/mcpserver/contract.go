package mcpserver

// NoteFormatContract describes the Markdown shape create_note accepts and
// read_note returns.
const NoteFormatContract = `# Notebase Note Format

Notes are plain text with optional YAML frontmatter.

## Structure

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL - otherwise the first line is used
tags:                          # OPTIONAL - YAML list
  - tag-one
pinned: false                  # OPTIONAL
favorite: false                # OPTIONAL
---

Body text. Inline #tags are collected as well.
` + "```" + `

## Rules

1. Tags are stored lowercase and trimmed; duplicates collapse.
2. A note with neither a title nor body text is not stored.
3. The title falls back to the first line of the body, truncated.
4. Notebooks and topics are chosen with the notebook and topic arguments of
   create_note or with move_note, never in the frontmatter.
5. Locked notes cannot be read or changed through these tools.
`

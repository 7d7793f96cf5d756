// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Notebase tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
)

const formatURI = "notebase://note-format"

// Server wraps the MCP server with Notebase tools.
type Server struct {
	mcp *server.MCPServer
	db  *core.DB
}

// noteSummary is the listing shape of a note.
type noteSummary struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Headline string              `json:"headline,omitempty"`
	Tags     []string            `json:"tags,omitempty"`
	Notebook *models.NotebookRef `json:"notebook,omitempty"`
	Locked   bool                `json:"locked,omitempty"`
}

type notebookSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Topics     []string `json:"topics"`
	TotalNotes int      `json:"totalNotes"`
}

// New creates a new MCP server with all Notebase tools registered.
func New(db *core.DB) *Server {
	s := &Server{db: db}

	s.mcp = server.NewMCPServer(
		"Notebase",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as Markdown with frontmatter."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note from Markdown. Read the format via "+
			"get_note_contract or the "+formatURI+" resource first."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content, optionally with frontmatter")),
		mcp.WithString("notebook", mcp.Description("Optional notebook id to file the note under")),
		mcp.WithString("topic", mcp.Description("Topic title inside the notebook (default General)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("File a note under a notebook topic."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook id")),
		mcp.WithString("topic", mcp.Description("Topic title (default General)")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Move a note to the trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally only those with a tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with the number of notes using each."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List notebooks with their topics."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Notebase note format."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format",
			mcp.WithResourceDescription("Markdown note format accepted by create_note."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summaries(s.db.Notes.Filter(query)))
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok := s.db.Notes.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if note.Locked {
		return mcp.NewToolResultError(fmt.Sprintf("note is locked: %s", id)), nil
	}
	data, err := parser.Render(&parser.Frontmatter{
		Title:    note.Title,
		Tags:     note.Tags,
		Pinned:   note.Pinned,
		Favorite: note.Favorite,
	}, note.Content.Text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := parser.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := core.NoteInput{
		Content: &core.ContentInput{Text: res.Body},
		Tags:    res.Tags,
	}
	if res.Title != "" {
		in.Title = &res.Title
	}
	if fm := res.Frontmatter; fm != nil {
		in.Pinned = &fm.Pinned
		in.Favorite = &fm.Favorite
	}
	if nb := req.GetString("notebook", ""); nb != "" {
		in.Notebook = &models.NotebookRef{ID: nb, Topic: req.GetString("topic", models.DefaultTopic)}
	}

	id, err := s.db.Notes.Add(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	if id == "" {
		return mcp.NewToolResultError("note is empty"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", id)), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.db.Notes.Get(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	dest := models.NotebookRef{ID: nb, Topic: req.GetString("topic", models.DefaultTopic)}
	if err := s.db.Notes.Move(ctx, dest, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s", id)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.db.Notes.Get(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err := s.db.Notes.Delete(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if tag := req.GetString("tag", ""); tag != "" {
		return jsonResult(summaries(s.db.Notes.Tagged(tag)))
	}
	return jsonResult(summaries(s.db.Notes.All()))
}

func (s *Server) listTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := s.db.Notes.Tags()
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	lines := make([]string, 0, len(tags))
	for _, t := range tags {
		lines = append(lines, fmt.Sprintf("%s (%d)", t.Title, t.Count))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listNotebooks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := s.db.Notebooks.All()
	out := make([]notebookSummary, 0, len(all))
	for _, nb := range all {
		topics := make([]string, 0, len(nb.Topics))
		for _, t := range nb.Topics {
			topics = append(topics, t.Title)
		}
		out = append(out, notebookSummary{ID: nb.ID, Title: nb.Title, Topics: topics, TotalNotes: nb.TotalNotes})
	}
	return jsonResult(out)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func summaries(notes []models.Note) []noteSummary {
	out := make([]noteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteSummary{
			ID:       n.ID,
			Title:    n.Title,
			Headline: n.Headline,
			Tags:     n.Tags,
			Notebook: n.Notebook,
			Locked:   n.Locked,
		})
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns domain errors into tool errors the model can act on.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrLocked):
		return mcp.NewToolResultError("note is locked")
	case errors.Is(err, apperr.ErrValidation):
		return mcp.NewToolResultError("invalid input: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

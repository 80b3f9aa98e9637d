// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's notes as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/identity"
	"github.com/starford/noted/internal/mdoc"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/noteservice"
)

// FormatURI is the resource describing the note document format.
const FormatURI = "noted://note-format"

const defaultSearchLimit = 20

// Server wraps the MCP server with note tools bound to one user.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	userID string
}

// New creates a new MCP server with all note tools registered. Every tool
// call runs as userID.
func New(svc *noteservice.Service, userID string) *Server {
	s := &Server{svc: svc, userID: userID}

	s.mcp = server.NewMCPServer(
		"noted",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, newest first, as JSON with id, title and timestamps."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as Markdown with YAML frontmatter."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Title and content may be empty. "+
			"See the "+FormatURI+" resource for the document format."),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the title and/or content of a note. Omitted fields are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New Markdown body")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note permanently."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Note Format",
			mcp.WithResourceDescription("Markdown document format used by read_note and notes export."),
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

func (s *Server) userCtx(ctx context.Context) context.Context {
	return identity.WithUser(ctx, s.userID)
}

// toolError turns a service error into a tool-level error result.
func toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrValidationFailed):
		return mcp.NewToolResultError(err.Error())
	}
	slog.Error("mcp tool failed", slog.String("op", op), slog.String("error", err.Error()))
	return mcp.NewToolResultError(fmt.Sprintf("%s failed", op))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

type noteSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.List(s.userCtx(ctx))
	if err != nil {
		return toolError("list", err), nil
	}
	out := make([]noteSummary, 0, len(list))
	for _, n := range list {
		out = append(out, noteSummary{
			ID:        n.ID,
			Title:     n.Title,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return jsonResult(out)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Get(s.userCtx(ctx), id)
	if err != nil {
		return toolError("read", err), nil
	}
	data, err := mdoc.Render(*n)
	if err != nil {
		return toolError("read", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := models.NoteInput{
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
	}
	n, err := s.svc.Create(s.userCtx(ctx), in)
	if err != nil {
		return toolError("create", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch models.NotePatch
	args := req.GetArguments()
	if v, ok := args["title"].(string); ok {
		patch.Title = &v
	}
	if v, ok := args["content"].(string); ok {
		patch.Content = &v
	}
	n, err := s.svc.Update(s.userCtx(ctx), id, patch)
	if err != nil {
		return toolError("update", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", n.ID)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(s.userCtx(ctx), id); err != nil {
		return toolError("delete", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultSearchLimit)
	results, err := s.svc.Search(s.userCtx(ctx), query, limit)
	if err != nil {
		return toolError("search", err), nil
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(testutil.TestService(t, nil), "alice")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createID(t *testing.T, srv *Server, title, content string) string {
	t.Helper()
	r := callTool(t, srv, "create_note", map[string]interface{}{"title": title, "content": content})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	id, ok := strings.CutPrefix(resultText(r), "created: ")
	if !ok {
		t.Fatalf("create result = %q", resultText(r))
	}
	return id
}

func TestCreateAndReadNote(t *testing.T) {
	srv := testServer(t)
	id := createID(t, srv, "Groceries", "milk, eggs")

	r := callTool(t, srv, "read_note", map[string]interface{}{"id": id})
	text := resultText(r)
	if !strings.HasPrefix(text, "---\n") {
		t.Errorf("read result missing frontmatter: %q", text)
	}
	if !strings.Contains(text, "title: Groceries") || !strings.Contains(text, "milk, eggs") {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateEmptyNote(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("empty note should be allowed: %s", resultText(r))
	}
}

func TestListNotes(t *testing.T) {
	srv := testServer(t)
	first := createID(t, srv, "a", "")
	second := createID(t, srv, "b", "")

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	var list []noteSummary
	if err := json.Unmarshal([]byte(resultText(r)), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("order = %s, %s; want newest first", list[0].ID, list[1].ID)
	}
}

func TestUpdateNoteKeepsOmittedFields(t *testing.T) {
	srv := testServer(t)
	id := createID(t, srv, "title", "body")

	r := callTool(t, srv, "update_note", map[string]interface{}{"id": id, "content": "new body"})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}
	n, err := srv.svc.Get(testutil.UserCtx("alice"), id)
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "title" || n.Content != "new body" {
		t.Errorf("note = %+v", n)
	}
}

func TestUpdateNoteWithoutFields(t *testing.T) {
	srv := testServer(t)
	id := createID(t, srv, "t", "c")
	r := callTool(t, srv, "update_note", map[string]interface{}{"id": id})
	if !r.IsError {
		t.Error("expected validation error for empty patch")
	}
}

func TestDeleteNote(t *testing.T) {
	srv := testServer(t)
	id := createID(t, srv, "t", "c")

	r := callTool(t, srv, "delete_note", map[string]interface{}{"id": id})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	r = callTool(t, srv, "delete_note", map[string]interface{}{"id": id})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("second delete = %q, want not found", resultText(r))
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	r = callTool(t, srv, "read_note", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing id argument")
	}
}

func TestToolsAreScopedToUser(t *testing.T) {
	svc := testutil.TestService(t, nil)
	alice := New(svc, "alice")
	bob := New(svc, "bob")
	id := createID(t, alice, "private", "")

	r := callTool(t, bob, "read_note", map[string]interface{}{"id": id})
	if !r.IsError {
		t.Error("bob read alice's note")
	}
	r = callTool(t, bob, "list_notes", map[string]interface{}{})
	if strings.TrimSpace(resultText(r)) != "[]" {
		t.Errorf("bob list = %q", resultText(r))
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	createID(t, srv, "Groceries", "milk and bread")
	createID(t, srv, "Work", "quarterly report")

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "milk"})
	var results []models.SearchResult
	if err := json.Unmarshal([]byte(resultText(r)), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Groceries" {
		t.Errorf("results = %+v", results)
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "zebra"})
	if strings.TrimSpace(resultText(r)) != "[]" {
		t.Errorf("empty search = %q", resultText(r))
	}
}

func TestNoteFormatResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != FormatURI || !strings.Contains(tc.Text, "frontmatter") {
		t.Errorf("resource = %+v", contents[0])
	}
}

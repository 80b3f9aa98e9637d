package mdoc

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/noted/internal/models"
)

func TestRenderAndParse(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	n := models.Note{ID: "0f8e1c2a-aaaa", Title: "Groceries", Content: "milk, eggs", CreatedAt: at, UpdatedAt: at.Add(time.Hour)}

	data, err := Render(n)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\n") {
		t.Errorf("missing frontmatter: %q", data)
	}
	if !strings.HasSuffix(string(data), "\n\nmilk, eggs\n") {
		t.Errorf("body not at end: %q", data)
	}

	doc := Parse(data)
	if doc.Frontmatter == nil {
		t.Fatal("frontmatter not parsed")
	}
	if doc.Title != "Groceries" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Body != "milk, eggs\n" {
		t.Errorf("body = %q", doc.Body)
	}
	if !doc.Frontmatter.Updated.Equal(n.UpdatedAt) {
		t.Errorf("updated = %v, want %v", doc.Frontmatter.Updated, n.UpdatedAt)
	}
	if doc.Frontmatter.ID != n.ID {
		t.Errorf("id = %q", doc.Frontmatter.ID)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	doc := Parse([]byte("# Just a heading\nSome text.\n"))
	if doc.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %+v", doc.Frontmatter)
	}
	if doc.Title != "Just a heading" {
		t.Errorf("title = %q", doc.Title)
	}
	in := doc.Input()
	if in.Content != "# Just a heading\nSome text.\n" {
		t.Errorf("content = %q", in.Content)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	doc := Parse([]byte(input))
	if doc.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if doc.Body != input {
		t.Errorf("body = %q, want whole input", doc.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	doc := Parse([]byte("---\ntitle: x\nno end"))
	if doc.Frontmatter != nil || doc.Title != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		note models.Note
		want string
	}{
		{models.Note{ID: "0123456789", Title: "Groceries: Week 1!"}, "groceries-week-1-01234567.md"},
		{models.Note{ID: "abc", Title: ""}, "note-abc.md"},
		{models.Note{ID: "abcdefghij", Title: "  --  "}, "note-abcdefgh.md"},
	}
	for _, tt := range tests {
		if got := FileName(tt.note); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.note.Title, got, tt.want)
		}
	}
}

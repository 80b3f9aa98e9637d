// Package mdoc converts notes to and from markdown files with YAML frontmatter.
package mdoc

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/starford/noted/internal/models"
)

const delim = "---"

// Frontmatter is the YAML header written on export.
type Frontmatter struct {
	ID      string    `yaml:"id,omitempty"`
	Title   string    `yaml:"title"`
	Created time.Time `yaml:"created,omitempty"`
	Updated time.Time `yaml:"updated,omitempty"`
}

// Document is a parsed markdown file.
type Document struct {
	Frontmatter *Frontmatter
	Body        string
	Title       string
}

// Input returns the create payload for the document.
func (d *Document) Input() models.NoteInput {
	return models.NoteInput{Title: d.Title, Content: d.Body}
}

// Render writes n as frontmatter followed by its content.
func Render(n models.Note) ([]byte, error) {
	fm, err := yaml.Marshal(Frontmatter{
		ID:      n.ID,
		Title:   n.Title,
		Created: n.CreatedAt.UTC(),
		Updated: n.UpdatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("mdoc: marshal frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(n.Content)
	if n.Content != "" && !strings.HasSuffix(n.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Parse splits frontmatter from body. Missing or invalid frontmatter leaves
// the whole input as body. The title comes from frontmatter, else the first
// "# " heading.
func Parse(data []byte) *Document {
	fm, body := splitFrontmatter(data)
	return &Document{Frontmatter: fm, Body: body, Title: deriveTitle(fm, body)}
}

func splitFrontmatter(data []byte) (*Frontmatter, string) {
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
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return &fm, body
}

func deriveTitle(fm *Frontmatter, body string) string {
	if fm != nil && fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// FileName returns the export file name for n: "<slug>-<id prefix>.md".
func FileName(n models.Note) string {
	id := n.ID
	if len(id) > 8 {
		id = id[:8]
	}
	slug := Slug(n.Title)
	if slug == "" {
		slug = "note"
	}
	return slug + "-" + id + ".md"
}

// Slug lowercases s and joins its letters and digits with single dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	out := b.String()
	if r := []rune(out); len(r) > 60 {
		out = strings.TrimRight(string(r[:60]), "-")
	}
	return out
}

// Package ui formats notes for the terminal with fatih/color and glamour.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/notes"
	"github.com/starford/noted/internal/workspace"
)

var (
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

const previewRunes = 50

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatNoteListItem renders one sidebar row. The selected row is marked.
func FormatNoteListItem(n models.Note, selected bool) string {
	marker := "  "
	if selected {
		marker = cyan("> ")
	}
	title := n.Title
	if title == "" {
		title = "Untitled"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s  %s  %s\n", marker, faint(shortID(n.ID)), bold(title), faint(workspace.ListDate(n.CreatedAt.Local())))
	if n.Content != "" {
		preview := strings.Join(strings.Fields(n.Content), " ")
		fmt.Fprintf(&sb, "            %s\n", faint(workspace.Truncate(preview, previewRunes)))
	}
	return sb.String()
}

// FormatNoteList renders the list, or a hint when it is empty.
func FormatNoteList(list []models.Note, selectedID string) string {
	if len(list) == 0 {
		return faint("No notes yet. Create one with \"new\".") + "\n"
	}
	var sb strings.Builder
	for _, n := range list {
		sb.WriteString(FormatNoteListItem(n, n.ID == selectedID))
	}
	return sb.String()
}

// FormatNoteHeader renders the title block of a note.
func FormatNoteHeader(n models.Note) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", bold(n.Title))
	fmt.Fprintf(&sb, "%s %s\n", faint("ID:"), faint(n.ID))
	fmt.Fprintf(&sb, "%s %s\n", faint("Created:"), faint(workspace.UpdatedLabel(n.CreatedAt.Local())))
	fmt.Fprintf(&sb, "%s %s\n", faint("Updated:"), faint(workspace.UpdatedLabel(n.UpdatedAt.Local())))
	sb.WriteString(Separator())
	return sb.String()
}

// FormatNoteContent renders markdown, falling back to the raw text.
func FormatNoteContent(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// FormatStatus renders the editor's save state.
func FormatStatus(st notes.Status) string {
	switch {
	case !st.Open():
		return faint("no note open")
	case st.LastError != nil:
		return Error("unsaved: " + st.LastError.Error())
	case st.Saving:
		return yellow("saving...")
	case st.Dirty:
		return yellow("unsaved changes")
	case !st.SavedAt.IsZero():
		return faint("saved " + workspace.UpdatedLabel(st.SavedAt.Local()))
	}
	return faint("saved")
}

// FormatSearchResults renders search hits.
func FormatSearchResults(results []models.SearchResult) string {
	if len(results) == 0 {
		return faint("No matches.") + "\n"
	}
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "  %s  %s\n", faint(shortID(r.ID)), bold(r.Title))
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "            %s\n", faint(strings.Join(strings.Fields(r.Snippet), " ")))
		}
	}
	return sb.String()
}

// Separator is a horizontal rule.
func Separator() string {
	return faint(strings.Repeat("─", 50)) + "\n"
}

// Success prefixes msg with a green check.
func Success(msg string) string {
	return color.New(color.FgGreen).Sprint("✓ ") + msg
}

// Error prefixes msg with a red cross.
func Error(msg string) string {
	return color.New(color.FgRed).Sprint("✗ ") + msg
}

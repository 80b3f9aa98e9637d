// Package workspace holds the session state around the editor: which note is
// selected, the pending delete confirmation, the sidebar layout and the list
// filter.
package workspace

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/notes"
)

// Workspace coordinates list selection with the editor.
type Workspace struct {
	repo   *notes.Repository
	editor *notes.Editor
	now    func() time.Time

	mu        sync.Mutex
	selected  string
	pending   *models.Note
	collapsed bool
	search    string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithClock overrides the time source used for placeholder titles.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// New creates a workspace with nothing selected.
func New(repo *notes.Repository, editor *notes.Editor, opts ...Option) *Workspace {
	w := &Workspace{repo: repo, editor: editor, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Editor returns the editor bound to the selection.
func (w *Workspace) Editor() *notes.Editor { return w.editor }

// Notes returns the list filtered by the search term.
func (w *Workspace) Notes(ctx context.Context) ([]models.Note, error) {
	all, err := w.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	term := w.search
	w.mu.Unlock()
	return Filter(all, term), nil
}

// LastNotes returns the last fetched list, filtered, without fetching.
func (w *Workspace) LastNotes() ([]models.Note, bool) {
	all, ok := w.repo.Cache().Peek()
	if !ok {
		return nil, false
	}
	w.mu.Lock()
	term := w.search
	w.mu.Unlock()
	return Filter(all, term), true
}

// ListErr returns the error of the last failed list fetch, if any.
func (w *Workspace) ListErr() error {
	return w.repo.Cache().Err()
}

// Filter keeps notes whose title or content contains term, ignoring case.
func Filter(list []models.Note, term string) []models.Note {
	if term == "" {
		return list
	}
	term = strings.ToLower(term)
	out := make([]models.Note, 0, len(list))
	for _, n := range list {
		if strings.Contains(strings.ToLower(n.Title), term) || strings.Contains(strings.ToLower(n.Content), term) {
			out = append(out, n)
		}
	}
	return out
}

func (w *Workspace) find(ctx context.Context, id string) (*models.Note, error) {
	all, err := w.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, apperr.ErrNotFound
}

// Select opens the note in the editor. A flush error for the previously open
// note is returned after the switch has happened.
func (w *Workspace) Select(ctx context.Context, id string) error {
	n, err := w.find(ctx, id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.selected = n.ID
	w.mu.Unlock()
	return w.editor.Open(ctx, n)
}

// Deselect closes the open note.
func (w *Workspace) Deselect(ctx context.Context) error {
	w.mu.Lock()
	w.selected = ""
	w.mu.Unlock()
	return w.editor.Open(ctx, nil)
}

// Selected returns the selected note id, or "".
func (w *Workspace) Selected() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

// CreateNote persists a placeholder note and selects it.
func (w *Workspace) CreateNote(ctx context.Context) (*models.Note, error) {
	n, err := w.repo.Create(ctx, models.NoteInput{Title: PlaceholderTitle(w.now())})
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.selected = n.ID
	w.mu.Unlock()
	return n, w.editor.Open(ctx, n)
}

// RequestDelete asks for confirmation before deleting id.
func (w *Workspace) RequestDelete(ctx context.Context, id string) error {
	n, err := w.find(ctx, id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.pending = n
	w.mu.Unlock()
	return nil
}

// PendingDelete returns the note awaiting confirmation.
func (w *Workspace) PendingDelete() (models.Note, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return models.Note{}, false
	}
	return *w.pending, true
}

// CancelDelete dismisses the confirmation.
func (w *Workspace) CancelDelete() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

// ConfirmDelete deletes the pending note. If it is open, the editor is
// discarded first so no autosave targets the deleted note. On failure the
// confirmation stays pending.
func (w *Workspace) ConfirmDelete(ctx context.Context) error {
	w.mu.Lock()
	n := w.pending
	open := n != nil && n.ID == w.selected
	if open {
		w.selected = ""
	}
	w.mu.Unlock()
	if n == nil {
		return nil
	}
	if open {
		w.editor.Discard()
	}
	if err := w.repo.Delete(ctx, n.ID); err != nil {
		return err
	}

	w.mu.Lock()
	w.pending = nil
	w.selected = ""
	w.mu.Unlock()
	return w.editor.Open(ctx, nil)
}

// ToggleSidebar flips the sidebar layout and returns the new collapsed state.
func (w *Workspace) ToggleSidebar() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.collapsed = !w.collapsed
	return w.collapsed
}

// SidebarCollapsed reports the sidebar layout.
func (w *Workspace) SidebarCollapsed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collapsed
}

// SetSearch sets the list filter.
func (w *Workspace) SetSearch(term string) {
	w.mu.Lock()
	w.search = term
	w.mu.Unlock()
}

// Search returns the list filter.
func (w *Workspace) Search() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.search
}

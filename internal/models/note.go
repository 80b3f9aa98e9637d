// Package models defines the domain types for noted.
package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noted/internal/apperr"
)

// Field limits enforced by the store.
const (
	MaxTitleRunes   = 500
	MaxContentBytes = 1 << 20
)

// Note is a single markdown note owned by exactly one user.
// The owner is a store concern and is not carried here.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of n.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// NoteInput is the payload for creating a note. Empty title and content are allowed.
type NoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate checks field limits.
func (in NoteInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.RuneLength(0, MaxTitleRunes)),
		validation.Field(&in.Content, validation.Length(0, MaxContentBytes)),
	)
	return apperr.Validation(err)
}

// NotePatch is a partial update. Nil fields are left untouched.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Validate checks that at least one field is set and within limits.
func (p NotePatch) Validate() error {
	if p.Title == nil && p.Content == nil {
		return apperr.Validation(errors.New("patch: no fields to update"))
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.RuneLength(0, MaxTitleRunes)),
		validation.Field(&p.Content, validation.Length(0, MaxContentBytes)),
	)
	return apperr.Validation(err)
}

// Apply returns n with the patch applied. Timestamps are not touched.
func (p NotePatch) Apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	return n
}

// NoteForm is the explicit-submit form: both fields are trimmed and required.
type NoteForm struct {
	Title   string
	Content string
}

// Input validates the form and returns the trimmed create payload.
func (f NoteForm) Input() (NoteInput, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, MaxTitleRunes)),
		validation.Field(&f.Content, validation.Required, validation.Length(1, MaxContentBytes)),
	)
	if err != nil {
		return NoteInput{}, apperr.Validation(err)
	}
	return NoteInput{Title: f.Title, Content: f.Content}, nil
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// NoteMetadata describes an exported markdown file.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

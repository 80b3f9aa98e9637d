package api

import "github.com/starford/noted/internal/models"

// CreateNoteRequest is the request body for creating a note. Both fields may be empty.
type CreateNoteRequest = models.NoteInput

// UpdateNoteRequest is the request body for a partial update.
type UpdateNoteRequest = models.NotePatch

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results"`
}

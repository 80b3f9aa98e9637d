// Package notes holds the client-side editing pipeline: the note list cache,
// the repository that keeps it coherent with writes, the autosave scheduler
// and the edit buffer for the open note.
package notes

import (
	"context"

	"github.com/starford/noted/internal/models"
)

// Store is the persistence capability the pipeline needs. It is satisfied by
// client.Client, localstore.Store and Repository.
type Store interface {
	Create(ctx context.Context, in models.NoteInput) (*models.Note, error)
	List(ctx context.Context) ([]models.Note, error)
	Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, id string) error
}

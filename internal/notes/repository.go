package notes

import (
	"context"

	"github.com/starford/noted/internal/models"
)

// Repository reads the note list through a Cache and invalidates it after
// every successful mutation. Failed mutations leave the cache untouched.
type Repository struct {
	store Store
	cache *Cache
}

// NewRepository wraps store.
func NewRepository(store Store, opts ...CacheOption) *Repository {
	return &Repository{
		store: store,
		cache: NewCache(store.List, opts...),
	}
}

// Cache exposes the list cache.
func (r *Repository) Cache() *Cache { return r.cache }

// List returns the cached list, fetching when it is not fresh.
func (r *Repository) List(ctx context.Context) ([]models.Note, error) {
	return r.cache.Get(ctx)
}

// Create stores a note and invalidates the list.
func (r *Repository) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	n, err := r.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate()
	return n, nil
}

// Update changes a note and invalidates the list.
func (r *Repository) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	n, err := r.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate()
	return n, nil
}

// Delete removes a note and invalidates the list.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.Invalidate()
	return nil
}

// Invalidate marks the list stale, e.g. when another client changed it.
func (r *Repository) Invalidate() {
	r.cache.Invalidate()
}

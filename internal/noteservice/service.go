// Package noteservice scopes document-store operations to the caller's
// identity and announces every accepted mutation on the change feed.
package noteservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starford/noted/internal/docstore"
	"github.com/starford/noted/internal/identity"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/sse"
)

// Publisher receives note change events.
type Publisher interface {
	PublishNoteEvent(userID, kind, id string)
}

type nopPublisher struct{}

func (nopPublisher) PublishNoteEvent(string, string, string) {}

// Service coordinates the document store and change events.
type Service struct {
	db     *docstore.DB
	events Publisher
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides note id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService creates a new note service. events may be nil.
func NewService(db *docstore.DB, events Publisher, opts ...Option) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	s := &Service{
		db:     db,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new note for the current user. Both timestamps are equal.
func (s *Service) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	user, err := identity.UserFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	n := models.Note{
		ID:        s.newID(),
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Insert(ctx, user, n); err != nil {
		return nil, err
	}
	s.events.PublishNoteEvent(user, sse.KindCreated, n.ID)
	return &n, nil
}

// List returns the current user's notes, newest first.
func (s *Service) List(ctx context.Context) ([]models.Note, error) {
	user, err := identity.UserFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.db.List(ctx, user)
}

// Get returns one of the current user's notes.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	user, err := identity.UserFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.db.Get(ctx, user, id)
}

// Update applies patch and returns the stored record.
func (s *Service) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	user, err := identity.UserFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	n, err := s.db.Update(ctx, user, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	s.events.PublishNoteEvent(user, sse.KindUpdated, n.ID)
	return n, nil
}

// Delete removes one of the current user's notes.
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := identity.UserFrom(ctx)
	if err != nil {
		return err
	}
	if err := s.db.Delete(ctx, user, id); err != nil {
		return err
	}
	s.events.PublishNoteEvent(user, sse.KindDeleted, id)
	return nil
}

// Search runs a full-text query over the current user's notes.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	user, err := identity.UserFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.db.Search(ctx, user, query, limit)
}

package notes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
)

type updateCall struct {
	ID    string
	Patch models.NotePatch
}

func (c updateCall) content() string {
	if c.Patch.Content == nil {
		return ""
	}
	return *c.Patch.Content
}

// memStore is an in-memory Store that records calls and can inject failures.
type memStore struct {
	mu      sync.Mutex
	notes   []models.Note // newest first
	seq     int
	clock   time.Time
	updates []updateCall
	lists   int

	// failures are returned by the next Update calls, in order.
	failures []error
	// gate, when set, blocks Update until it is closed or receives.
	gate chan struct{}
	// started receives the note id each time Update begins.
	started chan string
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) Create(_ context.Context, in models.NoteInput) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	now := s.tick()
	n := models.Note{ID: fmt.Sprintf("n%d", s.seq), Title: in.Title, Content: in.Content, CreatedAt: now, UpdatedAt: now}
	s.notes = append([]models.Note{n}, s.notes...)
	return &n, nil
}

func (s *memStore) List(_ context.Context) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out, nil
}

func (s *memStore) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	s.mu.Lock()
	gate, started := s.gate, s.started
	s.mu.Unlock()
	if started != nil {
		started <- id
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, apperr.Transient(ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, updateCall{ID: id, Patch: patch})
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return nil, err
	}
	for i := range s.notes {
		if s.notes[i].ID == id {
			n := patch.Apply(s.notes[i])
			n.UpdatedAt = s.tick()
			s.notes[i] = n
			return &n, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (s *memStore) get(id string) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n
		}
	}
	return models.Note{}
}

func (s *memStore) calls() []updateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]updateCall(nil), s.updates...)
}

func (s *memStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *memStore) failNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

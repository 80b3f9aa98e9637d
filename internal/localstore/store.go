// Package localstore keeps notes on the local machine without a server. The
// whole collection is one JSON snapshot stored under a single badger key and
// rewritten on every change.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
)

// SnapshotKey is the fixed key holding the note list.
const SnapshotKey = "notes"

// Store is a badger-backed note collection for one local user.
type Store struct {
	db *badger.DB

	mu    sync.Mutex
	notes []models.Note // newest first

	now   func() time.Time
	newID func() string
}

type options struct {
	inMemory bool
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures Open.
type Option func(*options)

// InMemory keeps the badger database in memory; dir is ignored.
func InMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithLogger routes badger's log output through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open opens (or creates) the store in dir and loads the snapshot.
func Open(dir string, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	bo := badger.DefaultOptions(dir).WithLogger(badgerLogger{o.logger})
	if o.inMemory {
		bo = bo.WithInMemory(true).WithDir("").WithValueDir("")
	}
	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("localstore: open: %w", err)
	}

	s := &Store{db: db, now: o.now, newID: uuid.NewString}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(SnapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			s.notes = []models.Note{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("localstore: read snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			var notes []models.Note
			if err := json.Unmarshal(val, &notes); err != nil {
				return fmt.Errorf("localstore: decode snapshot: %w", err)
			}
			if notes == nil {
				notes = []models.Note{}
			}
			s.notes = notes
			return nil
		})
	})
}

// persist writes notes as the new snapshot. Callers hold s.mu.
func (s *Store) persist(notes []models.Note) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("localstore: encode snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(SnapshotKey), data)
	})
	if err != nil {
		return apperr.Transient(fmt.Errorf("localstore: write snapshot: %w", err))
	}
	s.notes = notes
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// Create adds a note at the front of the list.
func (s *Store) Create(_ context.Context, in models.NoteInput) (*models.Note, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.Note, 0, len(s.notes)+1)
	next = append(next, n)
	next = append(next, s.notes...)
	if err := s.persist(next); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns a copy of every note, newest first.
func (s *Store) List(_ context.Context) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out, nil
}

// Get returns one note.
func (s *Store) Get(_ context.Context, id string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, apperr.ErrNotFound
	}
	n := s.notes[i]
	return &n, nil
}

// Update applies patch and returns the stored record.
func (s *Store) Update(_ context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, apperr.ErrNotFound
	}
	n := patch.Apply(s.notes[i])
	n.UpdatedAt = s.now().UTC()
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}

	next := make([]models.Note, len(s.notes))
	copy(next, s.notes)
	next[i] = n
	if err := s.persist(next); err != nil {
		return nil, err
	}
	return &n, nil
}

// Delete removes a note.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	next := make([]models.Note, 0, len(s.notes)-1)
	next = append(next, s.notes[:i]...)
	next = append(next, s.notes[i+1:]...)
	return s.persist(next)
}

// Search returns notes whose title or content contains query, ignoring case.
func (s *Store) Search(_ context.Context, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.SearchResult{}
	for _, n := range s.notes {
		if len(out) == limit {
			break
		}
		if !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		snippet := n.Content
		if r := []rune(snippet); len(r) > 200 {
			snippet = string(r[:200])
		}
		out = append(out, models.SearchResult{ID: n.ID, Title: n.Title, Snippet: snippet})
	}
	return out, nil
}

// badgerLogger adapts slog to badger.Logger. Badger's info chatter is
// demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, args ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(f, args...)), slog.String("component", "badger"))
}

func (b badgerLogger) Warningf(f string, args ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(f, args...)), slog.String("component", "badger"))
}

func (b badgerLogger) Infof(f string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(f, args...)), slog.String("component", "badger"))
}

func (b badgerLogger) Debugf(f string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(f, args...)), slog.String("component", "badger"))
}

package noteservice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/noteservice"
	"github.com/starford/noted/internal/testutil"
)

type recordedEvent struct {
	user, kind, id string
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) PublishNoteEvent(user, kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{user, kind, id})
}

func (r *recorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func strPtr(s string) *string { return &s }

func TestCreate_AssignsIDAndEqualTimestamps(t *testing.T) {
	rec := &recorder{}
	svc := testutil.TestService(t, rec)
	ctx := testutil.UserCtx("alice")

	n, err := svc.Create(ctx, models.NoteInput{})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)
	assert.Equal(t, []recordedEvent{{"alice", "created", n.ID}}, rec.all())

	got, err := svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt))
}

func TestCreate_NewestListedFirst(t *testing.T) {
	db := testutil.TestDB(t)
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := noteservice.NewService(db, nil, noteservice.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := testutil.UserCtx("alice")

	a, err := svc.Create(ctx, models.NoteInput{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, models.NoteInput{Title: "b"})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestRequiresIdentity(t *testing.T) {
	svc := testutil.TestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.NoteInput{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = svc.Update(ctx, "x", models.NotePatch{Title: strPtr("t")})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, "x"), apperr.ErrUnauthenticated)
}

func TestUserIsolation(t *testing.T) {
	svc := testutil.TestService(t, nil)
	alice := testutil.UserCtx("alice")
	bob := testutil.UserCtx("bob")

	n, err := svc.Create(alice, models.NoteInput{Title: "secret"})
	require.NoError(t, err)

	list, err := svc.List(bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(bob, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Update(bob, n.ID, models.NotePatch{Title: strPtr("mine")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(bob, n.ID), apperr.ErrNotFound)

	got, err := svc.Get(alice, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)
}

func TestUpdate_ReturnsAuthoritativeRecord(t *testing.T) {
	db := testutil.TestDB(t)
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := noteservice.NewService(db, nil, noteservice.WithClock(func() time.Time { return clock }))
	ctx := testutil.UserCtx("alice")

	n, err := svc.Create(ctx, models.NoteInput{Title: "Groceries", Content: "milk"})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	got, err := svc.Update(ctx, n.ID, models.NotePatch{Content: strPtr("milk, eggs")})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "milk, eggs", got.Content)
	assert.True(t, got.UpdatedAt.Equal(clock))
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt))
}

func TestUpdate_Validation(t *testing.T) {
	svc := testutil.TestService(t, nil)
	ctx := testutil.UserCtx("alice")
	n, err := svc.Create(ctx, models.NoteInput{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, n.ID, models.NotePatch{})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	long := strings.Repeat("x", models.MaxTitleRunes+1)
	_, err = svc.Update(ctx, n.ID, models.NotePatch{Title: &long})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestDelete_TwiceIsNotFound(t *testing.T) {
	rec := &recorder{}
	svc := testutil.TestService(t, rec)
	ctx := testutil.UserCtx("alice")

	n, err := svc.Create(ctx, models.NoteInput{Title: "tmp"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, n.ID))

	err = svc.Delete(ctx, n.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, "deleted", events[1].kind)
}

func TestSearch(t *testing.T) {
	svc := testutil.TestService(t, nil)
	ctx := testutil.UserCtx("alice")
	_, err := svc.Create(ctx, models.NoteInput{Title: "Groceries", Content: "milk eggs"})
	require.NoError(t, err)
	_, err = svc.Create(testutil.UserCtx("bob"), models.NoteInput{Title: "Groceries", Content: "bread"})
	require.NoError(t, err)

	res, err := svc.Search(ctx, "Groceries", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Groceries", res[0].Title)
}

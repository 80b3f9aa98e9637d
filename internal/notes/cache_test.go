package notes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
)

func TestCache_FreshUntilInvalidated(t *testing.T) {
	var fetches atomic.Int32
	c := NewCache(func(context.Context) ([]models.Note, error) {
		fetches.Add(1)
		return []models.Note{{ID: "a"}}, nil
	})
	ctx := context.Background()
	assert.Equal(t, Idle, c.State())

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, Fresh, c.State())

	c.Invalidate()
	assert.Equal(t, Stale, c.State())
	_, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, Fresh, c.State())
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var fetches int
	c := NewCache(func(context.Context) ([]models.Note, error) {
		fetches++
		return nil, nil
	}, WithTTL(time.Minute), WithCacheClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.NoError(t, err)
	now = now.Add(59 * time.Second)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	now = now.Add(time.Second)
	assert.Equal(t, Stale, c.State())
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}

func TestCache_ErroredRefetches(t *testing.T) {
	fail := true
	c := NewCache(func(context.Context) ([]models.Note, error) {
		if fail {
			return nil, apperr.Transient(errors.New("offline"))
		}
		return []models.Note{{ID: "a"}}, nil
	})
	ctx := context.Background()

	_, err := c.Get(ctx)
	assert.ErrorIs(t, err, apperr.ErrTransientIO)
	assert.Equal(t, Errored, c.State())
	assert.Error(t, c.Err())

	fail = false
	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, Fresh, c.State())
	assert.NoError(t, c.Err())
}

func TestCache_ConcurrentReadsShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var fetches atomic.Int32
	c := NewCache(func(context.Context) ([]models.Note, error) {
		fetches.Add(1)
		entered <- struct{}{}
		<-release
		return []models.Note{{ID: "a"}}, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Get(context.Background())
	}()
	<-entered
	assert.Equal(t, Fetching, c.State())

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), fetches.Load())
}

func TestCache_InvalidateDuringFetchLeavesStale(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	var fetches atomic.Int32
	c := NewCache(func(context.Context) ([]models.Note, error) {
		fetches.Add(1)
		entered <- struct{}{}
		<-release
		return nil, nil
	})

	done := make(chan struct{})
	go func() {
		_, _ = c.Get(context.Background())
		close(done)
	}()
	<-entered
	c.Invalidate()
	release <- struct{}{}
	<-done
	assert.Equal(t, Stale, c.State())

	close(release)
	_, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, Fresh, c.State())
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(func(context.Context) ([]models.Note, error) {
		return []models.Note{{ID: "a", Title: "orig"}}, nil
	})
	got, err := c.Get(context.Background())
	require.NoError(t, err)
	got[0].Title = "mutated"

	peek, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "orig", peek[0].Title)
}

func TestCache_ReadAfterInvalidateSkipsOlderFetch(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var fetches atomic.Int32
	c := NewCache(func(context.Context) ([]models.Note, error) {
		if fetches.Add(1) == 1 {
			entered <- struct{}{}
			<-release
			return []models.Note{{ID: "a"}}, nil
		}
		return []models.Note{{ID: "b"}, {ID: "a"}}, nil
	})

	type result struct {
		notes []models.Note
		err   error
	}
	first := make(chan result, 1)
	go func() {
		got, err := c.Get(context.Background())
		first <- result{got, err}
	}()
	<-entered

	// A create landed while the first fetch was in flight.
	c.Invalidate()
	got, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, Fresh, c.State())

	close(release)
	r := <-first
	require.NoError(t, r.err)
	assert.Len(t, r.notes, 1)

	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, Fresh, c.State())
	peek, ok := c.Peek()
	require.True(t, ok)
	assert.Len(t, peek, 2, "older fetch must not overwrite newer data")
}

package notes

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/noted/internal/models"
)

// DefaultTTL is how long a fetched list stays fresh.
const DefaultTTL = 5 * time.Minute

const cacheKey = "notes"

// State is the lifecycle of the cached list.
type State int

const (
	Idle State = iota
	Fetching
	Fresh
	Stale
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Cache holds the result of one list query under a single key.
// Concurrent reads that miss share one fetch.
type Cache struct {
	fetch func(context.Context) ([]models.Note, error)
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu        sync.Mutex
	state     State
	notes     []models.Note
	err       error
	fetchedAt time.Time
	gen       uint64
	loading   uint64 // generation of the latest fetch started
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the freshness window. Non-positive values keep the default.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithCacheClock overrides the time source.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an idle cache over fetch.
func NewCache(fetch func(context.Context) ([]models.Note, error), opts ...CacheOption) *Cache {
	c := &Cache{fetch: fetch, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached list while fresh and fetches otherwise.
func (c *Cache) Get(ctx context.Context) ([]models.Note, error) {
	c.mu.Lock()
	if c.state == Fresh && c.now().Sub(c.fetchedAt) >= c.ttl {
		c.state = Stale
	}
	if c.state == Fresh {
		out := cloneNotes(c.notes)
		c.mu.Unlock()
		return out, nil
	}
	gen := c.gen
	c.mu.Unlock()

	// Reads only share a fetch started in the same generation.
	key := cacheKey + "/" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	return cloneNotes(v.([]models.Note)), nil
}

func (c *Cache) load(ctx context.Context, gen uint64) ([]models.Note, error) {
	c.mu.Lock()
	if c.gen == gen {
		c.state = Fetching
		c.loading = gen
	}
	c.mu.Unlock()

	notes, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// Invalidated mid-flight: the result goes to the callers that joined
		// this fetch and is never stored over a newer generation.
		if c.loading == gen {
			c.state = Stale
		}
		if err != nil {
			return nil, err
		}
		return cloneNotes(notes), nil
	}
	if err != nil {
		c.state = Errored
		c.err = err
		return nil, err
	}
	c.notes = cloneNotes(notes)
	c.err = nil
	c.fetchedAt = c.now()
	c.state = Fresh
	return c.notes, nil
}

// Invalidate marks the list stale so the next Get re-fetches. A fetch in
// flight completes for its callers, but later reads start a new one.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.state == Fresh {
		c.state = Stale
	}
}

// State reports the current lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Fresh && c.now().Sub(c.fetchedAt) >= c.ttl {
		return Stale
	}
	return c.state
}

// Peek returns the last fetched list without fetching, and whether there is one.
func (c *Cache) Peek() ([]models.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notes == nil {
		return nil, false
	}
	return cloneNotes(c.notes), true
}

// Err returns the error of the last failed fetch, if the cache is Errored.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Errored {
		return nil
	}
	return c.err
}

func cloneNotes(in []models.Note) []models.Note {
	out := make([]models.Note, len(in))
	copy(out, in)
	return out
}

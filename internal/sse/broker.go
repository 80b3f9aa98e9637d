// Package sse implements a Server-Sent Events broker that fans note changes
// out to the connections of the user who owns the note.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/noted/internal/identity"
)

// Note event kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Event represents an SSE event to deliver to one user.
type Event struct {
	UserID string `json:"-"`
	Type   string `json:"type"`
	Data   any    `json:"data"`
}

type subscription struct {
	userID string
	ch     chan []byte
}

// DefaultHeartbeat is how often an idle stream gets a comment line.
const DefaultHeartbeat = 25 * time.Second

// Broker manages SSE client connections and delivers events.
//
// Concurrency model: a single internal event loop (goroutine) owns the client
// set. Public methods communicate with this loop through channels, so no
// mutexes are required.
type Broker struct {
	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	heartbeat time.Duration

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the keep-alive interval for idle streams. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// NewBroker creates a new SSE broker and starts its loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		heartbeat:     DefaultHeartbeat,
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// encode renders one event frame. seq becomes the SSE id.
func encode(seq uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	// user -> that user's open streams; owner tracks the reverse.
	byUser := make(map[string]map[chan []byte]struct{})
	owner := make(map[chan []byte]string)
	var seq uint64

	drop := func(ch chan []byte) {
		user, ok := owner[ch]
		if !ok {
			return
		}
		delete(owner, ch)
		delete(byUser[user], ch)
		if len(byUser[user]) == 0 {
			delete(byUser, user)
		}
		close(ch)
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range owner {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			if byUser[sub.userID] == nil {
				byUser[sub.userID] = make(map[chan []byte]struct{})
			}
			byUser[sub.userID][sub.ch] = struct{}{}
			owner[sub.ch] = sub.userID

		case ch := <-b.unsubscribeCh:
			drop(ch)

		case event := <-b.publishCh:
			streams := byUser[event.UserID]
			if len(streams) == 0 {
				continue
			}
			seq++
			raw, err := encode(seq, event)
			if err != nil {
				continue
			}
			for ch := range streams {
				select {
				case ch <- raw:
				default:
					// Slow reader; it misses this event.
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(owner)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client for userID and returns its channel.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{userID: userID, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the clients of event.UserID.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes note.<kind> with the note id to userID's clients.
func (b *Broker) PublishNoteEvent(userID, kind, id string) {
	b.Publish(Event{
		UserID: userID,
		Type:   "note." + kind,
		Data:   map[string]string{"id": id},
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The caller's
// identity must already be on the request context.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := identity.UserFrom(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(userID)
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		beat = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

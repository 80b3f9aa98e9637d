package notes

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
)

// ErrEditorClosed is returned by Open after Close.
var ErrEditorClosed = errors.New("notes: editor closed")

// SwitchPolicy decides what happens to a pending autosave when another note
// is opened.
type SwitchPolicy int

const (
	// FlushOnSwitch writes the pending payload to the note it was typed into.
	FlushOnSwitch SwitchPolicy = iota
	// CancelOnSwitch drops the pending payload.
	CancelOnSwitch
)

// ParseSwitchPolicy maps a config value to a policy.
func ParseSwitchPolicy(s string) (SwitchPolicy, error) {
	switch s {
	case "", "flush":
		return FlushOnSwitch, nil
	case "cancel":
		return CancelOnSwitch, nil
	}
	return FlushOnSwitch, apperr.Validation(errors.New("switch policy must be flush or cancel"))
}

func (p SwitchPolicy) String() string {
	if p == CancelOnSwitch {
		return "cancel"
	}
	return "flush"
}

// Status is a snapshot of the edit buffer.
type Status struct {
	NoteID  string
	Title   string
	Content string
	// Dirty means the buffer has edits no confirmed write covers yet.
	Dirty bool
	// Saving means a write for this note is in flight.
	Saving bool
	// Pending means an autosave is waiting for the quiet period.
	Pending   bool
	LastError error
	SavedAt   time.Time
}

// Open reports whether a note is loaded.
func (s Status) Open() bool { return s.NoteID != "" }

// Editor is the edit buffer for the open note. Edits are debounced through a
// Scheduler owned by the current note session and written with Store.Update.
type Editor struct {
	store        Store
	quiet        time.Duration
	retries      int
	retryBase    time.Duration
	writeTimeout time.Duration
	policy       SwitchPolicy
	logger       *slog.Logger
	onError      func(noteID string, err error)

	mu      sync.Mutex
	note    *models.Note
	title   string
	content string
	dirty   bool
	saving  bool
	lastErr error
	savedAt time.Time
	rev     uint64
	sched   *Scheduler
	closed  bool

	writeMu sync.Mutex
	sent    map[string]uint64 // highest revision sent per note
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithQuietPeriod sets the autosave debounce window.
func WithQuietPeriod(d time.Duration) EditorOption {
	return func(e *Editor) { e.quiet = d }
}

// WithMaxRetries sets how many times a transient write failure is retried.
func WithMaxRetries(n int) EditorOption {
	return func(e *Editor) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithRetryInterval sets the first backoff interval between retries.
func WithRetryInterval(d time.Duration) EditorOption {
	return func(e *Editor) { e.retryBase = d }
}

// WithWriteTimeout bounds each write attempt.
func WithWriteTimeout(d time.Duration) EditorOption {
	return func(e *Editor) { e.writeTimeout = d }
}

// WithSwitchPolicy sets the pending-autosave policy for note switches.
func WithSwitchPolicy(p SwitchPolicy) EditorOption {
	return func(e *Editor) { e.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EditorOption {
	return func(e *Editor) { e.logger = l }
}

// WithErrorHandler is called after a write finally fails.
func WithErrorHandler(fn func(noteID string, err error)) EditorOption {
	return func(e *Editor) { e.onError = fn }
}

// NewEditor creates an editor with no note open.
func NewEditor(store Store, opts ...EditorOption) *Editor {
	e := &Editor{
		store:     store,
		quiet:     DefaultQuietPeriod,
		retries:   3,
		retryBase: 500 * time.Millisecond,
		policy:    FlushOnSwitch,
		logger:    slog.Default(),
		sent:      make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open loads n into the buffer, or clears it when n is nil. The reset is
// immediate. The previous note's pending autosave is then flushed to that
// note or dropped, according to the switch policy; the returned error is
// the flush error. Opening the note that is already open keeps the buffer.
func (e *Editor) Open(ctx context.Context, n *models.Note) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if n != nil && e.note != nil && e.note.ID == n.ID {
		e.mu.Unlock()
		return nil
	}
	old := e.sched
	e.resetLocked(n)
	if n != nil {
		e.sched = NewScheduler(e.quiet, e.autosave)
	}
	e.mu.Unlock()

	return e.retire(ctx, old, e.policy == FlushOnSwitch)
}

// retire disposes a previous session's scheduler, writing its pending
// payload first when flush is set.
func (e *Editor) retire(ctx context.Context, sched *Scheduler, flush bool) error {
	if sched == nil {
		return nil
	}
	p, ok := sched.Cancel()
	sched.Stop()
	if !ok || !flush {
		return nil
	}
	return e.write(ctx, p)
}

func (e *Editor) resetLocked(n *models.Note) {
	e.note = n.Clone()
	e.title, e.content = "", ""
	e.savedAt = time.Time{}
	if n != nil {
		e.title, e.content = n.Title, n.Content
		e.savedAt = n.UpdatedAt
	}
	e.dirty = false
	e.saving = false
	e.lastErr = nil
	e.sched = nil
}

// SetTitle replaces the title and schedules an autosave.
func (e *Editor) SetTitle(title string) {
	e.edit(func() { e.title = title })
}

// SetContent replaces the content and schedules an autosave.
func (e *Editor) SetContent(content string) {
	e.edit(func() { e.content = content })
}

func (e *Editor) edit(apply func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.note == nil || e.sched == nil {
		return
	}
	apply()
	e.dirty = true
	e.rev++
	e.sched.Schedule(e.payloadLocked())
}

func (e *Editor) payloadLocked() Payload {
	return Payload{NoteID: e.note.ID, Title: e.title, Content: e.content, Rev: e.rev}
}

// Status returns a snapshot of the buffer.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Title:     e.title,
		Content:   e.content,
		Dirty:     e.dirty,
		Saving:    e.saving,
		LastError: e.lastErr,
		SavedAt:   e.savedAt,
	}
	if e.note != nil {
		st.NoteID = e.note.ID
	}
	if e.sched != nil {
		_, st.Pending = e.sched.Pending()
	}
	return st
}

// Flush writes the pending autosave now. With nothing pending but unsaved
// edits (a previous write failed) it writes the current buffer again.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.note == nil {
		e.mu.Unlock()
		return nil
	}
	var p Payload
	ok := false
	if e.sched != nil {
		p, ok = e.sched.Cancel()
	}
	if !ok && e.dirty {
		p, ok = e.payloadLocked(), true
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return e.write(ctx, p)
}

// Discard drops any pending autosave and clears the buffer. Used before
// deleting the open note.
func (e *Editor) Discard() {
	e.mu.Lock()
	old := e.sched
	var id string
	if e.note != nil {
		id = e.note.ID
	}
	e.resetLocked(nil)
	e.mu.Unlock()
	_ = e.retire(context.Background(), old, false)
	if id != "" {
		e.forget(id)
	}
}

// forget drops the revision bookkeeping for a note that is going away.
func (e *Editor) forget(noteID string) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	delete(e.sent, noteID)
}

// Close flushes pending edits synchronously and disables the editor.
func (e *Editor) Close(ctx context.Context) error {
	err := e.Flush(ctx)
	e.mu.Lock()
	old := e.sched
	e.resetLocked(nil)
	e.closed = true
	e.mu.Unlock()
	_ = e.retire(ctx, old, false)
	return err
}

func (e *Editor) autosave(p Payload) {
	_ = e.write(context.Background(), p)
}

// write sends one payload. Writes are serialized, and a payload whose
// revision is not newer than one already sent for the same note is skipped.
func (e *Editor) write(ctx context.Context, p Payload) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	prev := e.sent[p.NoteID]
	if p.Rev <= prev {
		return nil
	}
	e.sent[p.NoteID] = p.Rev
	e.setSaving(p.NoteID)

	saved, err := e.update(ctx, p)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		delete(e.sent, p.NoteID)
	case err != nil:
		e.sent[p.NoteID] = prev
	}
	e.finish(p, saved, err)
	return err
}

func (e *Editor) update(ctx context.Context, p Payload) (*models.Note, error) {
	patch := models.NotePatch{Title: &p.Title, Content: &p.Content}

	var saved *models.Note
	op := func() error {
		attemptCtx := ctx
		if e.writeTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.writeTimeout)
			defer cancel()
		}
		n, err := e.store.Update(attemptCtx, p.NoteID, patch)
		if err != nil {
			if apperr.Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		saved = n
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = e.retryBase
	eb.MaxElapsedTime = 0
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(e.retries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		e.logger.Warn("autosave failed, retrying",
			slog.String("id", p.NoteID),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	})
	return saved, err
}

func (e *Editor) setSaving(noteID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.note != nil && e.note.ID == noteID {
		e.saving = true
	}
}

// finish records a write result. Results for a note that is no longer open
// are not applied to the buffer.
func (e *Editor) finish(p Payload, saved *models.Note, err error) {
	if err != nil {
		e.logger.Error("autosave failed",
			slog.String("id", p.NoteID),
			slog.Uint64("rev", p.Rev),
			slog.String("error", err.Error()))
		if e.onError != nil {
			e.onError(p.NoteID, err)
		}
	} else {
		e.logger.Debug("autosaved", slog.String("id", p.NoteID), slog.Uint64("rev", p.Rev))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.note == nil || e.note.ID != p.NoteID {
		return
	}
	e.saving = false
	if err != nil {
		e.lastErr = err
		return
	}
	e.lastErr = nil
	if saved != nil {
		e.savedAt = saved.UpdatedAt
		e.note.UpdatedAt = saved.UpdatedAt
	}
	if p.Rev == e.rev {
		e.dirty = false
	}
}

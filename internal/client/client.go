// Package client is the typed HTTP client for the noted REST API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to a noted server on behalf of one token holder.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	stream  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token. Without one every call fails with
// ErrUnauthenticated before any request is sent.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the HTTP client used for request/response calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout for non-streaming calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	stream := *c.http
	stream.Timeout = 0
	c.stream = &stream
	return c
}

// Create stores a new note; the server assigns id and timestamps.
func (c *Client) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns every note of the caller, newest first.
func (c *Client) List(ctx context.Context) ([]models.Note, error) {
	var resp struct {
		Notes []models.Note `json:"notes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Notes == nil {
		resp.Notes = []models.Note{}
	}
	return resp.Notes, nil
}

// Get returns one note.
func (c *Client) Get(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Update applies patch and returns the server's post-write record.
func (c *Client) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPatch, "/api/notes/"+url.PathEscape(id), patch, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Delete removes a note. Deleting a missing note returns ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

// Search runs a full-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Results []models.SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if c.token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: marshal request: %w", err)
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transient(fmt.Errorf("client: %s %s: decode response: %w", method, path, err))
	}
	return nil
}

func transportError(method, path string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Transient(fmt.Errorf("client: %s %s: %w", method, path, err))
}

// statusError maps an HTTP failure onto the error taxonomy.
func statusError(method, path string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	detail := fmt.Errorf("client: %s %s: status %d: %s", method, path, resp.StatusCode, body.Error)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, detail)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusRequestEntityTooLarge,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return apperr.Validation(detail)
	default:
		return apperr.Transient(detail)
	}
}

// Event is one change notification from the server's feed.
type Event struct {
	Type string // note.created, note.updated or note.deleted
	ID   string
}

// Subscribe streams change events to fn until ctx is done or the server
// closes the connection. It returns nil when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, fn func(Event)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return transportError(http.MethodGet, "/api/events", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(http.MethodGet, "/api/events", resp)
	}

	var typ, data string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if typ != "" {
				var payload struct {
					ID string `json:"id"`
				}
				_ = json.Unmarshal([]byte(data), &payload)
				fn(Event{Type: typ, ID: payload.ID})
			}
			typ, data = "", ""
		case strings.HasPrefix(line, "event:"):
			typ = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return transportError(http.MethodGet, "/api/events", err)
	}
	return apperr.Transient(errors.New("client: event stream closed by server"))
}

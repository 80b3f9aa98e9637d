// Package identity resolves bearer tokens to user ids and carries the
// resolved user through request contexts.
package identity

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/starford/noted/internal/apperr"
)

type ctxKey struct{}

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFrom returns the user established for ctx, or ErrUnauthenticated.
func UserFrom(ctx context.Context) (string, error) {
	id, _ := ctx.Value(ctxKey{}).(string)
	if id == "" {
		return "", apperr.ErrUnauthenticated
	}
	return id, nil
}

// Provider maps a bearer token to a user id.
type Provider interface {
	Resolve(token string) (userID string, ok bool)
}

// Anonymous treats every caller as the same user. Used when auth is disabled.
type Anonymous string

// Resolve always succeeds with the configured user.
func (a Anonymous) Resolve(string) (string, bool) {
	return string(a), a != ""
}

// Tokens is a concurrency-safe token table. The zero value is empty.
type Tokens struct {
	mu     sync.RWMutex
	byUser map[string]string // token -> user
}

// NewTokens builds a table from token -> user pairs.
func NewTokens(entries map[string]string) *Tokens {
	t := &Tokens{}
	t.Replace(entries)
	return t
}

// Replace swaps the whole table atomically.
func (t *Tokens) Replace(entries map[string]string) {
	m := make(map[string]string, len(entries))
	for tok, user := range entries {
		if tok != "" && user != "" {
			m[tok] = user
		}
	}
	t.mu.Lock()
	t.byUser = m
	t.mu.Unlock()
}

// Len returns the number of known tokens.
func (t *Tokens) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byUser)
}

// Resolve looks up token using a constant-time comparison per entry.
func (t *Tokens) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var found string
	for tok, user := range t.byUser {
		if subtle.ConstantTimeCompare([]byte(tok), []byte(token)) == 1 {
			found = user
		}
	}
	return found, found != ""
}

// Chain tries each provider in order.
type Chain []Provider

// Resolve returns the first match.
func (c Chain) Resolve(token string) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if id, ok := p.Resolve(token); ok {
			return id, true
		}
	}
	return "", false
}

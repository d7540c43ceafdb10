// Package session holds the short-lived private scopes that isolate a
// user's in-progress uploads from their permanent document set.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id has no record.
var ErrNotFound = errors.New("session not found")

// Session is a time-boxed private scope. Only chunk metadata references a
// session id; sessions themselves never enter the vector store.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Files     []string  `json:"files"`
	Private   bool      `json:"is_private"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store is the session-table abstraction injected into request handlers and
// the sweep task. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Save rewrites an existing record (expiry extension, file append).
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Session, error)
}

// Package store wraps the vector-searchable persistence layer for chunks
// and their metadata. A single collection holds all chunks across all
// users; visibility is entirely a matter of metadata filters.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"documind/internal/model"
)

// Filter is an exact-match conjunction over chunk metadata, with one
// disjunction: SessionID plus OrPermanent widens a session scope to also
// include the user's permanent chunks.
type Filter struct {
	UserID      string
	SessionID   string
	OrPermanent bool
	Filename    string
	Permanent   *bool

	// Time bounds, matched against the unix-seconds payload fields.
	// ExpiredBefore only matches chunks that carry an expiry at all.
	ExpiredBefore time.Time
	CreatedBefore time.Time
}

// SearchResult is one nearest-neighbor hit. HasDistance is false when the
// backend did not report a usable distance.
type SearchResult struct {
	Chunk       model.Chunk
	Distance    float64
	HasDistance bool
}

// UpsertResult reports a best-effort batch write: how many chunks landed
// and which ones did not.
type UpsertResult struct {
	Stored   int
	Failures []string
}

type Store interface {
	// Init ensures the collection exists with the given vector dimension.
	Init(ctx context.Context, dimension int) error
	// Upsert writes chunks keyed by (filename, sequence), overwriting any
	// previous chunk with the same identity. Individual write failures are
	// recorded in the result, never aborting the rest of the batch.
	Upsert(ctx context.Context, chunks []model.Chunk) UpsertResult
	// Query returns the topK nearest chunks satisfying the filter.
	Query(ctx context.Context, vector []float32, f Filter, topK int) ([]SearchResult, error)
	// Delete removes every chunk matching the filter and reports the count.
	Delete(ctx context.Context, f Filter) (int, error)
	// SetExpiry rewrites expires_at on every chunk matching the filter.
	SetExpiry(ctx context.Context, f Filter, expiresAt time.Time) error
	// SizeEstimate reports the approximate storage footprint in bytes.
	SizeEstimate(ctx context.Context) (int64, error)
}

// PointID derives the stable storage identity of a chunk from the pair
// (filename, sequence), so re-ingesting a file overwrites its chunks.
func PointID(filename string, sequence int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", filename, sequence))).String()
}

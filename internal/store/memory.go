package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"documind/internal/model"
)

// Memory is an in-process Store with brute-force cosine search. It backs
// tests and dependency-free development runs.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]memoryPoint
}

type memoryPoint struct {
	chunk  model.Chunk
	vector []float32
}

func NewMemory() *Memory {
	return &Memory{points: map[string]memoryPoint{}}
}

func (s *Memory) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	s.mu.Lock()
	s.dimension = dimension
	s.mu.Unlock()
	return nil
}

func (s *Memory) Upsert(_ context.Context, chunks []model.Chunk) UpsertResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result UpsertResult
	for _, ch := range chunks {
		s.points[PointID(ch.Filename, ch.Sequence)] = memoryPoint{chunk: ch, vector: ch.Embedding}
		result.Stored++
	}
	return result
}

func (s *Memory) Query(_ context.Context, vector []float32, f Filter, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, p := range s.points {
		if !matches(f, p.chunk) {
			continue
		}
		results = append(results, SearchResult{
			Chunk:       p.chunk,
			Distance:    1 - cosine(vector, p.vector),
			HasDistance: true,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Memory) Delete(_ context.Context, f Filter) (int, error) {
	if emptyFilter(f) {
		return 0, fmt.Errorf("refusing to delete with an empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, p := range s.points {
		if matches(f, p.chunk) {
			delete(s.points, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Memory) SetExpiry(_ context.Context, f Filter, expiresAt time.Time) error {
	if emptyFilter(f) {
		return fmt.Errorf("refusing to update payload with an empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if matches(f, p.chunk) {
			t := expiresAt
			p.chunk.ExpiresAt = &t
			s.points[id] = p
		}
	}
	return nil
}

func (s *Memory) SizeEstimate(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perPoint := int64(s.dimension*4 + perPointPayloadBytes)
	return int64(len(s.points)) * perPoint, nil
}

// Count reports how many chunks match the filter. Test helper.
func (s *Memory) Count(f Filter) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.points {
		if matches(f, p.chunk) {
			n++
		}
	}
	return n
}

func emptyFilter(f Filter) bool {
	return f.UserID == "" && f.SessionID == "" && f.Filename == "" &&
		f.Permanent == nil && f.ExpiredBefore.IsZero() && f.CreatedBefore.IsZero()
}

// matches mirrors the Qdrant filter translation.
func matches(f Filter, ch model.Chunk) bool {
	if f.UserID != "" && ch.UserID != f.UserID {
		return false
	}
	if f.Filename != "" && ch.Filename != f.Filename {
		return false
	}
	if f.SessionID != "" {
		if f.OrPermanent {
			if ch.SessionID != f.SessionID && !ch.Permanent {
				return false
			}
		} else if ch.SessionID != f.SessionID {
			return false
		}
	}
	if f.Permanent != nil && ch.Permanent != *f.Permanent {
		return false
	}
	if !f.ExpiredBefore.IsZero() {
		if ch.ExpiresAt == nil || !ch.ExpiresAt.Before(f.ExpiredBefore) {
			return false
		}
	}
	if !f.CreatedBefore.IsZero() && !ch.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

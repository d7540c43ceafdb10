package app

import (
	"context"
	"testing"
	"time"

	"documind/internal/session"
	"documind/internal/store"
)

func TestSweeperRunOnce_ReapsExpiredSessionsAndChunks(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	vectors := store.NewMemory()
	svc := NewSessionService(sessions, vectors, newFakeDocs(), time.Hour)

	dead, err := svc.Create(ctx, "u1", true)
	if err != nil {
		t.Fatal(err)
	}
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	if err := sessions.Save(ctx, dead); err != nil {
		t.Fatal(err)
	}
	seed(vectors, storedChunk("dead.txt", 1, "text", "u1", dead.ID, []float32{1}))

	// An orphan: its session record is already gone but its expiry passed.
	orphan := storedChunk("orphan.txt", 1, "text", "u2", "u2_gone0000", []float32{1})
	past := time.Now().Add(-time.Hour)
	orphan.ExpiresAt = &past
	seed(vectors, orphan)

	keeper := storedChunk("keep.txt", 1, "text", "u1", "", []float32{1})
	seed(vectors, keeper)

	w := NewSweeper(svc, vectors, time.Minute, 0, time.Hour)
	w.RunOnce(ctx)

	if got := vectors.Count(store.Filter{SessionID: dead.ID}); got != 0 {
		t.Error("expired session's chunks survived the sweep")
	}
	if got := vectors.Count(store.Filter{SessionID: "u2_gone0000"}); got != 0 {
		t.Error("orphaned expired chunks survived the sweep")
	}
	if got := vectors.Count(store.Filter{Filename: "keep.txt"}); got != 1 {
		t.Error("permanent chunk was swept")
	}
}

func TestSweeperRunOnce_EvictsOldChunksUnderPressure(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	vectors := store.NewMemory()
	if err := vectors.Init(ctx, 1); err != nil {
		t.Fatal(err)
	}
	svc := NewSessionService(sessions, vectors, newFakeDocs(), time.Hour)

	oldChunk := storedChunk("old.txt", 1, "text", "u1", "u1_aged0001", []float32{1})
	oldChunk.CreatedAt = time.Now().Add(-2 * time.Hour)
	future := time.Now().Add(time.Hour)
	oldChunk.ExpiresAt = &future

	freshChunk := storedChunk("fresh.txt", 1, "text", "u1", "u1_new00001", []float32{1})
	freshChunk.ExpiresAt = &future

	oldPermanent := storedChunk("perm.txt", 1, "text", "u1", "", []float32{1})
	oldPermanent.CreatedAt = time.Now().Add(-2 * time.Hour)

	seed(vectors, oldChunk, freshChunk, oldPermanent)

	// A one-byte cap guarantees the store reads as over pressure.
	w := NewSweeper(svc, vectors, time.Minute, 1, time.Hour)
	w.RunOnce(ctx)

	if got := vectors.Count(store.Filter{Filename: "old.txt"}); got != 0 {
		t.Error("aged session chunk should have been evicted")
	}
	if got := vectors.Count(store.Filter{Filename: "fresh.txt"}); got != 1 {
		t.Error("fresh chunk must survive a single eviction pass")
	}
	if got := vectors.Count(store.Filter{Filename: "perm.txt"}); got != 1 {
		t.Error("permanent chunks are never evicted for pressure")
	}
}

func TestSweeperRunOnce_NoPressureNoEviction(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	vectors := store.NewMemory()
	if err := vectors.Init(ctx, 1); err != nil {
		t.Fatal(err)
	}
	svc := NewSessionService(sessions, vectors, newFakeDocs(), time.Hour)

	aged := storedChunk("aged.txt", 1, "text", "u1", "u1_aged0002", []float32{1})
	aged.CreatedAt = time.Now().Add(-2 * time.Hour)
	future := time.Now().Add(time.Hour)
	aged.ExpiresAt = &future
	seed(vectors, aged)

	w := NewSweeper(svc, vectors, time.Minute, 1<<30, time.Hour)
	w.RunOnce(ctx)

	if got := vectors.Count(store.Filter{Filename: "aged.txt"}); got != 1 {
		t.Error("eviction ran without storage pressure")
	}
}

func TestSweeperStartClose(t *testing.T) {
	sessions := session.NewMemoryStore()
	vectors := store.NewMemory()
	svc := NewSessionService(sessions, vectors, newFakeDocs(), time.Hour)

	w := NewSweeper(svc, vectors, time.Minute, 0, time.Hour)
	w.Start(context.Background())
	w.Close()
}

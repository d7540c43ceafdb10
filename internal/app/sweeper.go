package app

import (
	"context"
	"log"
	"sync"
	"time"

	"documind/internal/store"
)

// Sweeper is the long-lived background task that prunes expired sessions,
// reaps expired chunks, and relieves storage pressure.
type Sweeper struct {
	sessions      *SessionService
	vectors       store.Store
	interval      time.Duration
	maxStoreBytes int64
	evictionAge   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(sessions *SessionService, vectors store.Store, interval time.Duration, maxStoreBytes int64, evictionAge time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if evictionAge <= 0 {
		evictionAge = time.Hour
	}
	return &Sweeper{
		sessions:      sessions,
		vectors:       vectors,
		interval:      interval,
		maxStoreBytes: maxStoreBytes,
		evictionAge:   evictionAge,
	}
}

func (w *Sweeper) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				w.RunOnce(sweepCtx)
			}
		}
	}()
}

func (w *Sweeper) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// RunOnce performs one full sweep pass: expired sessions first (cascading
// into the store), then orphaned expired chunks, then storage pressure.
func (w *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now()

	destroyed, err := w.sessions.SweepExpired(ctx, now)
	if err != nil {
		log.Printf("session sweep failed: %v", err)
	} else if destroyed > 0 {
		log.Printf("sweep: destroyed %d expired sessions", destroyed)
	}

	// Chunks whose session record is already gone still carry expires_at.
	reaped, err := w.vectors.Delete(ctx, store.Filter{ExpiredBefore: now})
	if err != nil {
		log.Printf("expired chunk sweep failed: %v", err)
	} else if reaped > 0 {
		log.Printf("sweep: reaped %d expired chunks", reaped)
	}

	if w.maxStoreBytes <= 0 {
		return
	}
	size, err := w.vectors.SizeEstimate(ctx)
	if err != nil {
		log.Printf("store size estimate failed: %v", err)
		return
	}
	if size <= w.maxStoreBytes {
		return
	}

	// Single eviction pass: old non-permanent chunks go, oldest first by
	// the age cutoff. One pass may not get under the threshold; the next
	// sweep takes another.
	permanent := false
	evicted, err := w.vectors.Delete(ctx, store.Filter{
		Permanent:     &permanent,
		CreatedBefore: now.Add(-w.evictionAge),
	})
	if err != nil {
		log.Printf("storage eviction failed: %v", err)
		return
	}
	after, _ := w.vectors.SizeEstimate(ctx)
	log.Printf("sweep: store at %d bytes exceeded %d, evicted %d chunks, now ~%d bytes", size, w.maxStoreBytes, evicted, after)
}

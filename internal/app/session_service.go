package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"documind/internal/model"
	"documind/internal/session"
	"documind/internal/store"
)

// DocumentRegistry is the slice of the document repository the RAG services
// need; keeping it an interface lets tests inject a fake.
type DocumentRegistry interface {
	Create(doc *model.Document) error
	GetByFileID(userID, fileID string) (*model.Document, error)
	ListByUserID(userID string) ([]model.Document, error)
	UpdateIngestState(fileID, status string, chunkCount, storedCount int, errMsg string) error
	DeleteByFilename(userID, filename string) (int64, error)
	DeleteBySessionID(sessionID string) error
}

// SessionService owns the private-session lifecycle: creation, sliding
// expiry, validation, and destruction cascading into the vector store.
type SessionService struct {
	sessions session.Store
	vectors  store.Store
	docs     DocumentRegistry
	ttl      time.Duration

	// serializes expiry read-modify-write so concurrent validations of the
	// same session cannot lose an extension
	mu sync.Mutex
}

func NewSessionService(sessions session.Store, vectors store.Store, docs DocumentRegistry, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionService{
		sessions: sessions,
		vectors:  vectors,
		docs:     docs,
		ttl:      ttl,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create opens a new private scope for the user. The id embeds the owner
// plus a random suffix.
func (s *SessionService) Create(ctx context.Context, userID string, private bool) (*session.Session, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	now := time.Now()
	sess := &session.Session{
		ID:        fmt.Sprintf("%s_%s", userID, uuid.NewString()[:8]),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Private:   private,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate checks existence, ownership and expiry. A successful check
// extends the sliding window on both the session record and its chunks.
// Detecting expiry destroys the session as a side effect and reports it
// invalid; no other failure mutates state.
func (s *SessionService) Validate(ctx context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrInvalidSession
		}
		return err
	}
	if sess.UserID != userID {
		return ErrInvalidSession
	}

	now := time.Now()
	if sess.Expired(now) {
		if err := s.destroy(ctx, sess.ID); err != nil {
			log.Printf("destroy expired session %s failed: %v", sess.ID, err)
		}
		return ErrInvalidSession
	}

	sess.ExpiresAt = now.Add(s.ttl)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}
	// Keep the chunks' expiry in step with the session, or the expiry
	// sweep would reap an active session's data mid-conversation.
	if err := s.vectors.SetExpiry(ctx, store.Filter{SessionID: sess.ID}, sess.ExpiresAt); err != nil {
		log.Printf("extend chunk expiry for session %s failed: %v", sess.ID, err)
	}
	return nil
}

// AttachFile records an uploaded file id on the session.
func (s *SessionService) AttachFile(ctx context.Context, sessionID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Files = append(sess.Files, fileID)
	return s.sessions.Save(ctx, sess)
}

// ListByUser returns the user's live sessions.
func (s *SessionService) ListByUser(ctx context.Context, userID string) ([]session.Session, error) {
	all, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	var own []session.Session
	for _, sess := range all {
		if sess.UserID == userID {
			own = append(own, sess)
		}
	}
	return own, nil
}

// Delete destroys a session on the owner's request.
func (s *SessionService) Delete(ctx context.Context, sessionID, userID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.UserID != userID {
		return ErrSessionNotFound
	}
	return s.destroy(ctx, sessionID)
}

// SweepExpired destroys every session past its deadline and reports how
// many were removed.
func (s *SessionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	all, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	destroyed := 0
	for _, sess := range all {
		if !sess.Expired(now) {
			continue
		}
		if err := s.destroy(ctx, sess.ID); err != nil {
			log.Printf("destroy expired session %s failed: %v", sess.ID, err)
			continue
		}
		destroyed++
	}
	return destroyed, nil
}

// destroy removes the session record and bulk-deletes every chunk and
// document row tagged with its id.
func (s *SessionService) destroy(ctx context.Context, sessionID string) error {
	deleted, err := s.vectors.Delete(ctx, store.Filter{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("delete session chunks failed: %w", err)
	}
	if deleted > 0 {
		log.Printf("session %s: removed %d chunks", sessionID, deleted)
	}
	if s.docs != nil {
		if err := s.docs.DeleteBySessionID(sessionID); err != nil {
			log.Printf("delete session documents for %s failed: %v", sessionID, err)
		}
	}
	return s.sessions.Delete(ctx, sessionID)
}

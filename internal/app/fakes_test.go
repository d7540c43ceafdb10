package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"documind/internal/model"
	"documind/internal/store"
)

// wordEmbedder is a deterministic bag-of-words embedder over a fixed
// vocabulary: texts sharing more vocabulary land closer together.
type wordEmbedder struct {
	vocab []string
}

func newWordEmbedder(vocab ...string) *wordEmbedder {
	return &wordEmbedder{vocab: vocab}
}

func (f *wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(f.vocab))
	lower := strings.ToLower(text)
	for i, word := range f.vocab {
		if strings.Contains(lower, word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (f *wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *wordEmbedder) Dimension() int {
	return len(f.vocab)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (failingEmbedder) Dimension() int { return 0 }

// fakeAnswerer records whether it was invoked and returns a canned answer
// or error.
type fakeAnswerer struct {
	mu     sync.Mutex
	calls  int
	answer string
	err    error
}

func (f *fakeAnswerer) Answer(_ context.Context, _ string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.answer, f.err
}

func (f *fakeAnswerer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDocs is an in-memory DocumentRegistry.
type fakeDocs struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]*model.Document{}}
}

func (f *fakeDocs) Create(doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.FileID] = &copied
	return nil
}

func (f *fakeDocs) GetByFileID(userID, fileID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[fileID]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocs) ListByUserID(userID string) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocs) UpdateIngestState(fileID, status string, chunkCount, storedCount int, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[fileID]
	if !ok {
		doc = &model.Document{FileID: fileID}
		f.docs[fileID] = doc
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.StoredCount = storedCount
	doc.Error = errMsg
	return nil
}

func (f *fakeDocs) DeleteByFilename(userID, filename string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, doc := range f.docs {
		if doc.UserID == userID && doc.Filename == filename {
			delete(f.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeDocs) DeleteBySessionID(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, doc := range f.docs {
		if doc.SessionID == sessionID {
			delete(f.docs, id)
		}
	}
	return nil
}

func (f *fakeDocs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func docRow(fileID, filename, userID, sessionID string) *model.Document {
	return &model.Document{
		FileID:    fileID,
		Filename:  filename,
		DocType:   model.DocTypeTXT,
		UserID:    userID,
		SessionID: sessionID,
		Permanent: sessionID == "",
		Status:    model.IngestStatusDone,
	}
}

func storedChunk(filename string, seq int, text, userID, sessionID string, vec []float32) model.Chunk {
	var expiresAt *time.Time
	if sessionID != "" {
		t := time.Now().Add(30 * time.Minute)
		expiresAt = &t
	}
	return model.Chunk{
		Filename:  filename,
		DocType:   model.DocTypeTXT,
		Page:      1,
		Sequence:  seq,
		Text:      text,
		Embedding: vec,
		UserID:    userID,
		SessionID: sessionID,
		Permanent: sessionID == "",
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
}

func seed(s store.Store, chunks ...model.Chunk) {
	s.Upsert(context.Background(), chunks)
}

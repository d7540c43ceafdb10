package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"documind/internal/chunker"
	"documind/internal/extract"
	"documind/internal/model"
	"documind/internal/store"
)

func writeTempTxt(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newIngestFixture(t *testing.T) (*IngestService, *store.Memory, *fakeDocs) {
	t.Helper()
	vectors := store.NewMemory()
	docs := newFakeDocs()
	svc := NewIngestService(
		extract.New(extract.NewOCR("")),
		chunker.New(200, 50),
		newWordEmbedder("retrieval", "generation", "models"),
		vectors,
		docs,
		2,
		30*time.Minute,
	)
	return svc, vectors, docs
}

func TestIngest_PermanentDocument(t *testing.T) {
	svc, vectors, docs := newIngestFixture(t)
	path := writeTempTxt(t, strings.Repeat("Notes on retrieval and generation models. ", 20))
	if err := docs.Create(docRow("f1", "notes.txt", "u1", "")); err != nil {
		t.Fatal(err)
	}

	task := model.IngestTask{
		FileID:   "f1",
		Path:     path,
		Filename: "notes.txt",
		DocType:  model.DocTypeTXT,
		UserID:   "u1",
	}
	result, err := svc.Ingest(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	if result.ChunkCount == 0 || result.Stored != result.ChunkCount {
		t.Fatalf("expected all chunks stored, got %+v", result)
	}

	permanent := true
	if got := vectors.Count(store.Filter{UserID: "u1", Permanent: &permanent}); got != result.Stored {
		t.Errorf("expected %d permanent chunks in the store, got %d", result.Stored, got)
	}

	doc, err := docs.GetByFileID("u1", "f1")
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil || doc.Status != model.IngestStatusDone {
		t.Errorf("expected done status, got %+v", doc)
	}
	if doc.ChunkCount != result.ChunkCount || doc.StoredCount != result.Stored {
		t.Errorf("document counts out of step: %+v vs %+v", doc, result)
	}
}

func TestIngest_SessionChunksCarryExpiry(t *testing.T) {
	svc, vectors, _ := newIngestFixture(t)
	path := writeTempTxt(t, "Private notes about retrieval.")

	task := model.IngestTask{
		FileID:    "f2",
		Path:      path,
		Filename:  "private.txt",
		DocType:   model.DocTypeTXT,
		UserID:    "u1",
		SessionID: "u1_abcd1234",
	}
	if _, err := svc.Ingest(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	results, err := vectors.Query(context.Background(), []float32{1, 0, 0}, store.Filter{SessionID: "u1_abcd1234"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected session chunks")
	}
	for _, r := range results {
		if r.Chunk.Permanent {
			t.Error("session chunk flagged permanent")
		}
		if r.Chunk.ExpiresAt == nil {
			t.Error("session chunk missing expiry")
		} else if !r.Chunk.ExpiresAt.After(time.Now()) {
			t.Error("session chunk expiry not in the future")
		}
	}
}

func TestIngest_EmptyFileCompletesWithZeroChunks(t *testing.T) {
	svc, vectors, docs := newIngestFixture(t)
	path := writeTempTxt(t, "   \n\t  ")
	if err := docs.Create(docRow("f3", "blank.txt", "u1", "")); err != nil {
		t.Fatal(err)
	}

	task := model.IngestTask{
		FileID:   "f3",
		Path:     path,
		Filename: "blank.txt",
		DocType:  model.DocTypeTXT,
		UserID:   "u1",
	}
	result, err := svc.Ingest(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	if result.ChunkCount != 0 || result.Stored != 0 {
		t.Errorf("expected zero chunks, got %+v", result)
	}
	if got := vectors.Count(store.Filter{UserID: "u1"}); got != 0 {
		t.Errorf("expected nothing stored, got %d", got)
	}
	doc, _ := docs.GetByFileID("u1", "f3")
	if doc == nil || doc.Status != model.IngestStatusDone {
		t.Errorf("a blank file still completes, got %+v", doc)
	}
}

func TestIngest_MissingFileCompletesWithZeroChunks(t *testing.T) {
	svc, _, docs := newIngestFixture(t)
	if err := docs.Create(docRow("f4", "ghost.txt", "u1", "")); err != nil {
		t.Fatal(err)
	}

	task := model.IngestTask{
		FileID:   "f4",
		Path:     "/does/not/exist.txt",
		Filename: "ghost.txt",
		DocType:  model.DocTypeTXT,
		UserID:   "u1",
	}
	result, err := svc.Ingest(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	if result.ChunkCount != 0 {
		t.Errorf("expected zero chunks for an unreadable file, got %+v", result)
	}
	doc, _ := docs.GetByFileID("u1", "f4")
	if doc == nil || doc.Status != model.IngestStatusDone {
		t.Errorf("extraction failure must degrade, not fail the task, got %+v", doc)
	}
}

func TestIngest_EmbeddingFailureMarksFailed(t *testing.T) {
	vectors := store.NewMemory()
	docs := newFakeDocs()
	svc := NewIngestService(
		extract.New(extract.NewOCR("")),
		chunker.New(200, 50),
		failingEmbedder{},
		vectors,
		docs,
		2,
		30*time.Minute,
	)
	path := writeTempTxt(t, "Some content that needs embedding.")
	if err := docs.Create(docRow("f5", "doomed.txt", "u1", "")); err != nil {
		t.Fatal(err)
	}

	task := model.IngestTask{
		FileID:   "f5",
		Path:     path,
		Filename: "doomed.txt",
		DocType:  model.DocTypeTXT,
		UserID:   "u1",
	}
	if _, err := svc.Ingest(context.Background(), task); err == nil {
		t.Fatal("expected the embedding failure to surface")
	}
	doc, _ := docs.GetByFileID("u1", "f5")
	if doc == nil || doc.Status != model.IngestStatusFailed {
		t.Errorf("expected failed status, got %+v", doc)
	}
	if got := vectors.Count(store.Filter{UserID: "u1"}); got != 0 {
		t.Errorf("no chunks may land after an embedding failure, got %d", got)
	}
}

func TestIngest_ReingestOverwrites(t *testing.T) {
	svc, vectors, _ := newIngestFixture(t)
	path := writeTempTxt(t, "Notes about retrieval.")

	task := model.IngestTask{
		FileID:   "f6",
		Path:     path,
		Filename: "notes.txt",
		DocType:  model.DocTypeTXT,
		UserID:   "u1",
	}
	if _, err := svc.Ingest(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	before := vectors.Count(store.Filter{Filename: "notes.txt"})

	task.FileID = "f7"
	if _, err := svc.Ingest(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	after := vectors.Count(store.Filter{Filename: "notes.txt"})

	if before != after {
		t.Errorf("re-ingest must overwrite by (filename, sequence): %d then %d", before, after)
	}
}

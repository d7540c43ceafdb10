package app

import (
	"context"
	"strings"
	"time"

	"documind/internal/ai"
	"documind/internal/chunker"
	"documind/internal/extract"
	"documind/internal/model"
	"documind/internal/store"
)

const defaultEmbedBatchSize = 32

// IngestService runs the ingestion pipeline for one uploaded file:
// extract → clean → chunk → embed → upsert. It is invoked from the
// background ingest worker, never from a request handler.
type IngestService struct {
	extractor  *extract.Extractor
	chunker    *chunker.Chunker
	embedder   ai.Embedder
	vectors    store.Store
	docs       DocumentRegistry
	batchSize  int
	sessionTTL time.Duration
}

func NewIngestService(
	extractor *extract.Extractor,
	chunk *chunker.Chunker,
	embedder ai.Embedder,
	vectors store.Store,
	docs DocumentRegistry,
	batchSize int,
	sessionTTL time.Duration,
) *IngestService {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &IngestService{
		extractor:  extractor,
		chunker:    chunk,
		embedder:   embedder,
		vectors:    vectors,
		docs:       docs,
		batchSize:  batchSize,
		sessionTTL: sessionTTL,
	}
}

// IngestResult is the structured outcome of one ingestion: how many chunks
// the document produced, how many landed in the store, and which writes
// failed. Store failures never abort the batch.
type IngestResult struct {
	ChunkCount int
	Stored     int
	Failures   []string
}

// Ingest processes the task's file end to end and records the task state
// on the document row. Extraction failures degrade to zero chunks rather
// than erroring; only embedding failures are terminal.
func (s *IngestService) Ingest(ctx context.Context, task model.IngestTask) (*IngestResult, error) {
	_ = s.docs.UpdateIngestState(task.FileID, model.IngestStatusProcessing, 0, 0, "")

	pages := s.extractor.Extract(ctx, task.Path, task.DocType)
	pages = extract.CleanPages(pages)
	chunks := s.chunker.ChunkPages(task.Filename, task.DocType, pages)
	if len(chunks) == 0 {
		_ = s.docs.UpdateIngestState(task.FileID, model.IngestStatusDone, 0, 0, "")
		return &IngestResult{}, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	var vectors [][]float32
	for i := 0; i < len(texts); i += s.batchSize {
		end := i + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			_ = s.docs.UpdateIngestState(task.FileID, model.IngestStatusFailed, len(chunks), 0, err.Error())
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	now := time.Now()
	var expiresAt *time.Time
	if task.SessionID != "" {
		t := now.Add(s.sessionTTL)
		expiresAt = &t
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].UserID = task.UserID
		chunks[i].SessionID = task.SessionID
		chunks[i].Permanent = task.SessionID == ""
		chunks[i].CreatedAt = now
		chunks[i].ExpiresAt = expiresAt
	}

	upserted := s.vectors.Upsert(ctx, chunks)

	status := model.IngestStatusDone
	errMsg := ""
	if upserted.Stored == 0 {
		status = model.IngestStatusFailed
		errMsg = "no chunks stored"
	} else if len(upserted.Failures) > 0 {
		errMsg = summarizeFailures(upserted.Failures)
	}
	_ = s.docs.UpdateIngestState(task.FileID, status, len(chunks), upserted.Stored, errMsg)

	return &IngestResult{
		ChunkCount: len(chunks),
		Stored:     upserted.Stored,
		Failures:   upserted.Failures,
	}, nil
}

func summarizeFailures(failures []string) string {
	const maxLen = 500
	joined := strings.Join(failures, "; ")
	if len(joined) > maxLen {
		joined = joined[:maxLen]
	}
	return joined
}

package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"documind/internal/ai"
	"documind/internal/store"
)

// NoInformationAnswer is the fixed sentinel returned when retrieval finds
// nothing eligible. It is produced without touching the answer service.
const NoInformationAnswer = "No relevant information found in your documents. Please try a different query or upload more documents."

// PublicSessionLabel marks sources that belong to the user's permanent
// document set rather than a private session.
const PublicSessionLabel = "public"

const (
	previewLimit      = 150
	defaultSimilarity = 0.8
)

// Source describes one retrieved chunk in a query response.
type Source struct {
	Filename        string  `json:"filename"`
	Page            int     `json:"page"`
	ChunkID         int     `json:"chunk_id"`
	ContentPreview  string  `json:"content_preview"`
	SimilarityScore float64 `json:"similarity_score"`
	SessionID       string  `json:"session_id"`
	Permanent       bool    `json:"permanent"`
}

type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// QueryService embeds a question, retrieves the eligible chunks for the
// caller's scope, ranks them, and synthesizes an answer.
type QueryService struct {
	embedder ai.Embedder
	vectors  store.Store
	answerer ai.Answerer
	sessions *SessionService
	topK     int
}

func NewQueryService(embedder ai.Embedder, vectors store.Store, answerer ai.Answerer, sessions *SessionService, topK int) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		embedder: embedder,
		vectors:  vectors,
		answerer: answerer,
		sessions: sessions,
		topK:     topK,
	}
}

// Query answers a question for the given user scope. Without a session id
// only the user's permanent chunks are eligible; with one, the eligible
// set is the union of permanent chunks and that exact session's chunks.
func (s *QueryService) Query(ctx context.Context, userID, sessionID, query string) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if userID == "" || query == "" {
		return nil, ErrInvalidInput
	}

	if sessionID != "" {
		if err := s.sessions.Validate(ctx, sessionID, userID); err != nil {
			return nil, err
		}
	}

	vector, err := s.embedder.Embed(ctx, expandQuery(query))
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	filter := store.Filter{UserID: userID}
	if sessionID != "" {
		filter.SessionID = sessionID
		filter.OrPermanent = true
	} else {
		permanent := true
		filter.Permanent = &permanent
	}

	results, err := s.vectors.Query(ctx, vector, filter, s.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(results) == 0 {
		return &QueryResult{Answer: NoInformationAnswer, Sources: []Source{}}, nil
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Filename:        r.Chunk.Filename,
			Page:            r.Chunk.Page,
			ChunkID:         r.Chunk.Sequence,
			ContentPreview:  preview(r.Chunk.Text),
			SimilarityScore: round3(similarity(r)),
			SessionID:       sessionLabel(r.Chunk.SessionID),
			Permanent:       r.Chunk.Permanent,
		}
	}
	// The store's distance order is not trusted as final.
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].SimilarityScore > sources[j].SimilarityScore
	})

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}

	answer := ""
	if s.answerer != nil {
		answer, err = s.answerer.Answer(ctx, query, texts)
		if err != nil {
			log.Printf("answer generation failed, using template answer: %v", err)
			answer = ""
		}
	}
	if answer == "" {
		answer = templateAnswer(query, texts)
	}

	return &QueryResult{Answer: answer, Sources: sources}, nil
}

// expandQuery widens terse acronym questions with related terms so the
// embedding lands nearer the relevant chunks.
func expandQuery(query string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "rag"):
		return query + " retrieval augmented generation systems models documents context"
	case strings.Contains(lower, "machine learning"), strings.Contains(lower, "ml"):
		return query + " machine learning AI artificial intelligence algorithms"
	case strings.Contains(lower, "artificial intelligence"), strings.Contains(lower, "ai"):
		return query + " artificial intelligence AI machine learning deep learning"
	}
	return query
}

// templateAnswer is the deterministic degradation used when no answer
// service is configured or it fails: the sources verbatim.
func templateAnswer(query string, chunks []string) string {
	var b strings.Builder
	b.WriteString("Based on your documents:\n\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[Source %d]: %s\n\n", i+1, chunk)
	}
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}

// similarity maps a vector distance to (0,1]: closer means higher.
func similarity(r store.SearchResult) float64 {
	if !r.HasDistance {
		return defaultSimilarity
	}
	return 1 / (1 + r.Distance)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}

func sessionLabel(sessionID string) string {
	if sessionID == "" {
		return PublicSessionLabel
	}
	return sessionID
}

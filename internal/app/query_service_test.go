package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"documind/internal/session"
	"documind/internal/store"
)

func newQueryFixture(t *testing.T) (*QueryService, *store.Memory, *SessionService, *fakeAnswerer) {
	t.Helper()
	vectors := store.NewMemory()
	sessions := NewSessionService(session.NewMemoryStore(), vectors, newFakeDocs(), 0)
	answerer := &fakeAnswerer{answer: "Generated answer."}
	embedder := newWordEmbedder("retrieval", "generation", "models", "cooking", "recipe")
	svc := NewQueryService(embedder, vectors, answerer, sessions, 5)
	return svc, vectors, sessions, answerer
}

func TestQuery_RejectsEmptyInput(t *testing.T) {
	svc, _, _, _ := newQueryFixture(t)
	if _, err := svc.Query(context.Background(), "", "", "what is rag"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty user, got %v", err)
	}
	if _, err := svc.Query(context.Background(), "u1", "", "  "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank question, got %v", err)
	}
}

func TestQuery_NoResultsReturnsSentinelWithoutAnswerer(t *testing.T) {
	svc, _, _, answerer := newQueryFixture(t)

	result, err := svc.Query(context.Background(), "u1", "", "what is RAG?")
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != NoInformationAnswer {
		t.Errorf("expected the no-information answer, got %q", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(result.Sources))
	}
	if answerer.callCount() != 0 {
		t.Error("the answer service must not run when retrieval is empty")
	}
}

func TestQuery_RetrievesRelevantChunk(t *testing.T) {
	svc, vectors, _, _ := newQueryFixture(t)
	seed(vectors,
		storedChunk("rag.txt", 1, "RAG combines retrieval with generation.", "u1", "", []float32{1, 1, 0, 0, 0}),
		storedChunk("food.txt", 1, "A recipe for cooking pasta.", "u1", "", []float32{0, 0, 0, 1, 1}),
	)

	result, err := svc.Query(context.Background(), "u1", "", "How does retrieval work with generation?")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Sources) == 0 {
		t.Fatal("expected sources")
	}
	if result.Sources[0].Filename != "rag.txt" {
		t.Errorf("expected rag.txt ranked first, got %s", result.Sources[0].Filename)
	}
	if result.Answer != "Generated answer." {
		t.Errorf("expected the generated answer, got %q", result.Answer)
	}
}

func TestQuery_SourceScoresAreMonotonic(t *testing.T) {
	svc, vectors, _, _ := newQueryFixture(t)
	seed(vectors,
		storedChunk("a.txt", 1, "retrieval and generation with models", "u1", "", []float32{1, 1, 1, 0, 0}),
		storedChunk("b.txt", 1, "retrieval only", "u1", "", []float32{1, 0, 0, 0, 0}),
		storedChunk("c.txt", 1, "cooking a recipe", "u1", "", []float32{0, 0, 0, 1, 1}),
	)

	result, err := svc.Query(context.Background(), "u1", "", "retrieval generation models")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(result.Sources); i++ {
		if result.Sources[i].SimilarityScore > result.Sources[i-1].SimilarityScore {
			t.Errorf("scores not descending at %d: %f > %f",
				i, result.Sources[i].SimilarityScore, result.Sources[i-1].SimilarityScore)
		}
	}
	for _, src := range result.Sources {
		if src.SimilarityScore <= 0 || src.SimilarityScore > 1 {
			t.Errorf("score out of range: %f", src.SimilarityScore)
		}
	}
}

func TestQuery_PermanentScopeExcludesSessionChunks(t *testing.T) {
	svc, vectors, _, _ := newQueryFixture(t)
	seed(vectors,
		storedChunk("perm.txt", 1, "retrieval basics", "u1", "", []float32{1, 0, 0, 0, 0}),
		storedChunk("priv.txt", 1, "retrieval secrets", "u1", "u1_aaaa1111", []float32{1, 0, 0, 0, 0}),
	)

	result, err := svc.Query(context.Background(), "u1", "", "retrieval")
	if err != nil {
		t.Fatal(err)
	}
	for _, src := range result.Sources {
		if src.Filename == "priv.txt" {
			t.Error("session chunk visible without a session id")
		}
	}
}

func TestQuery_SessionScopeSeesOwnAndPermanent(t *testing.T) {
	svc, vectors, sessions, _ := newQueryFixture(t)

	sess, err := sessions.Create(context.Background(), "u1", true)
	if err != nil {
		t.Fatal(err)
	}
	seed(vectors,
		storedChunk("perm.txt", 1, "retrieval basics", "u1", "", []float32{1, 0, 0, 0, 0}),
		storedChunk("mine.txt", 1, "retrieval secrets", "u1", sess.ID, []float32{1, 0, 0, 0, 0}),
		storedChunk("foreign.txt", 1, "retrieval elsewhere", "u1", "u1_ffff9999", []float32{1, 0, 0, 0, 0}),
	)

	result, err := svc.Query(context.Background(), "u1", sess.ID, "retrieval")
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, src := range result.Sources {
		got[src.Filename] = true
	}
	if !got["perm.txt"] || !got["mine.txt"] {
		t.Errorf("expected permanent and own session chunks, got %v", got)
	}
	if got["foreign.txt"] {
		t.Error("a different session's chunk leaked into the scope")
	}
}

func TestQuery_ForeignSessionRejected(t *testing.T) {
	svc, _, sessions, _ := newQueryFixture(t)

	sess, err := sessions.Create(context.Background(), "u1", true)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Query(context.Background(), "u2", sess.ID, "retrieval"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession for another user's session, got %v", err)
	}
}

func TestQuery_UnknownSessionRejected(t *testing.T) {
	svc, _, _, _ := newQueryFixture(t)
	if _, err := svc.Query(context.Background(), "u1", "u1_nope0000", "retrieval"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession, got %v", err)
	}
}

func TestQuery_AnswererFailureFallsBackToTemplate(t *testing.T) {
	svc, vectors, _, answerer := newQueryFixture(t)
	answerer.answer = ""
	answerer.err = errors.New("llm unavailable")
	seed(vectors,
		storedChunk("rag.txt", 1, "RAG combines retrieval with generation.", "u1", "", []float32{1, 1, 0, 0, 0}),
	)

	result, err := svc.Query(context.Background(), "u1", "", "retrieval generation")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.Answer, "Based on your documents:") {
		t.Errorf("expected the template answer, got %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "RAG combines retrieval with generation.") {
		t.Error("template answer should quote the retrieved chunk")
	}
}

func TestQuery_PublicSessionLabelOnPermanentSources(t *testing.T) {
	svc, vectors, _, _ := newQueryFixture(t)
	seed(vectors,
		storedChunk("perm.txt", 1, "retrieval basics", "u1", "", []float32{1, 0, 0, 0, 0}),
	)

	result, err := svc.Query(context.Background(), "u1", "", "retrieval")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(result.Sources))
	}
	if result.Sources[0].SessionID != PublicSessionLabel {
		t.Errorf("expected session label %q, got %q", PublicSessionLabel, result.Sources[0].SessionID)
	}
	if !result.Sources[0].Permanent {
		t.Error("permanent source not flagged as permanent")
	}
}

func TestQuery_LongChunkPreviewTruncated(t *testing.T) {
	svc, vectors, _, _ := newQueryFixture(t)
	long := "retrieval " + strings.Repeat("padding words here ", 20)
	seed(vectors, storedChunk("long.txt", 1, long, "u1", "", []float32{1, 0, 0, 0, 0}))

	result, err := svc.Query(context.Background(), "u1", "", "retrieval")
	if err != nil {
		t.Fatal(err)
	}
	preview := result.Sources[0].ContentPreview
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("expected a truncated preview, got %q", preview)
	}
	if n := len([]rune(preview)); n != 153 {
		t.Errorf("expected 150 runes plus ellipsis, got %d", n)
	}
}

func TestQuery_EmbedFailureSurfaces(t *testing.T) {
	vectors := store.NewMemory()
	sessions := NewSessionService(session.NewMemoryStore(), vectors, newFakeDocs(), 0)
	svc := NewQueryService(failingEmbedder{}, vectors, nil, sessions, 5)

	if _, err := svc.Query(context.Background(), "u1", "", "anything"); err == nil {
		t.Error("expected the embedding failure to surface")
	}
}

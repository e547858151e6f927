package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/docbase-dev/docbase/internal/excerpt"
	"github.com/docbase-dev/docbase/internal/kb"
)

type fakeEmbedder struct {
	vec  []float32
	fail error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.vec, nil
}

type fakeIndex struct {
	vectorHits  []kb.SearchHit
	keywordHits []kb.SearchHit
	vectorErr   error
	keywordErr  error

	vectorCalled  bool
	keywordCalled bool
}

func (f *fakeIndex) VectorSearch(_ context.Context, _ []float32, _ int, _ kb.Filters) ([]kb.SearchHit, error) {
	f.vectorCalled = true
	return f.vectorHits, f.vectorErr
}

func (f *fakeIndex) KeywordSearch(_ context.Context, _ string, _ int, _ kb.Filters) ([]kb.SearchHit, error) {
	f.keywordCalled = true
	return f.keywordHits, f.keywordErr
}

func (f *fakeIndex) Chunk(_ context.Context, id string) (kb.Chunk, error) {
	return kb.Chunk{ID: id, DocumentID: "doc-" + id, Text: "text of " + id}, nil
}

func (f *fakeIndex) Document(_ context.Context, id string) (kb.Document, error) {
	return kb.Document{ID: id, Title: "Title " + id, SourceRef: "https://example.com/" + id}, nil
}

func newRetriever(idx *fakeIndex, emb *fakeEmbedder) *Retriever {
	return New(idx, emb, excerpt.New(0), 0)
}

func vhit(chunkID string, score float64) kb.SearchHit {
	return kb.SearchHit{ChunkID: chunkID, DocumentID: "doc-" + chunkID, RawScore: score, Signal: kb.SignalVector}
}

func khit(chunkID string, score float64) kb.SearchHit {
	return kb.SearchHit{ChunkID: chunkID, DocumentID: "doc-" + chunkID, RawScore: score, Signal: kb.SignalKeyword}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r := newRetriever(&fakeIndex{}, &fakeEmbedder{vec: []float32{1}})
	if _, err := r.Retrieve(context.Background(), "   ", 5, kb.Filters{}); !errors.Is(err, kb.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	idx := &fakeIndex{}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Retrieve(context.Background(), "anything", 5, kb.Filters{})
	if err != nil {
		t.Fatalf("empty corpus must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty corpus", len(results))
	}
	if !idx.vectorCalled || !idx.keywordCalled {
		t.Error("both signals should have been queried")
	}
}

func TestRetrieve_DualSignalOutranksSolo(t *testing.T) {
	idx := &fakeIndex{
		vectorHits:  []kb.SearchHit{vhit("both", 0.8), vhit("vonly", 0.8)},
		keywordHits: []kb.SearchHit{khit("both", 6), khit("kother", 2)},
	}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Retrieve(context.Background(), "query", 10, kb.Filters{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ChunkID != "both" {
		t.Errorf("top result = %s, want the dual-signal chunk", results[0].ChunkID)
	}

	scores := make(map[string]float64)
	for _, res := range results {
		scores[res.ChunkID] = res.FusedScore
	}
	if scores["both"] <= scores["vonly"] {
		t.Errorf("dual-signal %f must outrank solo %f at equal raw score", scores["both"], scores["vonly"])
	}
}

func TestRetrieve_ScoresBounded(t *testing.T) {
	idx := &fakeIndex{
		vectorHits:  []kb.SearchHit{vhit("a", 1.0), vhit("b", 0.99)},
		keywordHits: []kb.SearchHit{khit("a", 250), khit("c", 0.001)},
	}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Retrieve(context.Background(), "query", 10, kb.Filters{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, res := range results {
		if res.FusedScore < 0 || res.FusedScore > 1 {
			t.Errorf("fused score %f out of [0,1]", res.FusedScore)
		}
	}
}

func TestRetrieve_DegradesToKeywordOnEmbedFailure(t *testing.T) {
	idx := &fakeIndex{
		keywordHits: []kb.SearchHit{khit("k1", 4), khit("k2", 2)},
	}
	r := newRetriever(idx, &fakeEmbedder{fail: fmt.Errorf("embed: %w", kb.ErrNotReady)})

	results, err := r.Retrieve(context.Background(), "query", 10, kb.Filters{})
	if err != nil {
		t.Fatalf("embed failure must degrade, not error: %v", err)
	}
	if idx.vectorCalled {
		t.Error("vector search ran without a query vector")
	}
	if len(results) != 2 {
		t.Fatalf("got %d keyword-only results, want 2", len(results))
	}
	if results[0].ChunkID != "k1" {
		t.Errorf("top result = %s, want k1", results[0].ChunkID)
	}
}

func TestRetrieve_DegradesOnSingleSignalError(t *testing.T) {
	idx := &fakeIndex{
		vectorHits: []kb.SearchHit{vhit("v1", 0.9)},
		keywordErr: errors.New("fts offline"),
	}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Retrieve(context.Background(), "query", 10, kb.Filters{})
	if err != nil {
		t.Fatalf("single signal failure must degrade: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "v1" {
		t.Errorf("results = %+v, want vector-only v1", results)
	}
}

func TestRetrieve_BothSignalsFailing(t *testing.T) {
	idx := &fakeIndex{
		vectorErr:  errors.New("vector down"),
		keywordErr: errors.New("keyword down"),
	}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	if _, err := r.Retrieve(context.Background(), "query", 10, kb.Filters{}); err == nil {
		t.Fatal("total signal failure must surface an error")
	}
}

func TestRetrieve_TruncatesToLimit(t *testing.T) {
	idx := &fakeIndex{}
	for i := 0; i < 20; i++ {
		idx.vectorHits = append(idx.vectorHits, vhit(fmt.Sprintf("c%02d", i), 1.0-float64(i)*0.01))
	}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Retrieve(context.Background(), "query", 5, kb.Filters{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("got %d results, want 5", len(results))
	}
}

func TestRetrieve_TieBrokenByVectorRank(t *testing.T) {
	idx := &fakeIndex{
		vectorHits: []kb.SearchHit{vhit("first", 0.5), vhit("second", 0.5)},
	}
	r := newRetriever(idx, &fakeEmbedder{vec: []float32{1}})

	for round := 0; round < 5; round++ {
		results, err := r.Retrieve(context.Background(), "query", 10, kb.Filters{})
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		if results[0].ChunkID != "first" || results[1].ChunkID != "second" {
			t.Fatalf("round %d: tie not broken by vector rank: %s, %s",
				round, results[0].ChunkID, results[1].ChunkID)
		}
	}
}

func TestFuse_MonotonicInEachSignal(t *testing.T) {
	base := fuseSingle(0.5, 4, t)
	higherVec := fuseSingle(0.8, 4, t)
	if higherVec <= base {
		t.Errorf("raising vector score did not raise fused score: %f vs %f", higherVec, base)
	}
}

// fuseSingle fuses one dual-signal chunk against a fixed keyword pool and
// returns its fused score.
func fuseSingle(vecScore, kwScore float64, t *testing.T) float64 {
	t.Helper()
	fused := fuse(
		[]kb.SearchHit{vhit("x", vecScore)},
		[]kb.SearchHit{khit("x", kwScore), khit("other", 1)},
	)
	for _, fc := range fused {
		if fc.chunkID == "x" {
			return fc.score
		}
	}
	t.Fatal("chunk x missing from fusion output")
	return 0
}

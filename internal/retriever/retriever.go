// Package retriever fuses the index's keyword and vector signals into one
// ranked result list. The fusion constants are deliberate design parameters:
// dual-signal hits must outrank equivalent single-signal hits, the fused
// score must be monotonic in each input signal, and it is always in [0,1].
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/docbase-dev/docbase/internal/excerpt"
	"github.com/docbase-dev/docbase/internal/kb"
)

// Fusion parameters. Tuning them is allowed; the ordering properties above
// are not negotiable.
const (
	// vectorWeight and keywordWeight combine the two normalized signals for
	// chunks both signals agree on.
	vectorWeight  = 0.7
	keywordWeight = 0.3

	// soloSignalPenalty discounts chunks only one signal found, reflecting
	// lower confidence in single-signal matches.
	soloSignalPenalty = 0.5

	// keywordNormDivisor is the fallback normalizer for keyword relevance
	// when the candidate pool is too flat for min-max scaling.
	keywordNormDivisor = 10.0

	// DefaultCandidatePoolSize is how many vector candidates fusion draws
	// from; it must stay >= any practical result limit.
	DefaultCandidatePoolSize = 100
)

// Embedder is the slice of the embedding service retrieval needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the slice of the index retrieval needs.
type Searcher interface {
	KeywordSearch(ctx context.Context, query string, limit int, filters kb.Filters) ([]kb.SearchHit, error)
	VectorSearch(ctx context.Context, queryVector []float32, poolSize int, filters kb.Filters) ([]kb.SearchHit, error)
	Chunk(ctx context.Context, id string) (kb.Chunk, error)
	Document(ctx context.Context, id string) (kb.Document, error)
}

// Retriever runs hybrid retrieval over an index.
type Retriever struct {
	index    Searcher
	embedder Embedder
	excerpts *excerpt.Builder
	poolSize int
}

// New creates a Retriever. poolSize <= 0 selects DefaultCandidatePoolSize.
func New(index Searcher, embedder Embedder, excerpts *excerpt.Builder, poolSize int) *Retriever {
	if poolSize <= 0 {
		poolSize = DefaultCandidatePoolSize
	}
	return &Retriever{
		index:    index,
		embedder: embedder,
		excerpts: excerpts,
		poolSize: poolSize,
	}
}

// Retrieve returns up to limit fused results for queryText, best first.
// Signal failures degrade: a failed embedding or a failed single signal
// narrows the search instead of erroring; only both signals failing
// surfaces an error. An empty corpus yields an empty list.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, limit int, filters kb.Filters) ([]kb.FusedResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("retrieve: %w: empty query", kb.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	queryVector, embedErr := r.embedder.Embed(ctx, queryText)
	if embedErr != nil {
		// Vector signal unavailable; keyword-only from here.
		log.Printf("retriever: vector signal unavailable: %v", embedErr)
	}

	// The two index queries have no ordering dependency; run them together
	// and fuse once both complete.
	var (
		wg          sync.WaitGroup
		vectorHits  []kb.SearchHit
		keywordHits []kb.SearchHit
		vectorErr   error
		keywordErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		keywordHits, keywordErr = r.index.KeywordSearch(ctx, queryText, limit*2, filters)
	}()

	if embedErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = r.index.VectorSearch(ctx, queryVector, r.poolSize, filters)
		}()
	}

	wg.Wait()

	if keywordErr != nil && (embedErr != nil || vectorErr != nil) {
		return nil, fmt.Errorf("retrieve: both signals failed: keyword: %v", errors.Join(keywordErr, vectorErr))
	}
	if keywordErr != nil {
		log.Printf("retriever: keyword signal failed, vector-only: %v", keywordErr)
		keywordHits = nil
	}
	if vectorErr != nil {
		log.Printf("retriever: vector signal failed, keyword-only: %v", vectorErr)
		vectorHits = nil
	}

	fused := fuse(vectorHits, keywordHits)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	return r.hydrate(ctx, queryText, fused)
}

// fusedChunk is fusion's intermediate accounting per unique chunk.
type fusedChunk struct {
	chunkID    string
	documentID string
	score      float64
	vectorRank int // rank within vectorHits, or -1
	highlights []string
}

// fuse normalizes each signal's raw scores into [0,1] and combines them per
// unique chunk. Ties are broken by original vector rank so results stay
// deterministic.
func fuse(vectorHits, keywordHits []kb.SearchHit) []fusedChunk {
	vectorScores := make(map[string]float64, len(vectorHits))
	vectorRanks := make(map[string]int, len(vectorHits))
	for rank, h := range vectorHits {
		vectorScores[h.ChunkID] = clamp01(h.RawScore)
		vectorRanks[h.ChunkID] = rank
	}

	keywordScores := normalizeKeywordScores(keywordHits)

	byChunk := make(map[string]*fusedChunk, len(vectorHits)+len(keywordHits))
	add := func(h kb.SearchHit) *fusedChunk {
		fc, ok := byChunk[h.ChunkID]
		if !ok {
			fc = &fusedChunk{chunkID: h.ChunkID, documentID: h.DocumentID, vectorRank: -1}
			byChunk[h.ChunkID] = fc
		}
		return fc
	}
	for _, h := range vectorHits {
		fc := add(h)
		fc.vectorRank = vectorRanks[h.ChunkID]
	}
	for _, h := range keywordHits {
		fc := add(h)
		fc.highlights = append(fc.highlights, h.Highlights...)
	}

	out := make([]fusedChunk, 0, len(byChunk))
	for id, fc := range byChunk {
		vs, hasVector := vectorScores[id]
		ks, hasKeyword := keywordScores[id]
		switch {
		case hasVector && hasKeyword:
			fc.score = vectorWeight*vs + keywordWeight*ks
		case hasVector:
			fc.score = soloSignalPenalty * vs
		default:
			fc.score = soloSignalPenalty * ks
		}
		fc.score = clamp01(fc.score)
		out = append(out, *fc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return lessByVectorRank(out[i], out[j])
	})

	return out
}

// lessByVectorRank orders tied chunks by their original vector-signal rank;
// chunks the vector signal never saw sort after those it did, then by id.
func lessByVectorRank(a, b fusedChunk) bool {
	switch {
	case a.vectorRank >= 0 && b.vectorRank >= 0:
		return a.vectorRank < b.vectorRank
	case a.vectorRank >= 0:
		return true
	case b.vectorRank >= 0:
		return false
	default:
		return a.chunkID < b.chunkID
	}
}

// normalizeKeywordScores maps raw lexical relevance into [0,1] by min-max
// scaling over the current candidate pool. Pools too flat to scale (one hit,
// or identical scores) fall back to dividing by keywordNormDivisor, which
// preserves monotonicity without inventing spread.
func normalizeKeywordScores(hits []kb.SearchHit) map[string]float64 {
	out := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return out
	}

	minScore, maxScore := hits[0].RawScore, hits[0].RawScore
	for _, h := range hits[1:] {
		if h.RawScore < minScore {
			minScore = h.RawScore
		}
		if h.RawScore > maxScore {
			maxScore = h.RawScore
		}
	}

	if maxScore > minScore {
		for _, h := range hits {
			out[h.ChunkID] = (h.RawScore - minScore) / (maxScore - minScore)
		}
		return out
	}

	for _, h := range hits {
		out[h.ChunkID] = clamp01(h.RawScore / keywordNormDivisor)
	}
	return out
}

// hydrate attaches chunk excerpts and document metadata to fused chunks.
// Chunks deleted since the signal queries ran are skipped.
func (r *Retriever) hydrate(ctx context.Context, query string, fused []fusedChunk) ([]kb.FusedResult, error) {
	results := make([]kb.FusedResult, 0, len(fused))
	docs := make(map[string]kb.Document)

	for _, fc := range fused {
		chunk, err := r.index.Chunk(ctx, fc.chunkID)
		if err != nil {
			continue
		}

		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = r.index.Document(ctx, chunk.DocumentID)
			if err != nil {
				continue
			}
			docs[chunk.DocumentID] = doc
		}

		results = append(results, kb.FusedResult{
			ChunkID:    fc.chunkID,
			FusedScore: fc.score,
			Excerpt:    r.excerpts.Build(chunk.Text, query, fc.highlights),
			Document:   doc,
		})
	}

	return results, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

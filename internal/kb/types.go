package kb

import "time"

// Document is the unit of ingestion. It is immutable once stored; the only
// way to change its content is a full re-ingestion under the same ID.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourceRef  string    `json:"source_ref"`
	Technology string    `json:"technology"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a bounded, independently retrievable span of a document's text.
// Vector is nil until embedding succeeds; a chunk without a vector
// participates in keyword search only.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Ordinal    int       `json:"ordinal"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector,omitempty"`
}

// SignalType identifies which retrieval signal produced a hit.
type SignalType string

const (
	SignalVector  SignalType = "vector"
	SignalKeyword SignalType = "keyword"
)

// SearchHit is a signal-specific result before fusion. RawScore is in the
// signal's native scale: cosine similarity for vector hits, weighted bm25
// relevance for keyword hits.
type SearchHit struct {
	ChunkID    string
	DocumentID string
	RawScore   float64
	Signal     SignalType
	Highlights []string
}

// FusedResult is the unit returned to search callers, unique per chunk.
// FusedScore is always in [0,1].
type FusedResult struct {
	ChunkID    string   `json:"chunk_id"`
	FusedScore float64  `json:"fused_score"`
	Excerpt    string   `json:"excerpt"`
	Document   Document `json:"document"`
}

// Citation points an answer back at a source document.
type Citation struct {
	Title        string  `json:"title"`
	SourceRef    string  `json:"source_ref"`
	RelevancePct float64 `json:"relevance_pct"`
}

// RAGAnswer is the result of answering a question against the knowledge base.
// Reasoning explains how the answer was produced, including whether it is a
// degraded fallback rather than genuine generator output.
type RAGAnswer struct {
	AnswerText string     `json:"answer"`
	Reasoning  string     `json:"reasoning"`
	Citations  []Citation `json:"citations"`
}

// IngestRequest is the input handed over by the extraction collaborator.
// DocumentID is optional; when empty a stable ID is derived from SourceRef
// so that re-ingesting the same source is idempotent.
type IngestRequest struct {
	DocumentID string            `json:"document_id,omitempty"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	SourceRef  string            `json:"source_ref"`
	Technology string            `json:"technology"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IngestResult reports what a single ingestion produced.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// Filters narrows non-RAG search results.
type Filters struct {
	Technology string `json:"technology,omitempty"`
}

package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docbase-dev/docbase/internal/chunker"
	"github.com/docbase-dev/docbase/internal/index"
	"github.com/docbase-dev/docbase/internal/kb"
)

// Embedder turns chunk text into a vector. Failures are survivable; the
// chunk lands without a vector and serves keyword search only.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service runs the ingestion pipeline: split content into chunks, embed
// each chunk, and replace the document in the index atomically.
type Service struct {
	index    *index.Index
	embedder Embedder
	opts     chunker.Options
}

func NewService(idx *index.Index, embedder Embedder, opts chunker.Options) *Service {
	return &Service{
		index:    idx,
		embedder: embedder,
		opts:     opts,
	}
}

// Ingest stores one document. Re-ingesting under the same ID (or the same
// SourceRef, when the caller leaves DocumentID empty) fully replaces the
// previous version rather than accumulating stale chunks.
func (s *Service) Ingest(ctx context.Context, req kb.IngestRequest) (kb.IngestResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return kb.IngestResult{}, fmt.Errorf("ingest: %w: empty content", kb.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Title) == "" {
		return kb.IngestResult{}, fmt.Errorf("ingest: %w: empty title", kb.ErrInvalidInput)
	}

	docID := documentID(req)
	doc := kb.Document{
		ID:         docID,
		Title:      req.Title,
		SourceRef:  req.SourceRef,
		Technology: req.Technology,
		CreatedAt:  time.Now().UTC(),
	}

	pieces := chunker.Split(req.Content, s.opts)
	if len(pieces) == 0 {
		return kb.IngestResult{}, fmt.Errorf("ingest: %w: content produced no chunks", kb.ErrInvalidInput)
	}

	chunks := make([]kb.Chunk, 0, len(pieces))
	embedFailures := 0
	for i, text := range pieces {
		chunk := kb.Chunk{
			ID:         fmt.Sprintf("%s:%d", docID, i),
			DocumentID: docID,
			Ordinal:    i,
			Text:       text,
		}

		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			embedFailures++
			if embedFailures == 1 {
				log.Printf("ingest: embedding failed for %s, chunk stored keyword-only: %v", docID, err)
			}
		} else {
			chunk.Vector = vec
		}
		chunks = append(chunks, chunk)
	}

	if err := s.index.ReplaceDocument(ctx, doc, chunks); err != nil {
		return kb.IngestResult{}, fmt.Errorf("ingest: %w", err)
	}

	return kb.IngestResult{
		DocumentID: docID,
		ChunkCount: len(chunks),
	}, nil
}

// Remove deletes a document and everything derived from it.
func (s *Service) Remove(ctx context.Context, docID string) error {
	if strings.TrimSpace(docID) == "" {
		return fmt.Errorf("ingest: %w: empty document id", kb.ErrInvalidInput)
	}
	return s.index.Delete(ctx, docID)
}

// documentID picks the caller's ID when given, otherwise derives a stable
// one from SourceRef so repeated ingestion of the same source replaces
// instead of duplicating.
func documentID(req kb.IngestRequest) string {
	if req.DocumentID != "" {
		return req.DocumentID
	}
	if ref := strings.TrimSpace(req.SourceRef); ref != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ref)).String()
	}
	return uuid.New().String()
}

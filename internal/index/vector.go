package index

import (
	"context"
	"fmt"

	"github.com/docbase-dev/docbase/internal/kb"
)

// VectorSearch returns the poolSize chunks whose vectors are most similar to
// queryVector, computed over all chunks that carry a vector. Chunks without
// a vector never appear here; they participate in keyword search only.
func (x *Index) VectorSearch(ctx context.Context, queryVector []float32, poolSize int, filters kb.Filters) ([]kb.SearchHit, error) {
	if len(queryVector) != x.dimension {
		return nil, fmt.Errorf("vector search: %w: got %d, index dimension is %d",
			kb.ErrDimensionMismatch, len(queryVector), x.dimension)
	}
	if poolSize <= 0 {
		poolSize = 100
	}

	count := x.col.Count()
	if count == 0 {
		return nil, nil
	}

	var where map[string]string
	if filters.Technology != "" {
		where = map[string]string{"technology": filters.Technology}
		// chromem rejects nResults above the filtered collection size.
		var n int
		err := x.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM chunks c JOIN documents d ON d.id = c.document_id
			WHERE c.vector IS NOT NULL AND d.technology = ?`, filters.Technology).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		count = n
		if count == 0 {
			return nil, nil
		}
	}
	if poolSize > count {
		poolSize = count
	}

	results, err := x.col.QueryEmbedding(ctx, queryVector, poolSize, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]kb.SearchHit, len(results))
	for i, r := range results {
		hits[i] = kb.SearchHit{
			ChunkID:    r.ID,
			DocumentID: r.Metadata["document_id"],
			RawScore:   float64(r.Similarity),
			Signal:     kb.SignalVector,
		}
	}
	return hits, nil
}

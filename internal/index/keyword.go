package index

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/docbase-dev/docbase/internal/kb"
)

// Field weights for lexical relevance. Title matches dominate, body matches
// carry the bulk, tag matches nudge.
const (
	titleWeight = 5.0
	bodyWeight  = 1.0
	tagWeight   = 0.5
)

// KeywordSearch runs a fielded full-text query over title, body and tag.
// Matching is fuzzy-tolerant through porter stemming and prefix expansion of
// each query term. RawScore is the weighted bm25 relevance (higher is
// better); Highlights carries the matched body snippet.
func (x *Index) KeywordSearch(ctx context.Context, query string, limit int, filters kb.Filters) ([]kb.SearchHit, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := `
		SELECT f.chunk_id, c.document_id,
		       -bm25(chunks_fts, ?, ?, ?) AS score,
		       snippet(chunks_fts, 1, '[', ']', '…', 12)
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?`
	args := []any{titleWeight, bodyWeight, tagWeight, match}

	if filters.Technology != "" {
		q += ` AND d.technology = ?`
		args = append(args, filters.Technology)
	}
	q += ` ORDER BY score DESC LIMIT ?`
	args = append(args, limit)

	var hits []kb.SearchHit
	err := withRetry(ctx, func() error {
		rows, err := x.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		hits = hits[:0]
		for rows.Next() {
			var hit kb.SearchHit
			var snippet string
			if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.RawScore, &snippet); err != nil {
				return err
			}
			hit.Signal = kb.SignalKeyword
			if snippet != "" {
				hit.Highlights = []string{snippet}
			}
			hits = append(hits, hit)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	return hits, nil
}

// buildMatchQuery turns free-form user text into an FTS5 MATCH expression:
// each alphanumeric term becomes a quoted prefix query, OR-joined so partial
// matches still rank.
func buildMatchQuery(query string) string {
	terms := tokenize(query)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = `"` + t + `"*`
	}
	return strings.Join(parts, " OR ")
}

func tokenize(s string) []string {
	var terms []string
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			terms = append(terms, strings.ToLower(sb.String()))
			sb.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return terms
}

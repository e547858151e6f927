// Package index persists chunks with both a lexical (FTS5) representation
// and a dense vector, and answers keyword and vector similarity queries
// independently. SQLite is the authoritative store; the in-memory chromem
// collection is rebuilt from it on open.
package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	_ "modernc.org/sqlite"

	"github.com/docbase-dev/docbase/internal/kb"
)

const collectionName = "chunks"

// Index stores documents and their chunks. Reads may run concurrently;
// writes to the same document are serialized, writes to different documents
// are not.
type Index struct {
	db        *sql.DB
	vdb       *chromem.DB
	col       *chromem.Collection
	dimension int

	mu       sync.Mutex
	docLocks map[string]*sync.Mutex
}

// Open creates or opens an index at the given path with a fixed vector
// dimension. Changing the dimension of an existing index requires deleting
// and re-creating it.
func Open(path string, dimension int) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	return bootstrap(db, dimension)
}

// OpenMemory creates an in-memory index (useful for testing).
func OpenMemory(dimension int) (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory index: %w", err)
	}
	// Every pooled connection would otherwise get its own empty :memory: DB.
	db.SetMaxOpenConns(1)
	return bootstrap(db, dimension)
}

func bootstrap(db *sql.DB, dimension int) (*Index, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running index migrations: %w", err)
	}

	vdb := chromem.NewDB()
	col, err := vdb.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vector collection: %w", err)
	}

	idx := &Index{
		db:        db,
		vdb:       vdb,
		col:       col,
		dimension: dimension,
		docLocks:  make(map[string]*sync.Mutex),
	}

	if err := idx.rebuildVectors(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    source_ref TEXT NOT NULL DEFAULT '',
    technology TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    ordinal INTEGER NOT NULL,
    text TEXT NOT NULL,
    vector BLOB,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, ordinal);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    title, body, tag, chunk_id UNINDEXED,
    tokenize='porter unicode61'
);
`

// rebuildVectors reloads the chromem collection from persisted chunk rows.
func (x *Index) rebuildVectors(ctx context.Context) error {
	rows, err := x.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.vector, d.technology
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.vector IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("loading persisted vectors: %w", err)
	}
	defer rows.Close()

	var docs []chromem.Document
	for rows.Next() {
		var id, docID, technology string
		var blob []byte
		if err := rows.Scan(&id, &docID, &blob, &technology); err != nil {
			return fmt.Errorf("scanning persisted vector: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", id, err)
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Embedding: vec,
			Metadata:  vectorMetadata(docID, technology),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating persisted vectors: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}
	if err := x.col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("rebuilding vector collection: %w", err)
	}
	return nil
}

// Dimension returns the fixed vector dimension of this index.
func (x *Index) Dimension() int { return x.dimension }

// Ready reports whether the index can serve queries.
func (x *Index) Ready(ctx context.Context) bool {
	return x.db.PingContext(ctx) == nil
}

// Close releases the underlying database.
func (x *Index) Close() error { return x.db.Close() }

// docLock returns the write lock for a document id, creating it on first use.
func (x *Index) docLock(docID string) *sync.Mutex {
	x.mu.Lock()
	defer x.mu.Unlock()
	l, ok := x.docLocks[docID]
	if !ok {
		l = &sync.Mutex{}
		x.docLocks[docID] = l
	}
	return l
}

// Upsert stores or overwrites a single chunk's lexical fields and vector.
// A vector of the wrong dimension fails with kb.ErrDimensionMismatch without
// touching the rest of the batch. The owning document row must exist (see
// ReplaceDocument for whole-document ingestion).
func (x *Index) Upsert(ctx context.Context, doc kb.Document, chunk kb.Chunk) error {
	lock := x.docLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()
	return x.upsertLocked(ctx, doc, chunk)
}

func (x *Index) upsertLocked(ctx context.Context, doc kb.Document, chunk kb.Chunk) error {
	if chunk.Vector != nil && len(chunk.Vector) != x.dimension {
		return fmt.Errorf("chunk %s: %w: got %d, index dimension is %d",
			chunk.ID, kb.ErrDimensionMismatch, len(chunk.Vector), x.dimension)
	}

	err := withRetry(ctx, func() error {
		tx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, source_ref, technology, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				source_ref = excluded.source_ref,
				technology = excluded.technology`,
			doc.ID, doc.Title, doc.SourceRef, doc.Technology, timestamp(doc.CreatedAt)); err != nil {
			return err
		}

		var blob []byte
		if chunk.Vector != nil {
			blob = encodeVector(chunk.Vector)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, ordinal, text, vector, updated_at)
			VALUES (?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(id) DO UPDATE SET
				document_id = excluded.document_id,
				ordinal = excluded.ordinal,
				text = excluded.text,
				vector = excluded.vector,
				updated_at = excluded.updated_at`,
			chunk.ID, chunk.DocumentID, chunk.Ordinal, chunk.Text, blob); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunks_fts WHERE chunk_id = ?`, chunk.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks_fts (title, body, tag, chunk_id) VALUES (?, ?, ?, ?)`,
			doc.Title, chunk.Text, doc.Technology, chunk.ID); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
	}

	if chunk.Vector != nil {
		if err := x.col.AddDocuments(ctx, []chromem.Document{{
			ID:        chunk.ID,
			Embedding: chunk.Vector,
			Metadata:  vectorMetadata(doc.ID, doc.Technology),
		}}, 1); err != nil {
			return fmt.Errorf("upsert chunk %s vector: %w", chunk.ID, err)
		}
	}

	return nil
}

// ReplaceDocument atomically replaces a document's chunk set. Re-ingesting
// the same content yields the identical final state. Chunks whose vector has
// the wrong dimension are rejected individually; the rest of the batch
// proceeds. The per-chunk errors are returned joined.
func (x *Index) ReplaceDocument(ctx context.Context, doc kb.Document, chunks []kb.Chunk) error {
	lock := x.docLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := x.deleteLocked(ctx, doc.ID); err != nil {
		return err
	}

	err := withRetry(ctx, func() error {
		_, err := x.db.ExecContext(ctx, `
			INSERT INTO documents (id, title, source_ref, technology, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				source_ref = excluded.source_ref,
				technology = excluded.technology`,
			doc.ID, doc.Title, doc.SourceRef, doc.Technology, timestamp(doc.CreatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("storing document %s: %w", doc.ID, err)
	}

	var rejected []string
	for _, chunk := range chunks {
		if err := x.upsertLocked(ctx, doc, chunk); err != nil {
			if errors.Is(err, kb.ErrDimensionMismatch) {
				rejected = append(rejected, err.Error())
				continue
			}
			return err
		}
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %s", kb.ErrDimensionMismatch, strings.Join(rejected, "; "))
	}
	return nil
}

// Delete removes a document and all its chunks from both indexes.
func (x *Index) Delete(ctx context.Context, docID string) error {
	lock := x.docLock(docID)
	lock.Lock()
	defer lock.Unlock()

	if err := x.deleteLocked(ctx, docID); err != nil {
		return err
	}

	err := withRetry(ctx, func() error {
		_, err := x.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// deleteLocked removes a document's chunks while leaving the document row to
// be replaced or removed by the caller. The caller holds the document lock.
func (x *Index) deleteLocked(ctx context.Context, docID string) error {
	err := withRetry(ctx, func() error {
		tx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chunks_fts WHERE chunk_id IN
				(SELECT id FROM chunks WHERE document_id = ?)`, docID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunks WHERE document_id = ?`, docID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("delete chunks of %s: %w", docID, err)
	}

	if x.col.Count() > 0 {
		if err := x.col.Delete(ctx, map[string]string{"document_id": docID}, nil); err != nil {
			return fmt.Errorf("delete vectors of %s: %w", docID, err)
		}
	}
	return nil
}

// Documents lists all documents in the index.
func (x *Index) Documents(ctx context.Context) ([]kb.Document, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT id, title, source_ref, technology, created_at
		FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []kb.Document
	for rows.Next() {
		var d kb.Document
		var created string
		if err := rows.Scan(&d.ID, &d.Title, &d.SourceRef, &d.Technology, &created); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Document fetches a single document by id.
func (x *Index) Document(ctx context.Context, id string) (kb.Document, error) {
	var d kb.Document
	var created string
	err := x.db.QueryRowContext(ctx, `
		SELECT id, title, source_ref, technology, created_at
		FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.SourceRef, &d.Technology, &created)
	if err != nil {
		return kb.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	d.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
	return d, nil
}

// Chunk fetches a single chunk by id, including its persisted vector.
func (x *Index) Chunk(ctx context.Context, id string) (kb.Chunk, error) {
	var c kb.Chunk
	var blob []byte
	err := x.db.QueryRowContext(ctx, `
		SELECT id, document_id, ordinal, text, vector FROM chunks WHERE id = ?`, id).
		Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &blob)
	if err != nil {
		return kb.Chunk{}, fmt.Errorf("chunk %s: %w", id, err)
	}
	if blob != nil {
		c.Vector, err = decodeVector(blob)
		if err != nil {
			return kb.Chunk{}, fmt.Errorf("chunk %s: %w", id, err)
		}
	}
	return c, nil
}

// Chunks lists a document's chunks in ordinal order.
func (x *Index) Chunks(ctx context.Context, docID string) ([]kb.Chunk, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT id, document_id, ordinal, text FROM chunks
		WHERE document_id = ? ORDER BY ordinal`, docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks of %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []kb.Chunk
	for rows.Next() {
		var c kb.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ChunkCount returns the number of stored chunks.
func (x *Index) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func vectorMetadata(docID, technology string) map[string]string {
	md := map[string]string{"document_id": docID}
	if technology != "" {
		md["technology"] = technology
	}
	return md
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// encodeVector serializes a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

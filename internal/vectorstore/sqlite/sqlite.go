// Package sqlite provides a durable vector index backed by an embedded
// SQLite database. Similarity is computed brute-force in Go over the
// stored embeddings; SQLite provides durability and the transactional
// write boundary.
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"docchat/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id          TEXT PRIMARY KEY,
    file_id     TEXT NOT NULL,
    file_name   TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    content     TEXT NOT NULL,
    embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_file_id ON chunks(file_id);
`

// Index is a SQLite-backed implementation of domain.Index. Writes run in
// a single transaction, which is the mutual-exclusion boundary; reads go
// through the driver's own serialization.
type Index struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral index.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// The modernc driver does not support concurrent writers on one
	// connection pool; a single connection keeps writes serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database handle.
func (x *Index) Close() error {
	return x.db.Close()
}

// Add inserts all chunks in one transaction, or none.
func (x *Index) Add(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrIndexWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO chunks(id, file_id, file_name, chunk_index, content, embedding) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrIndexWrite, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: empty chunk id", domain.ErrIndexWrite)
		}
		var existing string
		err := tx.QueryRow(`SELECT file_name FROM chunks WHERE file_id = ? LIMIT 1`, c.FileID).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return fmt.Errorf("%w: file lookup: %v", domain.ErrIndexWrite, err)
		case existing != c.FileName:
			return fmt.Errorf("%w: %s has %q, chunk carries %q",
				domain.ErrFileNameMismatch, c.FileID, existing, c.FileName)
		}
		if _, err := stmt.Exec(c.ID, c.FileID, c.FileName, c.Index, c.Text, encodeEmbedding(c.Embedding)); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateChunk, c.ID)
			}
			return fmt.Errorf("%w: insert %s: %v", domain.ErrIndexWrite, c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Query loads all stored embeddings and ranks them by cosine similarity.
// Ties keep insertion (rowid) order.
func (x *Index) Query(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	rows, err := x.db.Query(`SELECT id, file_id, file_name, chunk_index, content, embedding FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.FileName, &c.Index, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		results = append(results, domain.SearchResult{Chunk: c, Score: cosine(c.Embedding, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// ListFiles derives distinct files from chunk rows, in first-insertion
// order.
func (x *Index) ListFiles() ([]domain.FileInfo, error) {
	rows, err := x.db.Query(`SELECT file_id, file_name, COUNT(*) FROM chunks GROUP BY file_id, file_name ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []domain.FileInfo
	for rows.Next() {
		var f domain.FileInfo
		if err := rows.Scan(&f.FileID, &f.FileName, &f.Chunks); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteByFile removes all chunks of one file and reports the count.
func (x *Index) DeleteByFile(fileID string) (int, error) {
	res, err := x.db.Exec(`DELETE FROM chunks WHERE file_id = ?`, fileID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete file %s: %v", domain.ErrIndexWrite, fileID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", domain.ErrIndexWrite, err)
	}
	return int(n), nil
}

// Reset discards all chunks.
func (x *Index) Reset() error {
	if _, err := x.db.Exec(`DELETE FROM chunks`); err != nil {
		return fmt.Errorf("%w: reset: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

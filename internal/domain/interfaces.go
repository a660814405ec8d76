package domain

import (
	"context"
	"time"
)

// Chunk is a bounded span of source-document text together with its
// embedding vector and provenance metadata. Chunks are immutable once
// stored in an Index.
type Chunk struct {
	ID        string
	FileID    string
	FileName  string
	Index     int
	Text      string
	Embedding []float64
}

// SearchResult represents a matching chunk with a similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// FileInfo describes one ingested file, derived from chunk metadata.
type FileInfo struct {
	FileID   string
	FileName string
	Chunks   int
}

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation log.
type Turn struct {
	Sequence  uint64
	Role      Role
	Message   string
	CreatedAt time.Time
}

// IngestResult reports the outcome of a successful file ingestion.
type IngestResult struct {
	FileID      string
	FileName    string
	TotalChunks int
}

// QueryResult pairs a query with the generated answer.
type QueryResult struct {
	Query  string
	Answer string
}

// TextExtractor turns uploaded file bytes into plain text.
type TextExtractor interface {
	Extract(data []byte, contentType, fileName string) (string, error)
}

// EmbeddingProvider performs a single batch embedding call against an
// external service. One vector is returned per input text, in order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// GenerationProvider produces an answer for a query conditioned on
// retrieved context passages. It must handle empty context gracefully.
type GenerationProvider interface {
	Answer(ctx context.Context, query string, contexts []string) (string, error)
}

// Index stores chunk vectors and supports similarity search.
// Writers (Add, DeleteByFile, Reset) are mutually exclusive with readers.
type Index interface {
	// Add inserts all chunks or none. Chunk IDs must be unique.
	Add(chunks []Chunk) error
	// Query returns up to topK chunks ranked by descending cosine
	// similarity. An empty index yields an empty result.
	Query(vector []float64, topK int) ([]SearchResult, error)
	// ListFiles returns the distinct files present in the index.
	ListFiles() ([]FileInfo, error)
	// DeleteByFile removes all chunks of one file and reports the count.
	DeleteByFile(fileID string) (int, error)
	// Reset discards all chunks and frees the ID namespace.
	Reset() error
}

// DefaultRetention is how long a conversation turn stays visible.
const DefaultRetention = 10 * time.Hour

// Log is an append-only, time-ordered store of conversation turns.
// Expired turns are never returned.
type Log interface {
	Append(message string, role Role) (Turn, error)
	History() ([]Turn, error)
	Reset() error
}

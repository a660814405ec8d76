package domain

import (
	"errors"
	"fmt"
)

// Core error kinds. Lower-level failures are wrapped with stage context
// via fmt.Errorf("...: %w", ...) so callers can match with errors.Is.
var (
	// ErrUnsupportedFormat indicates the uploaded content type cannot be
	// extracted.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtraction indicates text extraction from an upload failed.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbeddingProvider indicates the embedding service call failed or
	// returned a malformed payload.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrGenerationProvider indicates the answer generation call failed.
	ErrGenerationProvider = errors.New("generation provider failed")

	// ErrIngestion indicates a stage of the ingestion pipeline failed.
	// The failing stage's error is wrapped alongside.
	ErrIngestion = errors.New("ingestion failed")

	// ErrIndexWrite indicates the vector index rejected a write.
	ErrIndexWrite = errors.New("index write failed")

	// ErrDuplicateChunk indicates a chunk ID already exists in the index.
	ErrDuplicateChunk = fmt.Errorf("%w: duplicate chunk id", ErrIndexWrite)

	// ErrFileNameMismatch indicates two chunks carry the same file ID but
	// different file names.
	ErrFileNameMismatch = fmt.Errorf("%w: file name mismatch for file id", ErrIndexWrite)

	// ErrSessionReset indicates a session reset completed only partially;
	// the caller should retry.
	ErrSessionReset = errors.New("session reset incomplete")
)

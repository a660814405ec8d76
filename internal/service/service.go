// Package service coordinates the retrieval pipeline: ingestion, query
// answering, and session lifecycle.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docchat/internal/chunker"
	"docchat/internal/domain"
)

// Defaults for orchestrator policy.
const (
	DefaultTopK            = 5
	DefaultProviderRetries = 2
	DefaultRetryBackoff    = 500 * time.Millisecond
)

// Config assembles a Service from its collaborators.
type Config struct {
	Extractor domain.TextExtractor
	Embedder  domain.EmbeddingProvider // typically the batching embedding.Client
	Generator domain.GenerationProvider
	Index     domain.Index
	Log       domain.Log
	Splitter  *chunker.RecursiveSplitter

	// ProviderRetries is the number of attempts for embedding and
	// generation calls. Backoff is the delay between attempts.
	ProviderRetries int
	RetryBackoff    time.Duration
}

// Service is the retrieval orchestrator. It owns no locks itself: the
// index and log guard their own state, and provider calls never run
// under those guards.
type Service struct {
	extractor domain.TextExtractor
	embedder  domain.EmbeddingProvider
	generator domain.GenerationProvider
	index     domain.Index
	log       domain.Log
	splitter  *chunker.RecursiveSplitter
	retries   int
	backoff   time.Duration
}

// New creates a Service from the config, applying policy defaults.
func New(cfg Config) *Service {
	s := &Service{
		extractor: cfg.Extractor,
		embedder:  cfg.Embedder,
		generator: cfg.Generator,
		index:     cfg.Index,
		log:       cfg.Log,
		splitter:  cfg.Splitter,
		retries:   cfg.ProviderRetries,
		backoff:   cfg.RetryBackoff,
	}
	if s.splitter == nil {
		s.splitter = chunker.NewRecursiveSplitter(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	}
	if s.retries <= 0 {
		s.retries = DefaultProviderRetries
	}
	if s.backoff <= 0 {
		s.backoff = DefaultRetryBackoff
	}
	return s
}

// Ingest extracts, chunks, embeds, and indexes one uploaded file. Either
// every chunk of the file is added or none is.
func (s *Service) Ingest(ctx context.Context, data []byte, fileName, contentType string) (domain.IngestResult, error) {
	text, err := s.extractor.Extract(data, contentType, fileName)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("%w: extract %q: %w", domain.ErrIngestion, fileName, err)
	}
	texts := s.splitter.Split(text)
	fileID := uuid.NewString()
	if len(texts) == 0 {
		return domain.IngestResult{FileID: fileID, FileName: fileName}, nil
	}

	var vectors [][]float64
	err = s.withRetry(ctx, func() error {
		var embedErr error
		vectors, embedErr = s.embedder.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("%w: embed %q: %w", domain.ErrIngestion, fileName, err)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i := range texts {
		chunks[i] = domain.Chunk{
			ID:        uuid.NewString(),
			FileID:    fileID,
			FileName:  fileName,
			Index:     i,
			Text:      texts[i],
			Embedding: vectors[i],
		}
	}
	if err := s.index.Add(chunks); err != nil {
		return domain.IngestResult{}, fmt.Errorf("%w: index %q: %w", domain.ErrIngestion, fileName, err)
	}
	return domain.IngestResult{FileID: fileID, FileName: fileName, TotalChunks: len(chunks)}, nil
}

// Query answers a question from the indexed documents and records both
// turns in the conversation log. An empty index still reaches the
// generation provider with empty context.
func (s *Service) Query(ctx context.Context, query string, topK int) (domain.QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	var vectors [][]float64
	err := s.withRetry(ctx, func() error {
		var embedErr error
		vectors, embedErr = s.embedder.Embed(ctx, []string{query})
		return embedErr
	})
	if err != nil {
		return domain.QueryResult{}, err
	}

	results, err := s.index.Query(vectors[0], topK)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("search index: %w", err)
	}
	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Chunk.Text
	}

	var answer string
	err = s.withRetry(ctx, func() error {
		var genErr error
		answer, genErr = s.generator.Answer(ctx, query, contexts)
		return genErr
	})
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("%w: %v", domain.ErrGenerationProvider, err)
	}

	if _, err := s.log.Append(query, domain.RoleUser); err != nil {
		return domain.QueryResult{}, fmt.Errorf("record query: %w", err)
	}
	if _, err := s.log.Append(answer, domain.RoleAssistant); err != nil {
		return domain.QueryResult{}, fmt.Errorf("record answer: %w", err)
	}
	return domain.QueryResult{Query: query, Answer: answer}, nil
}

// NewSession resets the conversation log and the vector index. Both
// resets must succeed; a partial reset is reported for the caller to
// retry.
func (s *Service) NewSession() error {
	logErr := s.log.Reset()
	indexErr := s.index.Reset()
	if logErr != nil || indexErr != nil {
		return fmt.Errorf("%w: log=%v index=%v", domain.ErrSessionReset, logErr, indexErr)
	}
	return nil
}

// ListFiles returns the files currently in the index.
func (s *Service) ListFiles() ([]domain.FileInfo, error) {
	return s.index.ListFiles()
}

// DeleteFile removes all chunks of one file and reports the count.
func (s *Service) DeleteFile(fileID string) (int, error) {
	return s.index.DeleteByFile(fileID)
}

// History returns the non-expired conversation turns in order.
func (s *Service) History() ([]domain.Turn, error) {
	return s.log.History()
}

// withRetry runs fn up to s.retries times, sleeping s.backoff between
// attempts. Context cancellation stops further attempts.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(s.backoff):
		}
	}
	return err
}

// Package memory provides an in-memory vector index using brute-force
// cosine similarity.
package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"docchat/internal/domain"
)

// fileEntry is the secondary index for one ingested file, maintained
// under the write lock alongside chunk inserts and deletes.
type fileEntry struct {
	name   string
	chunks int
}

// Index is an in-memory implementation of domain.Index. Readers may run
// concurrently; writers are exclusive.
type Index struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
	ids    map[string]struct{}
	files  map[string]*fileEntry
	order  []string // file IDs in first-insertion order
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		ids:   make(map[string]struct{}),
		files: make(map[string]*fileEntry),
	}
}

// Add inserts all chunks or none. Duplicate chunk IDs and divergent file
// names for one file ID are rejected.
func (x *Index) Add(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: empty chunk id", domain.ErrIndexWrite)
		}
		if _, ok := x.ids[c.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateChunk, c.ID)
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateChunk, c.ID)
		}
		seen[c.ID] = struct{}{}
		if entry, ok := x.files[c.FileID]; ok && entry.name != c.FileName {
			return fmt.Errorf("%w: %s has %q, chunk carries %q",
				domain.ErrFileNameMismatch, c.FileID, entry.name, c.FileName)
		}
	}
	// Within-batch file name consistency.
	batchNames := make(map[string]string, 1)
	for _, c := range chunks {
		if name, ok := batchNames[c.FileID]; ok && name != c.FileName {
			return fmt.Errorf("%w: %s has %q, chunk carries %q",
				domain.ErrFileNameMismatch, c.FileID, name, c.FileName)
		}
		batchNames[c.FileID] = c.FileName
	}

	for _, c := range chunks {
		x.ids[c.ID] = struct{}{}
		x.chunks = append(x.chunks, c)
		entry, ok := x.files[c.FileID]
		if !ok {
			entry = &fileEntry{name: c.FileName}
			x.files[c.FileID] = entry
			x.order = append(x.order, c.FileID)
		}
		entry.chunks++
	}
	return nil
}

// Query returns up to topK chunks ranked by descending cosine similarity.
// Ties keep insertion order, so equal inputs rank deterministically.
func (x *Index) Query(vector []float64, topK int) ([]domain.SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if topK <= 0 || len(x.chunks) == 0 {
		return nil, nil
	}
	idxs := make([]int, len(x.chunks))
	scores := make([]float64, len(x.chunks))
	for i := range x.chunks {
		idxs[i] = i
		scores[i] = cosine(x.chunks[i].Embedding, vector)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, i := range idxs[:topK] {
		results = append(results, domain.SearchResult{Chunk: x.chunks[i], Score: scores[i]})
	}
	return results, nil
}

// ListFiles returns distinct files in first-insertion order.
func (x *Index) ListFiles() ([]domain.FileInfo, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]domain.FileInfo, 0, len(x.order))
	for _, id := range x.order {
		entry := x.files[id]
		out = append(out, domain.FileInfo{FileID: id, FileName: entry.name, Chunks: entry.chunks})
	}
	return out, nil
}

// DeleteByFile removes all chunks of one file. A missing file ID deletes
// nothing and is not an error.
func (x *Index) DeleteByFile(fileID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.files[fileID]; !ok {
		return 0, nil
	}
	kept := x.chunks[:0]
	deleted := 0
	for _, c := range x.chunks {
		if c.FileID == fileID {
			delete(x.ids, c.ID)
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	x.chunks = kept
	delete(x.files, fileID)
	for i, id := range x.order {
		if id == fileID {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return deleted, nil
}

// Reset discards all chunks and frees the ID namespace.
func (x *Index) Reset() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks = nil
	x.ids = make(map[string]struct{})
	x.files = make(map[string]*fileEntry)
	x.order = nil
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

package chunker

import "strings"

// Default window parameters, in bytes.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators is the split hierarchy: paragraph breaks first, then line
// breaks, then word boundaries. Pieces still too long after the last
// separator are cut at fixed offsets.
var separators = []string{"\n\n", "\n", " "}

// RecursiveSplitter splits text into chunks of at most chunkSize bytes,
// preferring the largest separator that yields pieces within the limit.
// Consecutive chunks share roughly overlap bytes of trailing context.
// No text is dropped: concatenating the chunks, minus the duplicated
// overlap regions, reproduces the input.
type RecursiveSplitter struct {
	chunkSize int
	overlap   int
}

// NewRecursiveSplitter creates a splitter with the given window size and
// overlap. Non-positive size and negative overlap fall back to defaults;
// an overlap at or above the chunk size is clamped to a quarter of it.
func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &RecursiveSplitter{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into overlapping chunks. Empty input yields nil.
func (s *RecursiveSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.merge(s.pieces(text, 0))
}

// pieces recursively breaks text into fragments no longer than chunkSize,
// keeping separators attached so rejoining is lossless.
func (s *RecursiveSplitter) pieces(text string, depth int) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if depth >= len(separators) {
		return s.hardCut(text)
	}
	parts := strings.SplitAfter(text, separators[depth])
	if len(parts) == 1 {
		return s.pieces(text, depth+1)
	}
	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if len(p) <= s.chunkSize {
			out = append(out, p)
		} else {
			out = append(out, s.pieces(p, depth+1)...)
		}
	}
	return out
}

// hardCut slices separator-free text into fragments small enough for the
// merge step to build overlapping windows from.
func (s *RecursiveSplitter) hardCut(text string) []string {
	step := s.overlap
	if step <= 0 {
		step = s.chunkSize
	}
	var out []string
	for len(text) > step {
		out = append(out, text[:step])
		text = text[step:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// merge greedily packs pieces into chunks of at most chunkSize bytes.
// When a chunk is emitted, the shortest trailing run of pieces covering
// at least overlap bytes is carried into the next chunk.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var chunks []string
	var cur []string
	total := 0
	for _, p := range pieces {
		if total > 0 && total+len(p) > s.chunkSize {
			chunks = append(chunks, strings.Join(cur, ""))
			for total > 0 && (total+len(p) > s.chunkSize || total-len(cur[0]) >= s.overlap) {
				total -= len(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += len(p)
	}
	if total > 0 {
		chunks = append(chunks, strings.Join(cur, ""))
	}
	return chunks
}

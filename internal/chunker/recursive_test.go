package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecursiveSplitter_Defaults(t *testing.T) {
	s := NewRecursiveSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
	assert.Equal(t, DefaultOverlap, s.overlap)

	s = NewRecursiveSplitter(100, 150)
	assert.Less(t, s.overlap, s.chunkSize)
}

func TestSplit_Empty(t *testing.T) {
	s := NewRecursiveSplitter(1000, 200)
	assert.Nil(t, s.Split(""))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := NewRecursiveSplitter(1000, 200)
	chunks := s.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 50) // ~300 bytes
	para2 := strings.Repeat("beta ", 60)  // ~300 bytes
	para3 := strings.Repeat("gamma ", 60) // ~360 bytes
	text := para1 + "\n\n" + para2 + "\n\n" + para3

	s := NewRecursiveSplitter(400, 50)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 400)
	}
	// Paragraph breaks survive inside the chunk stream.
	assert.Contains(t, strings.Join(chunks, ""), "\n\n")
}

func TestSplit_ChunkSizeBound(t *testing.T) {
	words := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	s := NewRecursiveSplitter(1000, 200)
	for _, c := range s.Split(words) {
		assert.LessOrEqual(t, len(c), 1000)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	words := strings.Repeat("overlap test words here ", 150)
	s := NewRecursiveSplitter(500, 100)
	chunks := s.Split(words)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		shared := commonBoundary(chunks[i-1], chunks[i])
		assert.GreaterOrEqual(t, shared, 100, "chunks %d and %d", i-1, i)
	}
}

func TestSplit_Coverage(t *testing.T) {
	// Aperiodic inputs so the overlap between consecutive chunks is
	// unambiguous when rebuilding.
	var words, paras strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&words, "word%03d ", i)
		fmt.Fprintf(&paras, "sentence number %d ends here.", i)
		if i%7 == 0 {
			paras.WriteString("\n\n")
		} else if i%3 == 0 {
			paras.WriteString("\n")
		}
	}
	texts := []string{words.String(), paras.String()}
	s := NewRecursiveSplitter(300, 60)
	for _, text := range texts {
		chunks := s.Split(text)
		require.NotEmpty(t, chunks)
		rebuilt := chunks[0]
		for i := 1; i < len(chunks); i++ {
			shared := commonBoundary(rebuilt, chunks[i])
			rebuilt += chunks[i][shared:]
		}
		assert.Equal(t, text, rebuilt)
	}
}

func TestSplit_NoSeparators(t *testing.T) {
	text := strings.Repeat("z", 2500)
	s := NewRecursiveSplitter(1000, 200)
	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000)
	}
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, commonBoundary(chunks[i-1], chunks[i]), 200)
	}
}

// commonBoundary returns the length of the longest suffix of prev that is
// a prefix of next.
func commonBoundary(prev, next string) int {
	maxLen := len(prev)
	if len(next) < maxLen {
		maxLen = len(next)
	}
	for l := maxLen; l > 0; l-- {
		if prev[len(prev)-l:] == next[:l] {
			return l
		}
	}
	return 0
}

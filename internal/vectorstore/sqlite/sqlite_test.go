package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	x, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func chunk(id, fileID, fileName string, idx int, vec []float64) domain.Chunk {
	return domain.Chunk{
		ID:        id,
		FileID:    fileID,
		FileName:  fileName,
		Index:     idx,
		Text:      "text " + id,
		Embedding: vec,
	}
}

func TestAddQueryRoundTrip(t *testing.T) {
	x := openTestIndex(t)
	require.NoError(t, x.Add([]domain.Chunk{
		chunk("c1", "f1", "a.txt", 0, []float64{1, 0, 0}),
		chunk("c2", "f1", "a.txt", 1, []float64{0, 1, 0}),
		chunk("c3", "f1", "a.txt", 2, []float64{0.9, 0.1, 0}),
	}))

	results, err := x.Query([]float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "c3", results[1].Chunk.ID)
	assert.Equal(t, []float64{0.9, 0.1, 0}, results[1].Chunk.Embedding)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestQuery_EmptyIndex(t *testing.T) {
	x := openTestIndex(t)
	results, err := x.Query([]float64{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAdd_DuplicateIDRollsBack(t *testing.T) {
	x := openTestIndex(t)
	require.NoError(t, x.Add([]domain.Chunk{chunk("c1", "f1", "a.txt", 0, []float64{1})}))

	err := x.Add([]domain.Chunk{
		chunk("c2", "f1", "a.txt", 1, []float64{1}),
		chunk("c1", "f1", "a.txt", 2, []float64{1}),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateChunk)

	// The whole batch rolled back: c2 is absent.
	files, err := x.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 1, files[0].Chunks)
}

func TestAdd_FileNameMismatch(t *testing.T) {
	x := openTestIndex(t)
	require.NoError(t, x.Add([]domain.Chunk{chunk("c1", "f1", "a.txt", 0, []float64{1})}))

	err := x.Add([]domain.Chunk{chunk("c2", "f1", "other.txt", 1, []float64{1})})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFileNameMismatch)
	assert.ErrorIs(t, err, domain.ErrIndexWrite)
}

func TestListFilesAndDelete(t *testing.T) {
	x := openTestIndex(t)
	require.NoError(t, x.Add([]domain.Chunk{
		chunk("a0", "fa", "a.txt", 0, []float64{1, 0}),
		chunk("a1", "fa", "a.txt", 1, []float64{0, 1}),
	}))
	require.NoError(t, x.Add([]domain.Chunk{chunk("b0", "fb", "b.txt", 0, []float64{1, 1})}))

	files, err := x.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "fa", files[0].FileID)
	assert.Equal(t, 2, files[0].Chunks)

	n, err := x.DeleteByFile("fa")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = x.DeleteByFile("fa")
	require.NoError(t, err)
	assert.Zero(t, n)

	files, err = x.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "fb", files[0].FileID)
}

func TestReset(t *testing.T) {
	x := openTestIndex(t)
	require.NoError(t, x.Add([]domain.Chunk{chunk("c1", "f1", "a.txt", 0, []float64{1})}))
	require.NoError(t, x.Reset())

	files, err := x.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files)

	// Pre-reset IDs are reusable.
	require.NoError(t, x.Add([]domain.Chunk{chunk("c1", "f1", "a.txt", 0, []float64{1})}))
}

func TestEmbeddingEncodingRoundTrip(t *testing.T) {
	vec := []float64{0.25, -1.5, 3.14159, 0}
	out, err := decodeEmbedding(encodeEmbedding(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, out)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

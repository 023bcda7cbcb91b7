package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f, err := New(4)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Dimension())
	assert.Equal(t, 0, f.Count())

	_, err = New(0)
	assert.Error(t, err)
	_, err = New(-1)
	assert.Error(t, err)
}

func TestAdd(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)

	require.NoError(t, f.Add([][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 2, f.Count())

	t.Run("dimension mismatch rejects the whole batch", func(t *testing.T) {
		err := f.Add([][]float32{{1, 1}, {1, 2, 3}})
		assert.Error(t, err)
		assert.Equal(t, 2, f.Count())
	})
}

func TestSearch_Correctness(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)
	require.NoError(t, f.Add([][]float32{
		{0, 0}, // position 0, distance 0
		{1, 0}, // position 1, distance 1
		{0, 2}, // position 2, distance 4
		{3, 3}, // position 3, distance 18
	}))

	hits, err := f.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Position)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.Equal(t, 1, hits[1].Position)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-9)
}

func TestSearch_TiesBreakByLowerPosition(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)
	require.NoError(t, f.Add([][]float32{
		{0, 2}, // distance 4
		{1, 0}, // distance 1
		{0, 1}, // distance 1, same as position 1
	}))

	hits, err := f.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{hits[0].Position, hits[1].Position, hits[2].Position})
}

func TestSearch_KExceedsCount(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)
	require.NoError(t, f.Add([][]float32{{1, 0}, {0, 1}}))

	hits, err := f.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_EmptyIndex(t *testing.T) {
	f, err := New(3)
	require.NoError(t, err)

	hits, err := f.Search([]float32{0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	f, err := New(3)
	require.NoError(t, err)

	_, err = f.Search([]float32{1, 2}, 1)
	assert.Error(t, err)
}

func TestAppendOnly(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)
	require.NoError(t, f.Add([][]float32{{1, 0}, {0, 1}}))

	before := [][]float32{{1, 0}, {0, 1}}
	require.NoError(t, f.Add([][]float32{{5, 5}}))

	assert.Equal(t, 3, f.Count())
	// Prior positions keep their vectors.
	assert.Equal(t, before[0], f.Vectors()[0])
	assert.Equal(t, before[1], f.Vectors()[1])

	hits, err := f.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, hits[0].Position)
}

func TestFromVectors(t *testing.T) {
	f, err := FromVectors(2, [][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Count())

	_, err = FromVectors(2, [][]float32{{1, 2, 3}})
	assert.Error(t, err)
}

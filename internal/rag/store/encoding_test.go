package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEmbedding(t *testing.T) {
	embedding := [][]float32{
		{0.5, -1.25, 3.0},
		{0.0, 2.5, -0.75},
	}

	blob, err := EncodeEmbedding(embedding)
	require.NoError(t, err)
	assert.Len(t, blob, 2*3*4)

	decoded, err := DecodeEmbedding(blob, 3)
	require.NoError(t, err)
	assert.Equal(t, embedding, decoded)
}

func TestEncodeEmbeddingRejectsInvalid(t *testing.T) {
	_, err := EncodeEmbedding(nil)
	assert.Error(t, err)

	_, err = EncodeEmbedding([][]float32{{1, 2}, {1, 2, 3}})
	assert.Error(t, err)
}

func TestDecodeEmbeddingRejectsInvalid(t *testing.T) {
	blob, err := EncodeEmbedding([][]float32{{1, 2, 3}})
	require.NoError(t, err)

	// Blob length not divisible by the dimension.
	_, err = DecodeEmbedding(blob, 2)
	assert.Error(t, err)

	_, err = DecodeEmbedding(nil, 3)
	assert.Error(t, err)

	_, err = DecodeEmbedding(blob, 0)
	assert.Error(t, err)
}

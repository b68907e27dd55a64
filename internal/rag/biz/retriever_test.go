package biz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/visrag/internal/rag/biz"
	"github.com/kart-io/visrag/internal/rag/store"
)

func seedPages(t *testing.T, ps *fakePageStore, docID string, embeddings ...[][]float32) {
	t.Helper()
	records := make([]store.PageRecord, len(embeddings))
	for i, emb := range embeddings {
		records[i] = store.PageRecord{
			DocumentID: docID,
			PageNumber: i + 1,
			Embedding:  emb,
			ImagePath:  "/img/" + docID,
		}
	}
	require.NoError(t, ps.AddDocument(context.Background(), store.DocumentInfo{ID: docID}, records, false))
}

func TestRetrieveEmptyIndex(t *testing.T) {
	ps := newFakePageStore()
	embedder := newFakeEmbedder()
	retriever := biz.NewRetriever(ps, embedder)

	_, err := retriever.Retrieve(context.Background(), "what is this?", 3)
	require.ErrorIs(t, err, store.ErrEmptyIndex)
	// The index size check happens before any model call.
	assert.Equal(t, int32(0), embedder.textCalls.Load())
}

func TestRetrieveClampsTopKToIndexSize(t *testing.T) {
	ps := newFakePageStore()
	seedPages(t, ps, "doc",
		[][]float32{{1, 0}},
		[][]float32{{0, 1}},
		[][]float32{{0.5, 0.5}},
	)
	retriever := biz.NewRetriever(ps, newFakeEmbedder())

	results, err := retriever.Retrieve(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetrieveClampsTopKToOne(t *testing.T) {
	ps := newFakePageStore()
	seedPages(t, ps, "doc", [][]float32{{1, 0}}, [][]float32{{0, 1}})
	retriever := biz.NewRetriever(ps, newFakeEmbedder())

	results, err := retriever.Retrieve(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieveRanksByMaxSim(t *testing.T) {
	ps := newFakePageStore()
	seedPages(t, ps, "doc",
		[][]float32{{0, 1}},
		[][]float32{{1, 0}},
	)
	embedder := newFakeEmbedder()
	embedder.textVec = [][]float32{{1, 0}}
	retriever := biz.NewRetriever(ps, embedder)

	results, err := retriever.Retrieve(context.Background(), "anything", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].PageNumber)
	assert.Equal(t, 1, results[1].PageNumber)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieveEmbedFailure(t *testing.T) {
	ps := newFakePageStore()
	seedPages(t, ps, "doc", [][]float32{{1, 0}})
	embedder := newFakeEmbedder()
	embedder.err = errors.New("embedding server down")
	retriever := biz.NewRetriever(ps, embedder)

	_, err := retriever.Retrieve(context.Background(), "anything", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed question")
}

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "visrag.db"), "vidore/colpali-v1.2")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func pageRecord(docID string, page int, vec []float32) PageRecord {
	return PageRecord{
		DocumentID: docID,
		PageNumber: page,
		Embedding:  [][]float32{vec},
		ImagePath:  "/images/" + docID,
	}
}

func TestAddDocumentAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Three pages with embeddings pointing in different directions; a
	// query aligned with page 2 must return page 2 first.
	records := []PageRecord{
		pageRecord("manual", 1, []float32{1, 0, 0}),
		pageRecord("manual", 2, []float32{0, 1, 0}),
		pageRecord("manual", 3, []float32{0, 0, 1}),
	}
	doc := DocumentInfo{ID: "manual", SourcePath: "docs/manual.pdf"}
	require.NoError(t, s.AddDocument(ctx, doc, records, false))

	results, err := s.Search(ctx, [][]float32{{0, 1, 0}}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "manual", results[0].DocumentID)
	assert.Equal(t, 2, results[0].PageNumber)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchOrderingAndTieBreak(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// b/1 and a/2 score identically; the tie breaks ascending by
	// (document_id, page_number).
	require.NoError(t, s.AddDocument(ctx, DocumentInfo{ID: "b", SourcePath: "b.pdf"}, []PageRecord{
		pageRecord("b", 1, []float32{1, 0}),
		pageRecord("b", 2, []float32{0, 1}),
	}, false))
	require.NoError(t, s.AddDocument(ctx, DocumentInfo{ID: "a", SourcePath: "a.pdf"}, []PageRecord{
		pageRecord("a", 2, []float32{1, 0}),
	}, false))

	results, err := s.Search(ctx, [][]float32{{1, 0}}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].DocumentID)
	assert.Equal(t, 2, results[0].PageNumber)
	assert.Equal(t, "b", results[1].DocumentID)
	assert.Equal(t, 1, results[1].PageNumber)
	// Orthogonal page sorts last.
	assert.Equal(t, 2, results[2].PageNumber)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchClampsKToIndexSize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddDocument(ctx, DocumentInfo{ID: "doc", SourcePath: "doc.pdf"}, []PageRecord{
		pageRecord("doc", 1, []float32{1, 0}),
		pageRecord("doc", 2, []float32{0, 1}),
	}, false))

	results, err := s.Search(ctx, [][]float32{{1, 1}}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEmptyIndex(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Search(context.Background(), [][]float32{{1, 0}}, 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestSearchDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddDocument(ctx, DocumentInfo{ID: "doc", SourcePath: "doc.pdf"}, []PageRecord{
		pageRecord("doc", 1, []float32{1, 0, 0}),
	}, false))

	_, err := s.Search(ctx, [][]float32{{1, 0}}, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyIndex)
}

func TestDuplicateDocumentWithoutOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := DocumentInfo{ID: "doc", SourcePath: "doc.pdf"}

	require.NoError(t, s.AddDocument(ctx, doc, []PageRecord{pageRecord("doc", 1, []float32{1})}, false))

	err := s.AddDocument(ctx, doc, []PageRecord{pageRecord("doc", 1, []float32{2})}, false)
	assert.ErrorIs(t, err, ErrDuplicateDocument)

	// The original record survives untouched.
	results, err := s.Search(ctx, [][]float32{{1}}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestOverwriteReplacesAllRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := DocumentInfo{ID: "doc", SourcePath: "doc.pdf"}

	require.NoError(t, s.AddDocument(ctx, doc, []PageRecord{
		pageRecord("doc", 1, []float32{1, 0}),
		pageRecord("doc", 2, []float32{0, 1}),
		pageRecord("doc", 3, []float32{1, 1}),
	}, false))

	// Re-index with fewer pages: no orphans from the old version survive.
	require.NoError(t, s.AddDocument(ctx, doc, []PageRecord{
		pageRecord("doc", 1, []float32{0, 1}),
	}, true))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].Pages)
}

func TestOverwriteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := DocumentInfo{ID: "doc", SourcePath: "doc.pdf"}
	records := []PageRecord{
		pageRecord("doc", 1, []float32{1, 0}),
		pageRecord("doc", 2, []float32{0, 1}),
	}

	require.NoError(t, s.AddDocument(ctx, doc, records, false))
	require.NoError(t, s.AddDocument(ctx, doc, records, true))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := s.Search(ctx, [][]float32{{1, 0}}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].PageNumber)
}

func TestReopenWithDifferentModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visrag.db")

	s, err := Open(path, "vidore/colpali-v1.2")
	require.NoError(t, err)
	require.NoError(t, s.AddDocument(context.Background(),
		DocumentInfo{ID: "doc", SourcePath: "doc.pdf"},
		[]PageRecord{pageRecord("doc", 1, []float32{1})}, false))
	require.NoError(t, s.Close())

	// Same model reopens fine.
	s, err = Open(path, "vidore/colpali-v1.2")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A different embedding model must be rejected, not silently merged.
	_, err = Open(path, "vidore/colqwen2-v1.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelMismatch))
}

func TestRejectsInconsistentDimensions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddDocument(ctx, DocumentInfo{ID: "a", SourcePath: "a.pdf"}, []PageRecord{
		pageRecord("a", 1, []float32{1, 0, 0}),
	}, false))

	err := s.AddDocument(ctx, DocumentInfo{ID: "b", SourcePath: "b.pdf"}, []PageRecord{
		pageRecord("b", 1, []float32{1, 0}),
	}, false)
	assert.Error(t, err)
}

package store

import (
	"context"
	"errors"
)

var (
	// ErrEmptyIndex indicates a search or answer attempt against an index
	// with no records. Callers must fail fast instead of invoking
	// generation with no visual context.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrDuplicateDocument indicates an AddDocument for a document_id that
	// already exists without overwrite. Re-indexing must be explicit.
	ErrDuplicateDocument = errors.New("document already indexed")

	// ErrIndexWrite indicates the storage location is unwritable.
	ErrIndexWrite = errors.New("index write failed")

	// ErrModelMismatch indicates the index was built with a different
	// embedding model than the one configured. Mixing embedding spaces
	// silently corrupts similarity scores, so the index is rejected.
	ErrModelMismatch = errors.New("index embedding model mismatch")
)

// PageRecord is the persisted unit of the index: one rendered document page.
// (DocumentID, PageNumber) is unique within an index. Records are immutable
// once written; only an explicit re-index or delete of their document
// removes them.
type PageRecord struct {
	// DocumentID identifies the source file, stable across re-indexing.
	DocumentID string

	// PageNumber is the 1-based position within the document.
	PageNumber int

	// Embedding is the multi-vector representation: an ordered sequence of
	// fixed-dimension vectors, one per image patch. Kept unpooled so
	// late-interaction scoring stays possible.
	Embedding [][]float32

	// ImagePath references the rendered page image, re-supplied to the
	// generation service at answer time.
	ImagePath string
}

// ScoredPage is one search result.
type ScoredPage struct {
	PageRecord

	// Score is the max-sim similarity against the query.
	Score float64
}

// DocumentInfo summarizes one indexed document.
type DocumentInfo struct {
	ID         string
	SourcePath string
	Pages      int
}

// PageStore persists page records and supports late-interaction similarity
// search. The backing file is a single-writer resource; concurrent writers
// from multiple processes must be serialized by the caller.
type PageStore interface {
	// AddDocument appends the records of one document transactionally.
	// A document_id that already exists fails with ErrDuplicateDocument
	// unless overwrite is set, in which case every prior record of that
	// document is replaced in the same transaction.
	AddDocument(ctx context.Context, doc DocumentInfo, records []PageRecord, overwrite bool) error

	// Search returns the k records with the highest max-sim score against
	// the query, descending, ties broken by ascending
	// (document_id, page_number). Fails with ErrEmptyIndex when the store
	// has no records.
	Search(ctx context.Context, query [][]float32, k int) ([]ScoredPage, error)

	// Documents lists indexed documents.
	Documents(ctx context.Context) ([]DocumentInfo, error)

	// Count returns the number of page records in the store.
	Count(ctx context.Context) (int, error)

	// Model returns the embedding model identifier the index was built with.
	Model(ctx context.Context) (string, error)

	// Close releases the store.
	Close() error
}

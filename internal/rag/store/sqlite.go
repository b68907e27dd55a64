package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const (
	metaKeyModel     = "embedding_model"
	metaKeyDimension = "embedding_dim"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	pages       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page_number INTEGER NOT NULL,
	embedding   BLOB NOT NULL,
	image_path  TEXT NOT NULL,
	PRIMARY KEY (document_id, page_number)
);
`

var _ PageStore = (*SQLiteStore)(nil)

// SQLiteStore is a PageStore backed by a single SQLite database file. The
// file is the durable representation of the index; every mutation commits
// before AddDocument returns, so the in-memory and on-disk views never
// diverge after a successful add.
type SQLiteStore struct {
	db    *sql.DB
	model string
}

// Open opens (or creates) the index database at path for the given embedding
// model. An existing index built with a different model is rejected with
// ErrModelMismatch.
func Open(path, model string) (*SQLiteStore, error) {
	if model == "" {
		return nil, fmt.Errorf("store: embedding model identifier is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexWrite, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	s := &SQLiteStore{db: db, model: model}
	if err := s.checkModel(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// checkModel validates the recorded embedding model against the configured
// one, recording it on first use.
func (s *SQLiteStore) checkModel(ctx context.Context) error {
	stored, err := s.metaValue(ctx, metaKeyModel)
	if err != nil {
		return err
	}
	if stored == "" {
		return s.setMeta(ctx, metaKeyModel, s.model)
	}
	if stored != s.model {
		return fmt.Errorf("%w: index built with %q, configured %q", ErrModelMismatch, stored, s.model)
	}
	return nil
}

// AddDocument appends the records of one document in a single transaction.
func (s *SQLiteStore) AddDocument(ctx context.Context, doc DocumentInfo, records []PageRecord, overwrite bool) error {
	if len(records) == 0 {
		return fmt.Errorf("store: no records for document %q", doc.ID)
	}

	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec.Embedding) == 0 || len(rec.Embedding[0]) == 0 {
			return fmt.Errorf("store: empty embedding for %s page %d", rec.DocumentID, rec.PageNumber)
		}
		if dim == 0 {
			dim = len(rec.Embedding[0])
		}
		if len(rec.Embedding[0]) != dim {
			return fmt.Errorf("store: embedding dim %d for %s page %d, index dim %d",
				len(rec.Embedding[0]), rec.DocumentID, rec.PageNumber, dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = ?`, doc.ID).Scan(&exists); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	if exists > 0 {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.ID)
		}
		// Replace the document wholesale so no records of the old version
		// survive. Page rows cascade.
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexWrite, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, source_path, pages) VALUES(?, ?, ?)`,
		doc.ID, doc.SourcePath, len(records)); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pages(document_id, page_number, embedding, image_path) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		blob, err := EncodeEmbedding(rec.Embedding)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, rec.DocumentID, rec.PageNumber, blob, rec.ImagePath); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexWrite, err)
		}
	}

	if err := s.setMetaTx(ctx, tx, metaKeyDimension, strconv.Itoa(dim)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

// Search scans every page record and ranks by max-sim score. The index fits
// one process's document set; a brute-force scan over decoded blobs is the
// deterministic baseline and avoids approximate-index recall surprises.
func (s *SQLiteStore) Search(ctx context.Context, query [][]float32, k int) ([]ScoredPage, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("store: empty query embedding")
	}

	dim, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query[0]) != dim {
		return nil, fmt.Errorf("store: query dim %d does not match index dim %d", len(query[0]), dim)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, page_number, embedding, image_path FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}
	defer rows.Close()

	var scored []ScoredPage
	for rows.Next() {
		var rec PageRecord
		var blob []byte
		if err := rows.Scan(&rec.DocumentID, &rec.PageNumber, &blob, &rec.ImagePath); err != nil {
			return nil, fmt.Errorf("failed to scan page record: %w", err)
		}
		rec.Embedding, err = DecodeEmbedding(blob, dim)
		if err != nil {
			return nil, err
		}
		score, err := MaxSimScore(query, rec.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredPage{PageRecord: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}

	if len(scored) == 0 {
		return nil, ErrEmptyIndex
	}

	// Descending score; equal scores break ascending by (document_id,
	// page_number) so results are deterministic.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].DocumentID != scored[j].DocumentID {
			return scored[i].DocumentID < scored[j].DocumentID
		}
		return scored[i].PageNumber < scored[j].PageNumber
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Documents lists indexed documents.
func (s *SQLiteStore) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_path, pages FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.ID, &d.SourcePath, &d.Pages); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Count returns the number of page records in the store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// Model returns the embedding model identifier the index was built with.
func (s *SQLiteStore) Model(ctx context.Context) (string, error) {
	return s.metaValue(ctx, metaKeyModel)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// dimension returns the recorded embedding dimension, 0 when nothing has
// been indexed yet.
func (s *SQLiteStore) dimension(ctx context.Context) (int, error) {
	v, err := s.metaValue(ctx, metaKeyDimension)
	if err != nil || v == "" {
		return 0, err
	}
	dim, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("store: corrupt dimension metadata %q", v)
	}
	return dim, nil
}

func (s *SQLiteStore) metaValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read index metadata: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) setMeta(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO index_meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

func (s *SQLiteStore) setMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

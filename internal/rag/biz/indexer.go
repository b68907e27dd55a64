package biz

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/visrag/internal/model"
	"github.com/kart-io/visrag/internal/rag/store"
	"github.com/kart-io/visrag/pkg/render"
)

// IndexDocuments renders, embeds, and stores every resolved PDF. Indexing is
// best-effort across documents: a document that fails to render, embed, or
// persist is logged and reported as skipped while the rest of the batch
// continues, and documents already added stay indexed.
func (s *Service) IndexDocuments(ctx context.Context, folder string, files []string, overwrite bool) (*model.IndexReport, error) {
	paths, err := resolvePDFs(folder, files)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF documents found")
	}

	logger.Infof("Indexing %d documents", len(paths))

	// Rendering is CPU-bound and does not touch the accelerator, so a small
	// worker pool rasterizes documents ahead of the sequential embedding
	// stage to keep the accelerator saturated.
	pool, err := ants.NewPool(s.cfg.RenderWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to create render pool: %w", err)
	}
	defer pool.Release()

	type renderResult struct {
		pages []render.Page
		err   error
	}

	results := make([]chan renderResult, len(paths))
	for i, path := range paths {
		results[i] = make(chan renderResult, 1)
		i, path := i, path
		submitErr := pool.Submit(func() {
			outDir := filepath.Join(s.cfg.ImageDir, documentID(path), uuid.NewString())
			pages, err := s.renderer.Render(ctx, path, outDir)
			results[i] <- renderResult{pages: pages, err: err}
		})
		if submitErr != nil {
			results[i] <- renderResult{err: submitErr}
		}
	}

	report := &model.IndexReport{}
	for i, path := range paths {
		res := <-results[i]
		if res.err != nil {
			logger.Warnw("Skipping document", "path", path, "error", res.err.Error())
			report.Skipped = append(report.Skipped, model.SkippedDocument{Path: path, Reason: res.err.Error()})
			continue
		}

		if err := s.indexDocument(ctx, path, res.pages, overwrite); err != nil {
			logger.Warnw("Skipping document", "path", path, "error", err.Error())
			report.Skipped = append(report.Skipped, model.SkippedDocument{Path: path, Reason: err.Error()})
			continue
		}

		report.Indexed++
		report.Pages += len(res.pages)
		logger.Infof("Indexed %s (%d pages)", path, len(res.pages))
	}

	logger.Infof("Indexing completed: %d indexed, %d skipped", report.Indexed, len(report.Skipped))
	return report, nil
}

// indexDocument embeds the rendered pages of one document in batches and
// stores them transactionally.
func (s *Service) indexDocument(ctx context.Context, path string, pages []render.Page, overwrite bool) error {
	docID := documentID(path)

	records := make([]store.PageRecord, 0, len(pages))
	batch := s.embedBatchSize()
	for start := 0; start < len(pages); start += batch {
		end := start + batch
		if end > len(pages) {
			end = len(pages)
		}

		imagePaths := make([]string, 0, end-start)
		for _, p := range pages[start:end] {
			imagePaths = append(imagePaths, p.Path)
		}

		embeddings, err := s.embedder.EmbedImages(ctx, imagePaths)
		if err != nil {
			return fmt.Errorf("failed to embed pages %d-%d: %w", pages[start].Number, pages[end-1].Number, err)
		}

		for j, p := range pages[start:end] {
			records = append(records, store.PageRecord{
				DocumentID: docID,
				PageNumber: p.Number,
				Embedding:  embeddings[j],
				ImagePath:  p.Path,
			})
		}
	}

	doc := store.DocumentInfo{ID: docID, SourcePath: path}
	if err := s.store.AddDocument(ctx, doc, records, overwrite); err != nil {
		return err
	}
	return nil
}

// embedBatchSize returns the page batch size per embedding request. Low
// memory mode embeds one page at a time.
func (s *Service) embedBatchSize() int {
	if s.cfg.LowMemory {
		return 1
	}
	if s.cfg.EmbedBatchSize < 1 {
		return 1
	}
	return s.cfg.EmbedBatchSize
}

// resolvePDFs turns the folder/files input into a concrete list of PDF
// paths. Folder expansion collects files with the .pdf extension
// (case-insensitive) in name order; explicit file lists are used verbatim.
func resolvePDFs(folder string, files []string) ([]string, error) {
	if folder == "" && len(files) == 0 {
		return nil, fmt.Errorf("either a folder or a list of files is required")
	}
	if folder != "" && len(files) > 0 {
		return nil, fmt.Errorf("folder and files are mutually exclusive")
	}

	if len(files) > 0 {
		return files, nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", folder, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(folder, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// documentID derives a stable identifier from the document path, so
// re-indexing the same file targets the same records.
func documentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := md5.Sum([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])
}

// Package render defines the PDF page rendering contract.
package render

import (
	"context"
	"errors"
)

// ErrUnreadablePDF indicates a corrupt or encrypted input document. During
// bulk indexing the document is skipped and reported, not fatal to the batch.
var ErrUnreadablePDF = errors.New("unreadable PDF")

// Page is one rendered document page.
type Page struct {
	// Number is the 1-based position within the document.
	Number int

	// Path is the rendered image file on disk.
	Path string
}

// Renderer converts a PDF file into an ordered sequence of page images.
type Renderer interface {
	// Render rasterizes every page of the PDF at pdfPath into outDir and
	// returns the pages ordered by page number.
	Render(ctx context.Context, pdfPath, outDir string) ([]Page, error)
}

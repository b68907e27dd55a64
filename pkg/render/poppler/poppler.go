// Package poppler renders PDF pages by shelling out to poppler's pdftoppm.
package poppler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	renderopts "github.com/kart-io/visrag/pkg/options/render"
	"github.com/kart-io/visrag/pkg/render"
)

var _ render.Renderer = (*Renderer)(nil)

// Renderer rasterizes PDFs with pdftoppm.
type Renderer struct {
	binary string
	dpi    int
}

// New creates a new Renderer.
func New(opts *renderopts.Options) *Renderer {
	return &Renderer{
		binary: opts.Binary,
		dpi:    opts.DPI,
	}
}

// Render rasterizes every page of the PDF into outDir as PNG files and
// returns the pages ordered by page number. Corrupt or encrypted input is
// reported as render.ErrUnreadablePDF.
func (r *Renderer) Render(ctx context.Context, pdfPath, outDir string) ([]render.Page, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", render.ErrUnreadablePDF, pdfPath, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create render directory: %w", err)
	}

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, r.binary, "-png", "-r", strconv.Itoa(r.dpi), pdfPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// pdftoppm exits non-zero on damaged or encrypted input.
			return nil, fmt.Errorf("%w: %s: %s", render.ErrUnreadablePDF, pdfPath, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to run %s: %w", r.binary, err)
	}

	pages, err := collectPages(prefix)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s: no pages rendered", render.ErrUnreadablePDF, pdfPath)
	}
	return pages, nil
}

// collectPages gathers the pdftoppm output files. pdftoppm zero-pads page
// numbers in file names to the width of the last page, so the number is
// parsed from each name rather than reconstructed.
func collectPages(prefix string) ([]render.Page, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	pages := make([]render.Page, 0, len(matches))
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".png")
		idx := strings.LastIndex(name, "-")
		if idx < 0 {
			continue
		}
		num, err := strconv.Atoi(name[idx+1:])
		if err != nil {
			continue
		}
		pages = append(pages, render.Page{Number: num, Path: path})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

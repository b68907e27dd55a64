// Package llm provides the provider abstraction for the embedding and
// generation model services.
//
// Both services run on a shared accelerator and are treated as opaque
// collaborators: the pipeline only depends on the interfaces here, so tests
// can substitute doubles without real hardware.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EmbeddingProvider maps page images and query text into a shared multi-vector
// embedding space. One input produces an ordered sequence of fixed-dimension
// vectors (one per image patch for ColPali-style models), never a single
// pooled vector.
type EmbeddingProvider interface {
	// EmbedImages embeds the page images at the given paths, in order.
	EmbedImages(ctx context.Context, imagePaths []string) ([][][]float32, error)

	// EmbedText embeds a text query into the same space as EmbedImages.
	EmbedText(ctx context.Context, text string) ([][]float32, error)

	// Model returns the model identifier, recorded in the index so a
	// mismatched model at query time is detected instead of silently
	// producing garbage scores.
	Model() string
}

// VisionProvider produces a natural-language answer from a question and a set
// of page images.
type VisionProvider interface {
	// Generate answers the question from the images, bounded by maxTokens.
	Generate(ctx context.Context, question string, imagePaths []string, maxTokens int) (string, error)

	// Model returns the generation model identifier.
	Model() string
}

var (
	// ErrUnavailable indicates the model backend cannot be reached or
	// loaded. Fatal to the current call.
	ErrUnavailable = errors.New("model service unavailable")

	// ErrResourceExhausted indicates the accelerator ran out of memory.
	// Surfaced to the caller with a low-memory hint; never retried with
	// different parameters.
	ErrResourceExhausted = errors.New("model service out of memory")
)

// oomMarkers are substrings that identify an accelerator OOM in an error body.
var oomMarkers = []string{
	"out of memory",
	"cuda error",
	"insufficient memory",
}

// ClassifyHTTPError maps a non-2xx model service response onto the provider
// error taxonomy. Unrecognized statuses produce a plain error carrying the
// response body.
func ClassifyHTTPError(statusCode int, body []byte) error {
	msg := strings.ToLower(string(body))
	for _, marker := range oomMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: status %d: %s", ErrResourceExhausted, statusCode, strings.TrimSpace(string(body)))
		}
	}

	switch statusCode {
	case 502, 503, 504:
		return fmt.Errorf("%w: status %d", ErrUnavailable, statusCode)
	case 507:
		return fmt.Errorf("%w: status %d", ErrResourceExhausted, statusCode)
	}
	return fmt.Errorf("model service returned status %d: %s", statusCode, strings.TrimSpace(string(body)))
}

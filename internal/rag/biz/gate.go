package biz

import (
	"context"
	"sync"

	"github.com/kart-io/visrag/pkg/llm"
)

// accelGate serializes model invocations. Concurrent inference on one
// accelerator risks out-of-memory failures rather than speedup, so at most
// one embedding or generation call runs at a time per Service.
type accelGate struct {
	mu sync.Mutex
}

// gatedEmbedder wraps an EmbeddingProvider with the gate.
type gatedEmbedder struct {
	gate  *accelGate
	inner llm.EmbeddingProvider
}

func (g *gatedEmbedder) EmbedImages(ctx context.Context, imagePaths []string) ([][][]float32, error) {
	g.gate.mu.Lock()
	defer g.gate.mu.Unlock()
	return g.inner.EmbedImages(ctx, imagePaths)
}

func (g *gatedEmbedder) EmbedText(ctx context.Context, text string) ([][]float32, error) {
	g.gate.mu.Lock()
	defer g.gate.mu.Unlock()
	return g.inner.EmbedText(ctx, text)
}

func (g *gatedEmbedder) Model() string {
	return g.inner.Model()
}

// gatedGenerator wraps a VisionProvider with the gate.
type gatedGenerator struct {
	gate  *accelGate
	inner llm.VisionProvider
}

func (g *gatedGenerator) Generate(ctx context.Context, question string, imagePaths []string, maxTokens int) (string, error) {
	g.gate.mu.Lock()
	defer g.gate.mu.Unlock()
	return g.inner.Generate(ctx, question, imagePaths, maxTokens)
}

func (g *gatedGenerator) Model() string {
	return g.inner.Model()
}

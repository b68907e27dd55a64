package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/visrag/internal/rag/store"
	"github.com/kart-io/visrag/pkg/llm"
)

// Retriever finds the pages most relevant to a question. Stateless per call.
type Retriever struct {
	store    store.PageStore
	embedder llm.EmbeddingProvider
}

// NewRetriever creates a Retriever.
func NewRetriever(pageStore store.PageStore, embedder llm.EmbeddingProvider) *Retriever {
	return &Retriever{
		store:    pageStore,
		embedder: embedder,
	}
}

// Retrieve embeds the question and returns up to topK pages ranked by
// max-sim score. topK is clamped into [1, index size]: asking for more pages
// than exist returns everything rather than erroring. An empty index fails
// with store.ErrEmptyIndex before any model call.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]store.ScoredPage, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, store.ErrEmptyIndex
	}

	if topK < 1 {
		topK = 1
	}
	if topK > count {
		logger.Debugf("Clamping top-k %d to index size %d", topK, count)
		topK = count
	}

	query, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := r.store.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return results, nil
}

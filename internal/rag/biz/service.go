package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/visrag/internal/model"
	"github.com/kart-io/visrag/internal/rag/store"
	"github.com/kart-io/visrag/pkg/llm"
	"github.com/kart-io/visrag/pkg/render"
)

// ErrInvalidQuery indicates an empty or blank question. Failed fast before
// touching any model.
var ErrInvalidQuery = errors.New("question must not be empty")

// Config is the immutable pipeline configuration, fixed at construction. A
// new Service is required to change it, so instances with different settings
// can coexist in one process.
type Config struct {
	// ImageDir is the directory for rendered page images.
	ImageDir string

	// TopK is the default number of pages retrieved per question.
	TopK int

	// MaxTokens is the default answer length bound.
	MaxTokens int

	// EmbedBatchSize is the number of page images embedded per request.
	EmbedBatchSize int

	// RenderWorkers is the number of documents rendered concurrently.
	RenderWorkers int

	// LowMemory trades latency for reduced peak accelerator memory.
	LowMemory bool
}

// Service composes the renderer, embedding provider, index store, and vision
// provider into the indexing and question-answering operations.
type Service struct {
	store     store.PageStore
	embedder  llm.EmbeddingProvider
	generator llm.VisionProvider
	renderer  render.Renderer
	retriever *Retriever
	cfg       *Config
}

// NewService creates a Service. The embedding and vision providers are
// wrapped with a shared gate so at most one inference runs at a time.
func NewService(
	pageStore store.PageStore,
	embedder llm.EmbeddingProvider,
	generator llm.VisionProvider,
	renderer render.Renderer,
	cfg *Config,
) *Service {
	gate := &accelGate{}
	gatedEmbed := &gatedEmbedder{gate: gate, inner: embedder}
	gatedGen := &gatedGenerator{gate: gate, inner: generator}

	return &Service{
		store:     pageStore,
		embedder:  gatedEmbed,
		generator: gatedGen,
		renderer:  renderer,
		retriever: NewRetriever(pageStore, gatedEmbed),
		cfg:       cfg,
	}
}

// AnswerQuestion retrieves up to topK relevant pages and generates an answer
// grounded in their images, bounded by maxTokens. Non-positive topK or
// maxTokens fall back to the configured defaults. Errors propagate to the
// caller as the operation's result; no fallback answer is ever returned.
func (s *Service) AnswerQuestion(ctx context.Context, question string, topK, maxTokens int) (*model.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrInvalidQuery
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if maxTokens <= 0 {
		maxTokens = s.cfg.MaxTokens
	}

	logger.Infof("Answering question: %s", question)

	pages, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	imagePaths := make([]string, len(pages))
	sources := make([]model.PageSource, len(pages))
	for i, p := range pages {
		imagePaths[i] = p.ImagePath
		sources[i] = model.PageSource{
			DocumentID: p.DocumentID,
			PageNumber: p.PageNumber,
			ImagePath:  p.ImagePath,
			Score:      p.Score,
		}
	}

	text, err := s.generator.Generate(ctx, question, imagePaths, maxTokens)
	if err != nil {
		if errors.Is(err, llm.ErrResourceExhausted) {
			return nil, fmt.Errorf("%w (reduce top-k or enable low-memory mode)", err)
		}
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &model.Answer{Text: text, Sources: sources}, nil
}

// Stats returns statistics about the index.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	docs, err := s.store.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	embedModel, err := s.store.Model(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"documents":       len(docs),
		"pages":           count,
		"embedding_model": embedModel,
		"vlm_model":       s.generator.Model(),
	}, nil
}

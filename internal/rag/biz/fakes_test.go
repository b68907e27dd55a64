package biz_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/visrag/internal/rag/store"
	"github.com/kart-io/visrag/pkg/render"
)

// fakePageStore is an in-memory PageStore.
type fakePageStore struct {
	mu   sync.Mutex
	docs map[string][]store.PageRecord
}

func newFakePageStore() *fakePageStore {
	return &fakePageStore{docs: make(map[string][]store.PageRecord)}
}

func (f *fakePageStore) AddDocument(_ context.Context, doc store.DocumentInfo, records []store.PageRecord, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.ID]; ok && !overwrite {
		return fmt.Errorf("%w: %s", store.ErrDuplicateDocument, doc.ID)
	}
	f.docs[doc.ID] = append([]store.PageRecord(nil), records...)
	return nil
}

func (f *fakePageStore) Search(_ context.Context, query [][]float32, k int) ([]store.ScoredPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var scored []store.ScoredPage
	for _, records := range f.docs {
		for _, rec := range records {
			score, err := store.MaxSimScore(query, rec.Embedding)
			if err != nil {
				return nil, err
			}
			scored = append(scored, store.ScoredPage{PageRecord: rec, Score: score})
		}
	}
	if len(scored) == 0 {
		return nil, store.ErrEmptyIndex
	}

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

func (f *fakePageStore) Documents(context.Context) ([]store.DocumentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []store.DocumentInfo
	for id, records := range f.docs {
		docs = append(docs, store.DocumentInfo{ID: id, Pages: len(records)})
	}
	return docs, nil
}

func (f *fakePageStore) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, records := range f.docs {
		n += len(records)
	}
	return n, nil
}

func (f *fakePageStore) Model(context.Context) (string, error) {
	return "fake-embedding-model", nil
}

func (f *fakePageStore) Close() error { return nil }

// inferenceProbe counts in-flight model invocations so tests can assert the
// accelerator gate admits at most one at a time.
type inferenceProbe struct {
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	totalCalls atomic.Int32
}

func (p *inferenceProbe) enter() {
	n := p.inFlight.Add(1)
	for {
		max := p.maxSeen.Load()
		if n <= max || p.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	p.totalCalls.Add(1)
}

func (p *inferenceProbe) exit() {
	p.inFlight.Add(-1)
}

// fakeEmbedder is an EmbeddingProvider double.
type fakeEmbedder struct {
	probe      *inferenceProbe
	hold       time.Duration
	textVec    [][]float32
	imageVec   [][]float32
	err        error
	imageCalls atomic.Int32
	textCalls  atomic.Int32
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		probe:    &inferenceProbe{},
		textVec:  [][]float32{{1, 0}},
		imageVec: [][]float32{{1, 0}},
	}
}

func (f *fakeEmbedder) EmbedImages(_ context.Context, imagePaths []string) ([][][]float32, error) {
	f.probe.enter()
	defer f.probe.exit()
	time.Sleep(f.hold)
	f.imageCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][][]float32, len(imagePaths))
	for i := range imagePaths {
		out[i] = f.imageVec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedText(context.Context, string) ([][]float32, error) {
	f.probe.enter()
	defer f.probe.exit()
	time.Sleep(f.hold)
	f.textCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.textVec, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedding-model" }

// fakeGenerator is a VisionProvider double.
type fakeGenerator struct {
	probe     *inferenceProbe
	hold      time.Duration
	answer    string
	err       error
	calls     atomic.Int32
	gotPrompt string
	gotImages []string
	gotTokens int
	mu        sync.Mutex
}

func newFakeGenerator(answer string) *fakeGenerator {
	return &fakeGenerator{probe: &inferenceProbe{}, answer: answer}
}

func (f *fakeGenerator) Generate(_ context.Context, question string, imagePaths []string, maxTokens int) (string, error) {
	f.probe.enter()
	defer f.probe.exit()
	time.Sleep(f.hold)
	f.calls.Add(1)
	f.mu.Lock()
	f.gotPrompt = question
	f.gotImages = append([]string(nil), imagePaths...)
	f.gotTokens = maxTokens
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) Model() string { return "fake-vlm-model" }

// fakeRenderer is a Renderer double keyed by input path.
type fakeRenderer struct {
	pages map[string][]render.Page
	errs  map[string]error
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pages: make(map[string][]render.Page),
		errs:  make(map[string]error),
	}
}

func (f *fakeRenderer) Render(_ context.Context, pdfPath, _ string) ([]render.Page, error) {
	if err := f.errs[pdfPath]; err != nil {
		return nil, err
	}
	pages, ok := f.pages[pdfPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", render.ErrUnreadablePDF, pdfPath)
	}
	return pages, nil
}

// Package colpali provides an EmbeddingProvider backed by a ColPali
// embedding server.
//
// The server exposes two endpoints in the same embedding space:
// POST /embed/image takes base64 page images and returns one vector sequence
// per image; POST /embed/text does the same for a query string.
package colpali

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kart-io/visrag/pkg/llm"
	embedopts "github.com/kart-io/visrag/pkg/options/embedding"
)

var _ llm.EmbeddingProvider = (*Provider)(nil)

// Provider is a ColPali embedding server client.
type Provider struct {
	baseURL    string
	model      string
	precision  string
	maxRetries int
	httpClient *http.Client
}

// New creates a new Provider. In low-memory mode the server is asked for
// float16 activations instead of bfloat16.
func New(opts *embedopts.Options, lowMemory bool) *Provider {
	precision := "bfloat16"
	if lowMemory {
		precision = "float16"
	}
	return &Provider{
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		precision:  precision,
		maxRetries: opts.MaxRetries,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Model returns the retrieval model identifier.
func (p *Provider) Model() string {
	return p.model
}

// embedImageRequest is the request body for image embedding.
type embedImageRequest struct {
	Model     string   `json:"model"`
	Images    []string `json:"images"`
	Precision string   `json:"precision,omitempty"`
}

// embedImageResponse is the response from image embedding.
type embedImageResponse struct {
	Model      string        `json:"model"`
	Embeddings [][][]float32 `json:"embeddings"`
}

// EmbedImages embeds the page images at the given paths, in order.
func (p *Provider) EmbedImages(ctx context.Context, imagePaths []string) ([][][]float32, error) {
	if len(imagePaths) == 0 {
		return nil, nil
	}

	images := make([]string, len(imagePaths))
	for i, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read page image %s: %w", path, err)
		}
		images[i] = base64.StdEncoding.EncodeToString(data)
	}

	reqBody := embedImageRequest{
		Model:     p.model,
		Images:    images,
		Precision: p.precision,
	}

	var embedResp embedImageResponse
	if err := p.post(ctx, "/embed/image", reqBody, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Embeddings) != len(imagePaths) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d images, got %d embeddings", len(imagePaths), len(embedResp.Embeddings))
	}
	return embedResp.Embeddings, nil
}

// embedTextRequest is the request body for text embedding.
type embedTextRequest struct {
	Model     string `json:"model"`
	Text      string `json:"text"`
	Precision string `json:"precision,omitempty"`
}

// embedTextResponse is the response from text embedding.
type embedTextResponse struct {
	Model     string      `json:"model"`
	Embedding [][]float32 `json:"embedding"`
}

// EmbedText embeds a query string into the same space as EmbedImages.
func (p *Provider) EmbedText(ctx context.Context, text string) ([][]float32, error) {
	reqBody := embedTextRequest{
		Model:     p.model,
		Text:      text,
		Precision: p.precision,
	}

	var embedResp embedTextResponse
	if err := p.post(ctx, "/embed/text", reqBody, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned for query text")
	}
	return embedResp.Embedding, nil
}

// post sends a JSON request and decodes the JSON response into out.
func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.doRequestWithRetry(req)
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return llm.ClassifyHTTPError(resp.StatusCode, bodyBytes)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode embed response: %w", err)
	}
	return nil
}

// doRequestWithRetry executes the request with retry logic.
func (p *Provider) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= p.maxRetries; i++ {
		resp, err := p.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < p.maxRetries {
			time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
		}
	}
	return nil, lastErr
}

// Ping checks if the embedding server is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d", llm.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

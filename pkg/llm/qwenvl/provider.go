// Package qwenvl provides a VisionProvider backed by an Ollama-compatible
// generation server running a vision-language model such as Qwen2-VL.
package qwenvl

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
	vlmopts "github.com/kart-io/visrag/pkg/options/vlm"
)

var _ llm.VisionProvider = (*Provider)(nil)

// Provider is an Ollama-compatible vision model client.
type Provider struct {
	baseURL    string
	model      string
	lowMemory  bool
	maxRetries int
	httpClient *http.Client
}

// New creates a new Provider. In low-memory mode the server is asked to run
// with low_vram enabled.
func New(opts *vlmopts.Options, lowMemory bool) *Provider {
	return &Provider{
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		lowMemory:  lowMemory,
		maxRetries: opts.MaxRetries,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Model returns the generation model identifier.
func (p *Provider) Model() string {
	return p.model
}

// generateRequest is the request body for answer generation.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Images  []string        `json:"images"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions carries model runtime options.
type generateOptions struct {
	NumPredict int  `json:"num_predict"`
	LowVRAM    bool `json:"low_vram,omitempty"`
}

// generateResponse is the response from answer generation.
type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// Generate answers the question from the page images, bounded by maxTokens.
func (p *Provider) Generate(ctx context.Context, question string, imagePaths []string, maxTokens int) (string, error) {
	images := make([]string, len(imagePaths))
	for i, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read page image %s: %w", path, err)
		}
		images[i] = base64.StdEncoding.EncodeToString(data)
	}

	reqBody := generateRequest{
		Model:  p.model,
		Prompt: question,
		Images: images,
		Stream: false,
		Options: generateOptions{
			NumPredict: maxTokens,
			LowVRAM:    p.lowMemory,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.doRequestWithRetry(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", llm.ClassifyHTTPError(resp.StatusCode, bodyBytes)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}

	return genResp.Response, nil
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

// Ping checks if the generation server is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
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

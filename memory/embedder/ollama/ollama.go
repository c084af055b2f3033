// Package ollama embeds text through an Ollama-compatible model-serving
// endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the standard local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the reference embedding model.
	DefaultModel = "nomic-embed-text"

	// DefaultDimensions matches DefaultModel's output size.
	DefaultDimensions = 768

	// requestTimeout bounds each HTTP round-trip. A timeout is a
	// per-document failure, not a fatal error.
	requestTimeout = 30 * time.Second
)

// Config configures the Ollama embedder.
type Config struct {
	// BaseURL is the endpoint base URL (default: DefaultBaseURL).
	BaseURL string

	// Model is the embedding model name (default: DefaultModel).
	Model string

	// Dimensions is the embedding vector size (default: DefaultDimensions).
	Dimensions int

	// Client overrides the HTTP client. The default client carries the
	// standard request timeout and is shared by all in-flight requests.
	Client *http.Client
}

// Embedder generates embeddings via the Ollama HTTP API.
type Embedder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type modelRequest struct {
	Name string `json:"name"`
}

// New creates an Ollama embedder and verifies the endpoint is reachable.
// An unreachable endpoint is a construction error so the provider chain
// can fall through to the next provider. A reachable endpoint with an
// absent model is not an error: a pull is kicked off in the background
// and embedding requests fail per-document until the model arrives.
func New(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: requestTimeout}
	}

	e := &Embedder{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     cfg.Client,
	}

	if err := e.ensureModel(context.Background()); err != nil {
		return nil, fmt.Errorf("ollama at %s: %w", e.baseURL, err)
	}

	return e, nil
}

// ensureModel checks model availability. Transport failures mean the
// endpoint itself is unreachable and are returned; every other outcome is
// advisory and only logged.
func (e *Embedder) ensureModel(ctx context.Context) error {
	status, err := e.post(ctx, "/api/show", modelRequest{Name: e.model}, nil)
	if err != nil {
		return fmt.Errorf("model check: %w", err)
	}

	switch status {
	case http.StatusOK:
		log.Printf("[OLLAMA] model %q available", e.model)
	case http.StatusNotFound:
		log.Printf("[OLLAMA] model %q not found, requesting pull", e.model)
		go e.pullModel()
	default:
		log.Printf("[OLLAMA] model check for %q returned status %d", e.model, status)
	}
	return nil
}

// pullModel asks the endpoint to provision the model. Best-effort: the
// result is logged and never surfaced.
func (e *Embedder) pullModel() {
	status, err := e.post(context.Background(), "/api/pull", modelRequest{Name: e.model}, nil)
	if err != nil {
		log.Printf("[OLLAMA] pull of %q failed: %v", e.model, err)
		return
	}
	if status != http.StatusOK {
		log.Printf("[OLLAMA] pull of %q returned status %d", e.model, status)
		return
	}
	log.Printf("[OLLAMA] model %q pulled", e.model)
}

// Embed requests an embedding for a single text. Callers use the batch
// helpers in the embedder package for the zero-vector fallback semantics.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	status, err := e.post(ctx, "/api/embeddings", embeddingRequest{Model: e.model, Prompt: text}, &resp)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("embeddings request: status %d", status)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings response contained no embedding")
	}
	return resp.Embedding, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// post sends a JSON request and decodes the body into out when out is
// non-nil and the status is 200.
func (e *Embedder) post(ctx context.Context, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	}

	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

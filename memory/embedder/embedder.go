// Package embedder converts text into fixed-length vectors for semantic search.
//
// Providers:
//   - ollama: remote model-serving endpoint (default)
//   - hash: deterministic hash-seeded vectors, no model required
//   - onnx: local all-MiniLM-L6-v2 via ONNX Runtime (build tag "onnx")
//
// Select builds the startup fallback chain: providers are tried in order and
// the first one that constructs wins. The hash provider is the terminal
// fallback, so callers always get a working Embedder.
package embedder

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/driftline/recall-go-sdk/memory/embedder/hash"
)

// DefaultDimensions matches the reference embedding model (nomic-embed-text).
const DefaultDimensions = 768

// Embedder converts text to vector embeddings.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Factory constructs an Embedder. Used by Select to express the
// provider fallback chain as an ordered list of constructors.
type Factory func() (Embedder, error)

// Select tries each factory in order and returns the first Embedder that
// constructs successfully. Construction failures are logged, not returned.
// If every factory fails, a hash embedder is returned so that embeddings
// are always available, if low-quality.
//
// Select is meant to be called once at startup; callers hold the result.
func Select(factories ...Factory) Embedder {
	for i, f := range factories {
		e, err := f()
		if err != nil {
			log.Printf("[EMBED] provider #%d unavailable, falling through: %v", i+1, err)
			continue
		}
		return e
	}
	log.Printf("[EMBED] no embedding provider available, using hash embeddings")
	return hash.New(DefaultDimensions)
}

// ZeroVector returns the deterministic fallback vector for a failed
// embedding request.
func ZeroVector(dimensions int) []float32 {
	return make([]float32, dimensions)
}

// EmbedAll embeds each document sequentially. Any per-document failure
// (transport error, bad status, empty result) is replaced by a zero vector
// and logged, so the result always has exactly len(documents) vectors of
// e.Dimensions() length and no error reaches the caller.
func EmbedAll(ctx context.Context, e Embedder, documents []string) [][]float32 {
	vectors := make([][]float32, len(documents))
	for i, doc := range documents {
		vectors[i] = embedOne(ctx, e, i, doc)
	}
	return vectors
}

// EmbedAllConcurrently embeds the documents with one in-flight request per
// document. Same per-document fallback semantics as EmbedAll.
func EmbedAllConcurrently(ctx context.Context, e Embedder, documents []string) [][]float32 {
	vectors := make([][]float32, len(documents))
	g := new(errgroup.Group)
	for i, doc := range documents {
		i, doc := i, doc
		g.Go(func() error {
			vectors[i] = embedOne(ctx, e, i, doc)
			return nil
		})
	}
	g.Wait()
	return vectors
}

func embedOne(ctx context.Context, e Embedder, i int, doc string) []float32 {
	vec, err := e.Embed(ctx, doc)
	if err != nil {
		log.Printf("[EMBED] document #%d failed, using zero vector: %v", i+1, err)
		return ZeroVector(e.Dimensions())
	}
	if len(vec) == 0 {
		log.Printf("[EMBED] document #%d returned empty embedding, using zero vector", i+1)
		return ZeroVector(e.Dimensions())
	}
	return vec
}

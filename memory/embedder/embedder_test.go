package embedder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/driftline/recall-go-sdk/memory/embedder"
	"github.com/driftline/recall-go-sdk/memory/embedder/hash"
)

// brokenEmbedder fails every request, like an endpoint that went away
// after selection.
type brokenEmbedder struct {
	dims int
}

func (b *brokenEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

func (b *brokenEmbedder) Dimensions() int {
	return b.dims
}

// emptyEmbedder succeeds but returns no vector.
type emptyEmbedder struct {
	dims int
}

func (e *emptyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (e *emptyEmbedder) Dimensions() int {
	return e.dims
}

func TestEmbedAll_AllFailuresStillYieldFullBatch(t *testing.T) {
	ctx := context.Background()
	docs := []string{"one", "two", "three"}

	vectors := embedder.EmbedAll(ctx, &brokenEmbedder{dims: 8}, docs)

	if len(vectors) != len(docs) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(docs))
	}
	for i, vec := range vectors {
		if len(vec) != 8 {
			t.Fatalf("vector #%d has %d dimensions, want 8", i, len(vec))
		}
		for _, v := range vec {
			if v != 0 {
				t.Fatalf("vector #%d is not a zero vector", i)
			}
		}
	}
}

func TestEmbedAll_EmptyResultFallsBack(t *testing.T) {
	vectors := embedder.EmbedAll(context.Background(), &emptyEmbedder{dims: 4}, []string{"doc"})

	if len(vectors) != 1 || len(vectors[0]) != 4 {
		t.Fatalf("got %d vectors of %d dims, want 1 of 4", len(vectors), len(vectors[0]))
	}
}

func TestEmbedAll_EmptyBatch(t *testing.T) {
	vectors := embedder.EmbedAll(context.Background(), hash.New(16), nil)
	if len(vectors) != 0 {
		t.Fatalf("got %d vectors for empty batch", len(vectors))
	}
}

func TestEmbedAllConcurrently_PreservesOrderAndLength(t *testing.T) {
	ctx := context.Background()
	e := hash.New(32)
	docs := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	sequential := embedder.EmbedAll(ctx, e, docs)
	concurrent := embedder.EmbedAllConcurrently(ctx, e, docs)

	if len(concurrent) != len(docs) {
		t.Fatalf("got %d vectors, want %d", len(concurrent), len(docs))
	}
	for i := range docs {
		for j := range sequential[i] {
			if sequential[i][j] != concurrent[i][j] {
				t.Fatalf("vector #%d differs between sequential and concurrent mode", i)
			}
		}
	}
}

func TestSelect_FirstWorkingFactoryWins(t *testing.T) {
	want := hash.New(16)

	got := embedder.Select(
		func() (embedder.Embedder, error) { return nil, errors.New("unreachable") },
		func() (embedder.Embedder, error) { return want, nil },
		func() (embedder.Embedder, error) { t.Fatal("third factory should not run"); return nil, nil },
	)

	if got != embedder.Embedder(want) {
		t.Fatal("Select did not return the second factory's embedder")
	}
}

func TestSelect_AllFailuresFallBackToHash(t *testing.T) {
	got := embedder.Select(
		func() (embedder.Embedder, error) { return nil, errors.New("down") },
		func() (embedder.Embedder, error) { return nil, errors.New("also down") },
	)

	if got == nil {
		t.Fatal("Select returned nil")
	}
	if got.Dimensions() != embedder.DefaultDimensions {
		t.Fatalf("fallback has %d dimensions, want %d", got.Dimensions(), embedder.DefaultDimensions)
	}
	if _, err := got.Embed(context.Background(), "anything"); err != nil {
		t.Fatalf("fallback embedder failed: %v", err)
	}
}

package hash_test

import (
	"context"
	"math"
	"testing"

	"github.com/driftline/recall-go-sdk/memory/embedder/hash"
)

func TestEmbed_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := hash.New(64)

	first, err := e.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := e.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("component %d differs between identical texts", i)
		}
	}
}

func TestEmbed_DistinctTextsDiffer(t *testing.T) {
	ctx := context.Background()
	e := hash.New(64)

	a, _ := e.Embed(ctx, "first text")
	b, _ := e.Embed(ctx, "second text")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct texts produced identical embeddings")
	}
}

func TestEmbed_UnitVectorOfConfiguredSize(t *testing.T) {
	e := hash.New(48)

	vec, err := e.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 48 {
		t.Fatalf("got %d dimensions, want 48", len(vec))
	}
	if e.Dimensions() != 48 {
		t.Fatalf("Dimensions() = %d, want 48", e.Dimensions())
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-4 {
		t.Fatalf("vector norm = %f, want 1", math.Sqrt(norm))
	}
}

// Package chromem backs the memory subsystem with chromem-go, a pure Go
// embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/driftline/recall-go-sdk/memory"
	"github.com/driftline/recall-go-sdk/memory/embedder"
)

// Config configures the store.
type Config struct {
	// Path is the persistence location. Empty keeps everything in
	// memory, which the tests rely on.
	Path string

	// Compress gzips persisted collections.
	Compress bool

	// Embedder is the embedding hook every collection uses. Required.
	Embedder embedder.Embedder
}

// Store wraps a chromem-go database behind memory.VectorStore.
//
// The database is opened lazily on the first Collection call, so
// constructing a Store does no I/O and the facade's Initialize owns the
// open-or-fail moment.
type Store struct {
	cfg Config

	mu sync.Mutex
	db *chromem.DB
}

// New creates a store. The database is not opened until first use.
func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) open() (*chromem.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}
	if s.cfg.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	if s.cfg.Path == "" {
		s.db = chromem.NewDB()
		log.Printf("[CHROMEM] opened in-memory database")
		return s.db, nil
	}

	db, err := chromem.NewPersistentDB(s.cfg.Path, s.cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", s.cfg.Path, err)
	}
	log.Printf("[CHROMEM] opened database at %s", s.cfg.Path)
	s.db = db
	return s.db, nil
}

// Collection gets or creates a named collection. The embedding hook wraps
// the configured embedder with a zero-vector fallback so an embedding
// failure degrades a write or query instead of failing it.
func (s *Store) Collection(name, description string) (memory.Collection, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}

	col, err := db.GetOrCreateCollection(name, map[string]string{"description": description}, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w", name, err)
	}

	return &collection{col: col, dimensions: s.cfg.Embedder.Dimensions()}, nil
}

func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	e := s.cfg.Embedder
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := e.Embed(ctx, text)
		if err != nil || len(vec) == 0 {
			log.Printf("[CHROMEM] embedding failed, substituting zero vector: %v", err)
			return embedder.ZeroVector(e.Dimensions()), nil
		}
		return vec, nil
	}
}

// Close releases the database handle. chromem persists on every write, so
// there is nothing to flush.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = nil
	return nil
}

type collection struct {
	col        *chromem.Collection
	dimensions int
}

// Add inserts a document, erroring on an id collision. chromem itself
// overwrites silently, so the existence check lives here.
func (c *collection) Add(ctx context.Context, id, document string, metadata map[string]string) error {
	if _, err := c.col.GetByID(ctx, id); err == nil {
		return fmt.Errorf("document %q already exists", id)
	}
	return c.put(ctx, id, document, metadata)
}

// Upsert inserts or replaces the document with the given id.
func (c *collection) Upsert(ctx context.Context, id, document string, metadata map[string]string) error {
	return c.put(ctx, id, document, metadata)
}

func (c *collection) put(ctx context.Context, id, document string, metadata map[string]string) error {
	err := c.col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  document,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query runs a similarity search and converts chromem's
// descending-similarity results into ascending-distance hits.
func (c *collection) Query(ctx context.Context, text string, topK int, where map[string]string) ([]memory.SearchHit, error) {
	results, err := c.query(topK, func(k int) ([]chromem.Result, error) {
		return c.col.Query(ctx, text, k, where, nil)
	})
	if err != nil {
		return nil, err
	}

	hits := make([]memory.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, memory.SearchHit{
			Document: r.Content,
			Metadata: r.Metadata,
			Distance: 1 - r.Similarity,
		})
	}
	return hits, nil
}

// Get returns the full matching set. chromem has no enumeration API, so
// this queries a fixed probe embedding with topK equal to the collection
// size; the ranking is meaningless and discarded, the coverage is what
// matters.
func (c *collection) Get(ctx context.Context, where map[string]string) ([]memory.Record, error) {
	probe := make([]float32, c.dimensions)
	probe[0] = 1

	results, err := c.query(c.col.Count(), func(k int) ([]chromem.Result, error) {
		return c.col.QueryEmbedding(ctx, probe, k, where, nil)
	})
	if err != nil {
		return nil, err
	}

	records := make([]memory.Record, 0, len(results))
	for _, r := range results {
		records = append(records, memory.Record{
			ID:       r.ID,
			Document: r.Content,
			Metadata: r.Metadata,
		})
	}
	return records, nil
}

// query retries with shrinking result counts until chromem accepts the
// request. chromem rejects nResults larger than the number of matching
// documents, and the match count under a metadata filter is unknown up
// front.
func (c *collection) query(topK int, run func(k int) ([]chromem.Result, error)) ([]chromem.Result, error) {
	if count := c.col.Count(); count == 0 {
		return nil, nil
	} else if topK > count {
		topK = count
	}

	for k := topK; k >= 1; k-- {
		results, err := run(k)
		if err == nil {
			return results, nil
		}
		if !isTooFewDocsError(err) {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
	}

	// Nothing matches the filter.
	return nil, nil
}

// Delete removes the records with the given ids.
func (c *collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// DeleteWhere removes the records matching the filter. chromem metadata
// filters are equality-only, so an age predicate cannot be pushed down
// and callers get ErrFilterUnsupported to trigger their scan fallback.
func (c *collection) DeleteWhere(ctx context.Context, f memory.Filter) (int, error) {
	if !f.OlderThan.IsZero() {
		return 0, memory.ErrFilterUnsupported
	}
	if len(f.Where) == 0 {
		return 0, nil
	}

	before := c.col.Count()
	if err := c.col.Delete(ctx, f.Where, nil); err != nil {
		return 0, fmt.Errorf("delete by filter: %w", err)
	}
	return before - c.col.Count(), nil
}

// Count returns the number of records in the collection.
func (c *collection) Count() int {
	return c.col.Count()
}

// isTooFewDocsError matches chromem's complaint about nResults exceeding
// the matching document count.
func isTooFewDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
